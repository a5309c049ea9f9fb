package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/security"
)

const bearerPrefix = "bearer "

// UnauthorizedMessage is the body of every 401 on the token, session, and
// refresh paths. A caller cannot tell from the response which check failed;
// the specific reason goes to the audit log only.
const UnauthorizedMessage = "could not validate credentials"

// RequireAuth verifies the Bearer access token and attaches the claimed
// identity to the request. The identity is not trusted for session state
// until RequireSession confirms a live session.
func RequireAuth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c)
			return
		}
		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			unauthorized(c)
			return
		}
		SetIdentity(c, &role.Identity{
			UserID:    claims.Subject,
			Email:     claims.Email,
			Roles:     role.FromNames(claims.Roles),
			SessionID: claims.SessionID,
		})
		c.Next()
	}
}

// extractBearer returns the Bearer token from the Authorization header value,
// or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": UnauthorizedMessage})
}

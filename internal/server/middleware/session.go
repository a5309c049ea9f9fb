package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	sessiondomain "auth-starter/backend/internal/session/domain"
	sessionservice "auth-starter/backend/internal/session/service"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "session_token"

// SessionLookup resolves a session cookie token to a live session.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (*sessiondomain.Session, error)
}

// RequireSession verifies the session cookie against the session store and
// completes the identity set by RequireAuth. A valid bearer token is not
// enough: a missing, revoked, or expired session denies the request, which
// is what makes logout and revocation take effect immediately.
func RequireSession(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			unauthorized(c)
			return
		}
		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" {
			unauthorized(c)
			return
		}
		sess, err := sessions.Lookup(c.Request.Context(), token)
		if errors.Is(err, sessionservice.ErrNotFound) {
			unauthorized(c)
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}
		if sess.UserID != id.UserID {
			unauthorized(c)
			return
		}
		id.SessionToken = token
		c.Next()
	}
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"auth-starter/backend/internal/role"
)

// RequireRole denies with 403 unless the identity holds at least one of the
// given roles. Must run after RequireAuth.
func RequireRole(roles ...role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			unauthorized(c)
			return
		}
		if !id.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// Package middleware holds the request guards: rate limiting, bearer token
// verification, session cookie verification, and role checks. Guard order is
// declared once in the router; each guard assumes the ones before it ran.
package middleware

import (
	"github.com/gin-gonic/gin"

	"auth-starter/backend/internal/role"
)

// identityKey is the gin context key the guards store the caller under.
const identityKey = "auth/identity"

// SetIdentity attaches the authenticated caller to the request.
func SetIdentity(c *gin.Context, id *role.Identity) {
	c.Set(identityKey, id)
}

// GetIdentity returns the authenticated caller and true if the auth guards ran.
func GetIdentity(c *gin.Context) (*role.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*role.Identity)
	return id, ok
}

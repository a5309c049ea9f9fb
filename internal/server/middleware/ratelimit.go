package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"auth-starter/backend/internal/audit"
	auditdomain "auth-starter/backend/internal/audit/domain"
	"auth-starter/backend/internal/ratelimit"
)

// RateLimitConfig maps routes to their budget. Routes not listed fall back
// to Default.
type RateLimitConfig struct {
	Default ratelimit.Rule
	// Rules is keyed by "<METHOD> <route template>", e.g.
	// "POST /api/v1/auth/login".
	Rules map[string]ratelimit.Rule
}

// RateLimit guards every route with the sliding-window limiter, keyed by
// client address. It runs before the auth guards. Denials answer 429 with
// a Retry-After header and are recorded in the audit log.
func RateLimit(limiter *ratelimit.Limiter, cfg RateLimitConfig, auditor audit.Recorder) gin.HandlerFunc {
	return rateLimitStage(limiter, cfg, auditor, func(c *gin.Context, route string) (string, string) {
		return ratelimit.IPKey(ratelimit.ClientIP(c.Request), route), ""
	})
}

// RateLimitByUser guards authenticated routes with a per-user budget on top
// of the address-keyed one, so an account stays bounded across addresses.
// It must run after RequireAuth; without an identity it passes through and
// leaves the address budget in charge.
func RateLimitByUser(limiter *ratelimit.Limiter, cfg RateLimitConfig, auditor audit.Recorder) gin.HandlerFunc {
	return rateLimitStage(limiter, cfg, auditor, func(c *gin.Context, route string) (string, string) {
		id, ok := GetIdentity(c)
		if !ok {
			return "", ""
		}
		return ratelimit.UserKey(id.UserID, route), id.UserID
	})
}

func rateLimitStage(limiter *ratelimit.Limiter, cfg RateLimitConfig, auditor audit.Recorder, keyFor func(*gin.Context, string) (key, userID string)) gin.HandlerFunc {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			// Unmatched routes 404 anyway; don't spend budget on them.
			c.Next()
			return
		}
		route = c.Request.Method + " " + route

		rule, ok := cfg.Rules[route]
		if !ok {
			rule = cfg.Default
		}

		key, userID := keyFor(c, route)
		if key == "" {
			c.Next()
			return
		}

		allowed, retryAfter := limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}

		auditor.Record(c.Request.Context(), userID, auditdomain.ActionRateLimited, "http", ratelimit.ClientIP(c.Request), route)
		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}

// Package server assembles the HTTP surface: middleware pipeline and routes.
package server

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"auth-starter/backend/internal/audit"
	audithandler "auth-starter/backend/internal/audit/handler"
	auditrepo "auth-starter/backend/internal/audit/repository"
	authhandler "auth-starter/backend/internal/auth/handler"
	authservice "auth-starter/backend/internal/auth/service"
	healthhandler "auth-starter/backend/internal/health/handler"
	"auth-starter/backend/internal/ratelimit"
	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/security"
	"auth-starter/backend/internal/server/middleware"
	sessionhandler "auth-starter/backend/internal/session/handler"
	sessionservice "auth-starter/backend/internal/session/service"
)

// ServiceName identifies this service in traces.
const ServiceName = "auth-starter"

// Deps holds the wired services the router serves.
type Deps struct {
	Auth     *authservice.AuthService
	Sessions *sessionservice.Store
	Tokens   *security.TokenProvider
	Limiter  *ratelimit.Limiter
	// RateLimits maps "<METHOD> <route>" to budgets; unlisted routes use
	// RateLimits.Default.
	RateLimits middleware.RateLimitConfig
	// Auditor records rate-limit denials. May be nil.
	Auditor audit.Recorder
	// AuditLog backs the admin audit listing. Nil hides the endpoint.
	AuditLog auditrepo.Repository
	// DB backs the health check's readiness ping. May be nil.
	DB *sql.DB
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
}

// NewRouter builds the gin engine. Guard order per route: the address-keyed
// rate limit first, then for protected routes the bearer guard, the
// user-keyed rate limit, and the session guard. Public routes (register,
// login, refresh, logout, health) carry only the address-keyed limit.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(ServiceName))
	r.Use(middleware.RateLimit(deps.Limiter, deps.RateLimits, deps.Auditor))

	health := healthhandler.NewHandler(deps.DB)
	r.GET("/health", health.Check)

	authH := authhandler.NewAuthHandler(deps.Auth, deps.Sessions.TTL(), deps.CookieSecure)
	sessH := sessionhandler.NewSessionHandler(deps.Sessions, deps.CookieSecure)

	requireAuth := middleware.RequireAuth(deps.Tokens)
	limitUser := middleware.RateLimitByUser(deps.Limiter, deps.RateLimits, deps.Auditor)
	requireSession := middleware.RequireSession(deps.Sessions)

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authH.Register)
			auth.POST("/login", authH.Login)
			auth.POST("/refresh", authH.Refresh)
			auth.POST("/logout", authH.Logout)
			auth.GET("/me", requireAuth, limitUser, requireSession, authH.Me)
		}

		sessions := v1.Group("/sessions", requireAuth, limitUser, requireSession)
		{
			sessions.GET("", sessH.List)
			sessions.DELETE("/:id", sessH.Revoke)
			sessions.DELETE("", sessH.RevokeOthers)
		}

		if deps.AuditLog != nil {
			auditH := audithandler.NewAuditHandler(deps.AuditLog)
			admin := v1.Group("/admin", requireAuth, limitUser, requireSession, middleware.RequireRole(role.Admin))
			admin.GET("/audit", auditH.List)
		}
	}

	return r
}

// DefaultRateLimits builds the per-route budget map from the configured
// rules for the sensitive endpoints.
func DefaultRateLimits(defaultRule, login, register, refresh ratelimit.Rule) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Default: defaultRule,
		Rules: map[string]ratelimit.Rule{
			"POST /api/v1/auth/login":    login,
			"POST /api/v1/auth/register": register,
			"POST /api/v1/auth/refresh":  refresh,
		},
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth-starter/backend/internal/audit"
	auditrepo "auth-starter/backend/internal/audit/repository"
	authservice "auth-starter/backend/internal/auth/service"
	"auth-starter/backend/internal/config"
	"auth-starter/backend/internal/db"
	"auth-starter/backend/internal/ratelimit"
	"auth-starter/backend/internal/security"
	"auth-starter/backend/internal/server"
	"auth-starter/backend/internal/server/middleware"
	"auth-starter/backend/internal/session/cache"
	sessionrepo "auth-starter/backend/internal/session/repository"
	sessionservice "auth-starter/backend/internal/session/service"
	"auth-starter/backend/internal/telemetry/otel"
	userrepo "auth-starter/backend/internal/user/repository"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	sessionSweepInterval   = 10 * time.Minute
	// Expired session rows are kept this long for inspection before the
	// sweeper hard-deletes them.
	sessionRetention = 24 * time.Hour
	auditRetention   = 90 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, server.ServiceName, false)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	var sessionCache cache.Cache = cache.Disabled{}
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			// The durable store carries lookups alone; slower, not broken.
			log.Printf("redis unavailable, session cache disabled: %v", err)
		} else {
			defer redisCache.Close()
			sessionCache = redisCache
		}
	}

	auditStore := auditrepo.NewPostgresRepository(conn)
	auditor := audit.Recorder(audit.Multi{
		audit.NewLogger(auditStore),
	})
	if events := otel.NewEventRecorder(providers.LoggerProvider); events != nil {
		auditor = audit.Multi{auditor, events}
	}

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionservice.NewStore(sessionrepo.NewPostgresRepository(conn), sessionCache, cfg.SessionTTL())
	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.AccessTTL(), cfg.RefreshTTL())
	auth := authservice.NewAuthService(users, sessions, hasher, tokens, auditor)

	limiter := ratelimit.NewLimiter()
	go limiter.Run(ctx, limiterCleanupInterval)
	go runSweeper(ctx, sessions, auditStore)

	router := server.NewRouter(server.Deps{
		Auth:         auth,
		Sessions:     sessions,
		Tokens:       tokens,
		Limiter:      limiter,
		RateLimits:   rateLimits(cfg),
		Auditor:      auditor,
		AuditLog:     auditStore,
		DB:           conn,
		CookieSecure: cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// rateLimits parses the configured rules, falling back to the defaults on
// malformed values rather than refusing to start.
func rateLimits(cfg *config.Config) middleware.RateLimitConfig {
	parse := func(s, fallback string) ratelimit.Rule {
		rule, err := ratelimit.ParseRule(s)
		if err != nil {
			log.Printf("config: %v, using %q", err, fallback)
			return ratelimit.MustParseRule(fallback)
		}
		return rule
	}
	return server.DefaultRateLimits(
		parse(cfg.RateLimitDefault, "1000 per hour"),
		parse(cfg.RateLimitLogin, "5 per minute"),
		parse(cfg.RateLimitRegister, "3 per minute"),
		parse(cfg.RateLimitRefresh, "10 per minute"),
	)
}

// runSweeper periodically deactivates expired sessions and prunes old audit
// events.
func runSweeper(ctx context.Context, sessions *sessionservice.Store, audits auditrepo.Repository) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.SweepExpired(ctx, sessionRetention)
			if err != nil {
				log.Printf("session sweep: %v", err)
			} else if n > 0 {
				log.Printf("session sweep: deactivated %d expired sessions", n)
			}
			if _, err := audits.DeleteBefore(ctx, time.Now().UTC().Add(-auditRetention)); err != nil {
				log.Printf("audit prune: %v", err)
			}
		}
	}
}

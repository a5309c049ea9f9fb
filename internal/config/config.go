// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for the server and migrations.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL is the Redis connection string for the session cache.
	// Empty disables the cache; lookups then go straight to Postgres.
	RedisURL string `mapstructure:"REDIS_URL"`
	// JWTSecret is the HMAC signing secret for access and refresh tokens; min 32 bytes.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTAccessTTL is the access token lifetime (e.g. "30m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// SessionTTLValue is the session cookie lifetime (e.g. "24h").
	SessionTTLValue string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP collector endpoint for traces/metrics/logs.
	// Empty disables export; no-op providers are used.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`

	// Rate limit rules, expressed as "<count> per <unit>" (e.g. "5 per minute").
	// RateLimitDefault applies to every route without a specific rule.
	RateLimitDefault string `mapstructure:"RATE_LIMIT_DEFAULT"`
	// RateLimitLogin applies to the login route.
	RateLimitLogin string `mapstructure:"RATE_LIMIT_LOGIN"`
	// RateLimitRegister applies to the register route.
	RateLimitRegister string `mapstructure:"RATE_LIMIT_REGISTER"`
	// RateLimitRefresh applies to the token refresh route.
	RateLimitRefresh string `mapstructure:"RATE_LIMIT_REFRESH"`

	// Seed-only: bootstrap admin account created by cmd/seed.
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "30m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("RATE_LIMIT_DEFAULT", "1000 per hour")
	v.SetDefault("RATE_LIMIT_LOGIN", "5 per minute")
	v.SetDefault("RATE_LIMIT_REGISTER", "3 per minute")
	v.SetDefault("RATE_LIMIT_REFRESH", "10 per minute")
	v.SetDefault("ADMIN_EMAIL", "admin@example.com")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		return nil, errors.New("config: JWT_SECRET must be at least 32 bytes")
	}
	if cfg.Env == "production" && cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// SessionTTL parses SessionTTLValue as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLValue)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

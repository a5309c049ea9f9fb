// Package cache provides the fast-lookup layer in front of the durable
// session store. The cache holds copies, never the authority: a miss or an
// error here always falls through to Postgres.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the token has no cache entry. Callers must
// fall back to the durable store before declaring the session absent.
var ErrMiss = errors.New("cache: miss")

// Entry is the cached projection of a session, keyed by the opaque session token.
type Entry struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
}

// Cache is the session cache. Implementations: Redis (NewRedis) and Disabled.
// The implementation is chosen once at startup; call sites have one code path.
type Cache interface {
	Get(ctx context.Context, token string) (*Entry, error)
	Set(ctx context.Context, token string, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

// Disabled is the Cache used when no Redis is configured. Get always misses,
// so every lookup goes to the durable store; writes and deletes are no-ops.
type Disabled struct{}

func (Disabled) Get(ctx context.Context, token string) (*Entry, error) { return nil, ErrMiss }

func (Disabled) Set(ctx context.Context, token string, e Entry, ttl time.Duration) error {
	return nil
}

func (Disabled) Delete(ctx context.Context, token string) error { return nil }

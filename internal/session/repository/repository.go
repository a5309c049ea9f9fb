package repository

import (
	"context"
	"time"

	"auth-starter/backend/internal/session/domain"
)

// Repository defines persistence for sessions. The durable store is the
// authority on session existence; the cache in front of it is not.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetLiveByToken returns the active, unexpired session with the given
	// token, or nil. Revoked and expired rows are never returned.
	GetLiveByToken(ctx context.Context, token string, now time.Time) (*domain.Session, error)
	ListLiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	// Deactivate flips is_active off for the session if it belongs to
	// ownerUserID. Returns the session's token when a row was flipped, ""
	// when no live row matched (already revoked or not the owner's).
	Deactivate(ctx context.Context, id, ownerUserID string) (string, error)
	DeactivateByToken(ctx context.Context, token string) (bool, error)
	// DeactivateAllByUser flips every live session of the user; exceptToken
	// may name one token to spare. Returns the tokens of flipped rows.
	DeactivateAllByUser(ctx context.Context, userID, exceptToken string) ([]string, error)
	// SwapRefreshToken atomically replaces the session's refresh jti and
	// hash, guarded on the previous jti. Returns false when the guard did
	// not match, i.e. another rotation won.
	SwapRefreshToken(ctx context.Context, sessionID, prevJTI, newJTI, newHash string) (bool, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	// DeactivateExpired flips rows whose expires_at has passed and returns
	// their tokens so cache entries can be purged.
	DeactivateExpired(ctx context.Context, now time.Time) ([]string, error)
	// DeleteExpiredBefore hard-deletes long-expired rows. Used by periodic
	// cleanup only; live sessions are never hard-deleted.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

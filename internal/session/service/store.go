package service

import (
	"context"
	"errors"
	"time"

	"auth-starter/backend/internal/security"
	"auth-starter/backend/internal/session/cache"
	"auth-starter/backend/internal/session/domain"
)

// ErrNotFound is returned when no live session matches the token or id.
var ErrNotFound = errors.New("session not found")

// Repo is the minimal session repository needed by the store.
type Repo interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetLiveByToken(ctx context.Context, token string, now time.Time) (*domain.Session, error)
	ListLiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	Deactivate(ctx context.Context, id, ownerUserID string) (string, error)
	DeactivateByToken(ctx context.Context, token string) (bool, error)
	DeactivateAllByUser(ctx context.Context, userID, exceptToken string) ([]string, error)
	SwapRefreshToken(ctx context.Context, sessionID, prevJTI, newJTI, newHash string) (bool, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
	DeactivateExpired(ctx context.Context, now time.Time) ([]string, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store manages session lifecycle over the durable repository with a cache
// mirror in front. Cache writes are best effort; the repository is the
// authority, and Revoke* always purges the cache so a revoked session can
// never be served from a stale mirror.
type Store struct {
	repo  Repo
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewStore returns a Store. ttl is the session lifetime applied at Create.
func NewStore(repo Repo, c cache.Cache, ttl time.Duration) *Store {
	return &Store{
		repo:  repo,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the session lifetime, used by handlers to set cookie max age.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create fills in the session's token, activity, and expiry, persists it, and
// mirrors it into the cache. The caller pre-fills ID, UserID, UserAgent,
// IPAddress, RefreshJti, and RefreshTokenHash.
func (s *Store) Create(ctx context.Context, sess *domain.Session) error {
	token, err := security.NewSessionToken()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	sess.Token = token
	sess.IsActive = true
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(s.ttl)

	if err := s.repo.Create(ctx, sess); err != nil {
		return err
	}
	_ = s.cache.Set(ctx, token, cache.Entry{
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		IsActive:  true,
	}, s.ttl)
	return nil
}

// Lookup resolves a session token, cache first. A cache hit yields a session
// carrying only the cached fields (UserID, ExpiresAt, activity); callers that
// need the full row use GetByID. A cache entry marked inactive or expired is
// denied without consulting the database. Only a miss or cache error falls
// through to the repository, and a repository hit repopulates the cache.
func (s *Store) Lookup(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	now := s.now().UTC()

	if entry, err := s.cache.Get(ctx, token); err == nil {
		if !entry.IsActive || !entry.ExpiresAt.After(now) {
			return nil, ErrNotFound
		}
		return &domain.Session{
			UserID:    entry.UserID,
			Token:     token,
			IsActive:  true,
			ExpiresAt: entry.ExpiresAt,
		}, nil
	}

	sess, err := s.repo.GetLiveByToken(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	_ = s.cache.Set(ctx, token, cache.Entry{
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		IsActive:  true,
	}, time.Until(sess.ExpiresAt))
	return sess, nil
}

// GetByID returns the session row, or nil if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForUser returns the user's live sessions, newest first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	return s.repo.ListLiveByUser(ctx, userID, s.now().UTC())
}

// Revoke deactivates the session by id if it belongs to ownerUserID, purging
// its cache entry. Returns ErrNotFound when no live session matched, so a
// user cannot discover or revoke sessions that are not theirs.
func (s *Store) Revoke(ctx context.Context, id, ownerUserID string) error {
	token, err := s.repo.Deactivate(ctx, id, ownerUserID)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNotFound
	}
	_ = s.cache.Delete(ctx, token)
	return nil
}

// RevokeByID deactivates the session by id regardless of owner. Used for
// server-initiated revocation such as refresh token reuse handling.
func (s *Store) RevokeByID(ctx context.Context, id string) error {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if _, err := s.repo.DeactivateByToken(ctx, sess.Token); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, sess.Token)
	return nil
}

// RevokeByToken deactivates the session holding the token. Revoking an
// already revoked or unknown token is a no-op, so logout is idempotent.
func (s *Store) RevokeByToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.repo.DeactivateByToken(ctx, token); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, token)
	return nil
}

// RevokeOthers deactivates every live session of the user except the one
// holding currentToken. Returns the number revoked.
func (s *Store) RevokeOthers(ctx context.Context, userID, currentToken string) (int, error) {
	tokens, err := s.repo.DeactivateAllByUser(ctx, userID, currentToken)
	if err != nil {
		return 0, err
	}
	for _, t := range tokens {
		_ = s.cache.Delete(ctx, t)
	}
	return len(tokens), nil
}

// RevokeAll deactivates every live session of the user.
func (s *Store) RevokeAll(ctx context.Context, userID string) (int, error) {
	return s.RevokeOthers(ctx, userID, "")
}

// SwapRefreshToken rotates the session's refresh registration, guarded on the
// previous jti. Returns false when the guard missed.
func (s *Store) SwapRefreshToken(ctx context.Context, sessionID, prevJTI, newJTI, newHash string) (bool, error) {
	return s.repo.SwapRefreshToken(ctx, sessionID, prevJTI, newJTI, newHash)
}

// Touch records activity on the session. Best effort.
func (s *Store) Touch(ctx context.Context, id string) {
	_ = s.repo.UpdateLastSeen(ctx, id, s.now().UTC())
}

// SweepExpired deactivates sessions past their expiry, purges their cache
// entries, and hard-deletes rows expired for longer than retain. Returns the
// number deactivated.
func (s *Store) SweepExpired(ctx context.Context, retain time.Duration) (int, error) {
	now := s.now().UTC()
	tokens, err := s.repo.DeactivateExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, t := range tokens {
		_ = s.cache.Delete(ctx, t)
	}
	if retain > 0 {
		_, _ = s.repo.DeleteExpiredBefore(ctx, now.Add(-retain))
	}
	return len(tokens), nil
}

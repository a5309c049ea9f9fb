package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auth-starter/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, token, COALESCE(user_agent, ''), COALESCE(ip_address, ''),
	COALESCE(refresh_jti, ''), COALESCE(refresh_token_hash, ''),
	is_active, created_at, expires_at, last_seen_at`

// Create persists the session to the database. The session must have ID and Token set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, user_agent, ip_address,
			refresh_jti, refresh_token_hash, is_active, created_at, expires_at, last_seen_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''),
			NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)`,
		s.ID, s.UserID, s.Token, s.UserAgent, s.IPAddress,
		s.RefreshJti, s.RefreshTokenHash, s.IsActive, s.CreatedAt, s.ExpiresAt,
		nullTime(s.LastSeenAt))
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetLiveByToken returns the active, unexpired session with the given token, or nil.
func (r *PostgresRepository) GetLiveByToken(ctx context.Context, token string, now time.Time) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1 AND is_active AND expires_at > $2`,
		token, now)
	return scanSession(row)
}

// ListLiveByUser returns all active, unexpired sessions for the user, newest first.
func (r *PostgresRepository) ListLiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND is_active AND expires_at > $2
		 ORDER BY created_at DESC`,
		userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Deactivate flips is_active off for the owner's session. The WHERE clause
// makes the check-then-flip one statement, so concurrent revocations cannot
// both observe a live row; revoking twice flips nothing and returns "".
func (r *PostgresRepository) Deactivate(ctx context.Context, id, ownerUserID string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `
		UPDATE sessions SET is_active = FALSE
		WHERE id = $1 AND user_id = $2 AND is_active
		RETURNING token`,
		id, ownerUserID).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

// DeactivateByToken flips is_active off for the session with the given token.
// Returns false when no live row matched.
func (r *PostgresRepository) DeactivateByToken(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE token = $1 AND is_active`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeactivateAllByUser flips every live session of the user, sparing exceptToken
// when non-empty. Returns the tokens of the flipped rows.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID, exceptToken string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE sessions SET is_active = FALSE
		WHERE user_id = $1 AND is_active AND ($2 = '' OR token <> $2)
		RETURNING token`,
		userID, exceptToken)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTokens(rows)
}

// SwapRefreshToken replaces the session's refresh jti and hash in a single
// guarded UPDATE. Only one of two concurrent rotations can win the guard.
func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, sessionID, prevJTI, newJTI, newHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET refresh_jti = $3, refresh_token_hash = $4
		WHERE id = $1 AND refresh_jti = $2 AND is_active`,
		sessionID, prevJTI, newJTI, newHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateLastSeen sets the session's last-seen timestamp for the given id.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

// DeactivateExpired flips rows whose expires_at has passed and returns their
// tokens. It touches only already-expired rows, so it never contends with
// live session traffic.
func (r *PostgresRepository) DeactivateExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE sessions SET is_active = FALSE
		WHERE is_active AND expires_at < $1
		RETURNING token`,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTokens(rows)
}

// DeleteExpiredBefore hard-deletes rows that expired before cutoff.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	s, err := scanSessionFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSessionRows(rows *sql.Rows) (*domain.Session, error) {
	return scanSessionFrom(rows)
}

func scanSessionFrom(sc rowScanner) (*domain.Session, error) {
	var s domain.Session
	var lastSeen sql.NullTime
	err := sc.Scan(&s.ID, &s.UserID, &s.Token, &s.UserAgent, &s.IPAddress,
		&s.RefreshJti, &s.RefreshTokenHash, &s.IsActive, &s.CreatedAt, &s.ExpiresAt, &lastSeen)
	if err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		s.LastSeenAt = &lastSeen.Time
	}
	return &s, nil
}

func collectTokens(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		out = append(out, token)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

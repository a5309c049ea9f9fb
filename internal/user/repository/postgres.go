package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, username, password_hash,
	COALESCE(first_name, ''), COALESCE(last_name, ''),
	is_active, created_at, updated_at, last_logged_in`

// GetByID returns the user for id with roles loaded, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser(ctx, row)
}

// GetByEmail returns the user with the given email with roles loaded, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.scanUser(ctx, row)
}

// Create persists the user to the database. The user must have ID set; role
// assignments are written separately via AssignRole.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, first_name, last_name,
			is_active, created_at, updated_at, last_logged_in)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.FirstName, u.LastName,
		u.IsActive, u.CreatedAt, u.UpdatedAt, nullTime(u.LastLoggedIn))
	return err
}

// AssignRole links the user to the named role, creating the role row if the
// seed has not run yet. Assigning an already-held role is a no-op.
func (r *PostgresRepository) AssignRole(ctx context.Context, userID string, rl role.Role) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`,
		uuid.New().String(), string(rl), now)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_at)
		SELECT $1, id, $3 FROM roles WHERE name = $2
		ON CONFLICT DO NOTHING`,
		userID, string(rl), now)
	return err
}

// UpdateLastLoggedIn records the time of the user's latest successful login.
func (r *PostgresRepository) UpdateLastLoggedIn(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_logged_in = $2, updated_at = $2 WHERE id = $1`,
		userID, at)
	return err
}

func (r *PostgresRepository) scanUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	var u domain.User
	var lastLoggedIn sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLoggedIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastLoggedIn.Valid {
		u.LastLoggedIn = &lastLoggedIn.Time
	}
	roles, err := r.loadRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (r *PostgresRepository) loadRoles(ctx context.Context, userID string) ([]role.Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []role.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if rl, ok := role.Parse(name); ok {
			out = append(out, rl)
		}
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

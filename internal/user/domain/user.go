package domain

import (
	"time"

	"auth-starter/backend/internal/role"
)

// User represents a user account. PasswordHash is a bcrypt hash; plaintext
// passwords are never stored.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	Roles        []role.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoggedIn *time.Time // nil when the user has never logged in
}

// RoleNames returns the user's role names for token claims.
func (u *User) RoleNames() []string {
	return role.Names(u.Roles)
}

package repository

import (
	"context"
	"time"

	"auth-starter/backend/internal/role"
	"auth-starter/backend/internal/user/domain"
)

// Repository defines persistence for user accounts and their role assignments.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	AssignRole(ctx context.Context, userID string, r role.Role) error
	UpdateLastLoggedIn(ctx context.Context, userID string, at time.Time) error
}

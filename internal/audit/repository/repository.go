package repository

import (
	"context"
	"time"

	"auth-starter/backend/internal/audit/domain"
)

// Repository defines persistence for audit events.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	ListRecent(ctx context.Context, limit, offset int32) ([]*domain.Event, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

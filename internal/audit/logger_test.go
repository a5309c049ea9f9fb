package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"auth-starter/backend/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.Event
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, e *domain.Event) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditRepo) ListRecent(ctx context.Context, limit, offset int32) ([]*domain.Event, error) {
	return nil, nil
}

func (m *mockAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func TestLogger_Record(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo)

	logger.Record(context.Background(), "user-1", domain.ActionLogin, "auth", "192.168.1.1", "")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("expected generated id")
	}
	if e.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", e.UserID, "user-1")
	}
	if e.Action != domain.ActionLogin {
		t.Errorf("action = %q, want %q", e.Action, domain.ActionLogin)
	}
	if e.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", e.IP, "192.168.1.1")
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected created_at set")
	}
}

func TestLogger_Record_RepoErrorSwallowed(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	logger := NewLogger(repo)

	// Must not panic or surface the error.
	logger.Record(context.Background(), "user-1", domain.ActionLogout, "auth", "", "")
}

func TestLogger_NilReceiverSafe(t *testing.T) {
	var logger *Logger
	logger.Record(context.Background(), "user-1", domain.ActionLogin, "auth", "", "")
}

// Package audit records security-relevant events to the audit_events table.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"auth-starter/backend/internal/audit/domain"
	auditrepo "auth-starter/backend/internal/audit/repository"
)

// Recorder writes a single audit event. Used by auth and session code paths.
// Record is best-effort: failures are logged and do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, userID, action, resource, ip, metadata string)
}

// Logger implements Recorder using the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Recorder that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// Record writes one audit event. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, userID, action, resource, ip, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	e := &domain.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		log.Printf("audit: failed to record %s/%s: %v", action, resource, err)
	}
}

// Nop is a Recorder that discards events. Used in tests and when auditing is off.
type Nop struct{}

func (Nop) Record(ctx context.Context, userID, action, resource, ip, metadata string) {}

// Multi fans one event out to several recorders, e.g. the database log and
// the telemetry stream.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, userID, action, resource, ip, metadata string) {
	for _, r := range m {
		r.Record(ctx, userID, action, resource, ip, metadata)
	}
}

package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// EventRecorder mirrors security events (logins, refresh rotations, session
// revocations, rate-limit denials) into the OTel log stream. It satisfies
// the audit.Recorder interface so it can be composed with the database
// audit logger.
type EventRecorder struct {
	logger otellog.Logger
}

// NewEventRecorder returns an EventRecorder emitting via the given
// LoggerProvider, or nil when provider is nil; callers treat nil as absent.
func NewEventRecorder(provider *sdklog.LoggerProvider) *EventRecorder {
	if provider == nil {
		return nil
	}
	return &EventRecorder{logger: provider.Logger("auth-starter.security")}
}

// Record emits one security event as an OTel log record. Best-effort.
func (e *EventRecorder) Record(ctx context.Context, userID, action, resource, ip, metadata string) {
	if e == nil {
		return
	}
	rec := otellog.Record{}
	rec.SetBody(otellog.StringValue(action))
	rec.AddAttributes(
		otellog.String("action", action),
		otellog.String("resource", resource),
	)
	if userID != "" {
		rec.AddAttributes(otellog.String("user_id", userID))
	}
	if ip != "" {
		rec.AddAttributes(otellog.String("client_ip", ip))
	}
	if metadata != "" {
		rec.AddAttributes(otellog.String("metadata", metadata))
	}
	e.logger.Emit(ctx, rec)
}

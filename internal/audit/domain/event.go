package domain

import "time"

// Actions recorded by the audit log.
const (
	ActionLogin          = "login"
	ActionLoginFailure   = "login_failure"
	ActionLogout         = "logout"
	ActionRefresh        = "refresh"
	ActionRefreshReuse   = "refresh_reuse"
	ActionSessionRevoked = "session_revoked"
	ActionRateLimited    = "rate_limited"
)

// Event represents one security-relevant occurrence.
type Event struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

package domain

import "time"

// Session represents one authenticated device or browser instance. The
// opaque Token is the session cookie value; RefreshJti and RefreshTokenHash
// track the session's currently valid refresh token for rotation.
type Session struct {
	ID               string
	UserID           string
	Token            string
	UserAgent        string
	IPAddress        string
	RefreshJti       string // jti of the current refresh token; rotated on every refresh
	RefreshTokenHash string // SHA-256 hash of the current refresh token
	IsActive         bool
	CreatedAt        time.Time
	ExpiresAt        time.Time
	LastSeenAt       *time.Time
}

// Live reports whether the session is usable at now: active and not expired.
func (s *Session) Live(now time.Time) bool {
	return s != nil && s.IsActive && s.ExpiresAt.After(now)
}

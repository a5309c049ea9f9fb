// Package ratelimit implements a sliding-window-log limiter. Each key holds
// the timestamps of its recent requests; a request is admitted when fewer
// than the rule's limit fall inside the trailing window. Exact, not an
// approximation: a burst can never exceed the limit within any window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// retention is how long a key's log is kept after its last request before
// the cleanup pass drops it.
const retention = time.Hour

// Limiter tracks request timestamps per key. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewLimiter returns an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records a request under key and reports whether it fits the rule.
// When denied, retryAfter is how long until the oldest in-window request
// ages out and a retry could succeed. Denied requests are not recorded.
func (l *Limiter) Allow(key string, rule Rule) (allowed bool, retryAfter time.Duration) {
	now := l.now()
	cutoff := now.Add(-rule.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.windows[key]
	// Drop entries that fell out of the window.
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i > 0 {
		log = append(log[:0], log[i:]...)
	}

	if len(log) >= rule.Limit {
		l.windows[key] = log
		retryAfter = log[0].Add(rule.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter
	}

	l.windows[key] = append(log, now)
	return true, 0
}

// Cleanup drops keys whose newest entry is older than the retention horizon.
func (l *Limiter) Cleanup() {
	horizon := l.now().Add(-retention)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, log := range l.windows {
		if len(log) == 0 || log[len(log)-1].Before(horizon) {
			delete(l.windows, key)
		}
	}
}

// Run runs Cleanup every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Len returns the number of tracked keys. Used by tests and metrics.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

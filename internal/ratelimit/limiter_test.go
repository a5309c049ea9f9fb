package ratelimit

import (
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseRule(t *testing.T) {
	cases := []struct {
		in     string
		limit  int
		window time.Duration
		ok     bool
	}{
		{"5 per minute", 5, time.Minute, true},
		{"1000 per hour", 1000, time.Hour, true},
		{"1 per second", 1, time.Second, true},
		{"10 per day", 10, 24 * time.Hour, true},
		{"  3 PER Minute ", 3, time.Minute, true},
		{"0 per minute", 0, 0, false},
		{"-1 per minute", 0, 0, false},
		{"five per minute", 0, 0, false},
		{"5 per fortnight", 0, 0, false},
		{"5 minute", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		rule, err := ParseRule(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseRule(%q): unexpected err %v", tc.in, err)
		}
		if tc.ok && (rule.Limit != tc.limit || rule.Window != tc.window) {
			t.Fatalf("ParseRule(%q) = %+v", tc.in, rule)
		}
	}
}

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter()
	rule := Rule{Limit: 5, Window: time.Minute}

	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow("k", rule); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow("k", rule)
	if ok {
		t.Fatal("sixth request should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter out of range: %v", retryAfter)
	}
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter()
	base := time.Now()
	clock := base
	l.now = func() time.Time { return clock }

	rule := Rule{Limit: 2, Window: time.Minute}
	if ok, _ := l.Allow("k", rule); !ok {
		t.Fatal("first request should be allowed")
	}
	clock = base.Add(30 * time.Second)
	if ok, _ := l.Allow("k", rule); !ok {
		t.Fatal("second request should be allowed")
	}
	clock = base.Add(45 * time.Second)
	ok, retryAfter := l.Allow("k", rule)
	if ok {
		t.Fatal("third request inside the window should be denied")
	}
	// Oldest entry is at base; it ages out at base+60s.
	if want := 15 * time.Second; retryAfter != want {
		t.Fatalf("retryAfter = %v, want %v", retryAfter, want)
	}
	// After the oldest entry ages out there is room again.
	clock = base.Add(61 * time.Second)
	if ok, _ := l.Allow("k", rule); !ok {
		t.Fatal("request after window slid should be allowed")
	}
}

func TestDeniedRequestsNotRecorded(t *testing.T) {
	l := NewLimiter()
	base := time.Now()
	clock := base
	l.now = func() time.Time { return clock }

	rule := Rule{Limit: 1, Window: time.Minute}
	l.Allow("k", rule)
	// Hammer while denied; these must not extend the lockout.
	for i := 0; i < 50; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		l.Allow("k", rule)
	}
	clock = base.Add(61 * time.Second)
	if ok, _ := l.Allow("k", rule); !ok {
		t.Fatal("denied requests must not count against the window")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewLimiter()
	rule := Rule{Limit: 1, Window: time.Minute}

	if ok, _ := l.Allow("user:a:/login", rule); !ok {
		t.Fatal("first key should be allowed")
	}
	if ok, _ := l.Allow("user:b:/login", rule); !ok {
		t.Fatal("second key should be allowed")
	}
	if ok, _ := l.Allow("user:a:/register", rule); !ok {
		t.Fatal("same user on another route should be allowed")
	}
	if ok, _ := l.Allow("user:a:/login", rule); ok {
		t.Fatal("repeat on a full key should be denied")
	}
}

func TestConcurrentAllowGrantsExactlyLimit(t *testing.T) {
	l := NewLimiter()
	rule := Rule{Limit: 10, Window: time.Minute}

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("k", rule); ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := granted.Load(); got != 10 {
		t.Fatalf("expected exactly 10 grants, got %d", got)
	}
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	l := NewLimiter()
	base := time.Now()
	clock := base
	l.now = func() time.Time { return clock }

	rule := Rule{Limit: 5, Window: time.Minute}
	l.Allow("idle", rule)
	clock = base.Add(59 * time.Minute)
	l.Allow("fresh", rule)

	clock = base.Add(61 * time.Minute)
	l.Cleanup()

	if l.Len() != 1 {
		t.Fatalf("expected 1 key after cleanup, got %d", l.Len())
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:4242"
	if got := ClientIP(r); got != "10.0.0.1" {
		t.Fatalf("peer fallback = %q", got)
	}

	r.Header.Set("X-Real-IP", "172.16.0.9")
	if got := ClientIP(r); got != "172.16.0.9" {
		t.Fatalf("X-Real-IP = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 172.16.0.9")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Fatalf("X-Forwarded-For = %q", got)
	}
}

package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client address for rate-limit keying: the first
// entry of X-Forwarded-For, then X-Real-IP, then the connection's peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserKey keys the limiter by authenticated user and route.
func UserKey(userID, route string) string {
	return "user:" + userID + ":" + route
}

// IPKey keys the limiter by client address and route.
func IPKey(ip, route string) string {
	return "ip:" + ip + ":" + route
}

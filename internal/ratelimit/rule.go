package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rule is a request budget over a sliding window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// ParseRule parses rules of the form "<count> per <unit>", e.g. "5 per minute".
// Units: second, minute, hour, day.
func ParseRule(s string) (Rule, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) != 3 || fields[1] != "per" {
		return Rule{}, fmt.Errorf("ratelimit: invalid rule %q", s)
	}
	limit, err := strconv.Atoi(fields[0])
	if err != nil || limit <= 0 {
		return Rule{}, fmt.Errorf("ratelimit: invalid count in rule %q", s)
	}
	var window time.Duration
	switch fields[2] {
	case "second":
		window = time.Second
	case "minute":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		return Rule{}, fmt.Errorf("ratelimit: invalid unit in rule %q", s)
	}
	return Rule{Limit: limit, Window: window}, nil
}

// MustParseRule is ParseRule that panics on error. For default rule constants.
func MustParseRule(s string) Rule {
	r, err := ParseRule(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Package ratelimit provides token-bucket request limiting keyed by client
// identity, backed by redis when available and process memory otherwise.
package ratelimit

import (
	"context"
	"strconv"
	"time"
)

// Rule describes how many requests a key may make per window.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// refillInterval is the time it takes to earn back a single request.
func (r Rule) refillInterval() time.Duration {
	if r.Limit <= 0 {
		return r.Window
	}
	return r.Window / time.Duration(r.Limit)
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the next request for key is allowed under rule.
type Limiter interface {
	Allow(ctx context.Context, rule Rule, key string) (Decision, error)
}

// RetryAfterSeconds rounds d up to whole seconds for the Retry-After header.
func RetryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory. It is used
// when no redis is configured, so limits are per instance.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, rule Rule, key string) (Decision, error) {
	now := m.now()
	interval := rule.refillInterval()

	m.mu.Lock()
	defer m.mu.Unlock()

	id := rule.Name + ":" + key
	entry, ok := m.entries[id]
	if !ok {
		m.prune(now, rule.Window)
		entry = &memoryEntry{limiter: rate.NewLimiter(rate.Every(interval), rule.Limit)}
		m.entries[id] = entry
	}
	entry.lastSeen = now

	d := Decision{Limit: rule.Limit}
	if entry.limiter.AllowN(now, 1) {
		d.Allowed = true
		d.Remaining = int(math.Floor(entry.limiter.TokensAt(now)))
		return d, nil
	}

	missing := 1 - entry.limiter.TokensAt(now)
	d.RetryAfter = time.Duration(math.Ceil(missing * float64(interval)))
	return d, nil
}

// prune drops buckets idle for longer than a full window; they would be full again anyway.
func (m *MemoryLimiter) prune(now time.Time, window time.Duration) {
	if len(m.entries) < 1024 {
		return
	}
	for id, e := range m.entries {
		if now.Sub(e.lastSeen) > window {
			delete(m.entries, id)
		}
	}
}

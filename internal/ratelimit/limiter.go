// Package ratelimit provides fixed-window request limiting keyed by client.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"grimm.is/firegate/internal/clock"
)

// Limiter allows up to limit requests per key within each interval.
// A limit of zero or less disables limiting.
type Limiter struct {
	limit    int
	interval time.Duration
	clock    clock.Clock

	mu      sync.Mutex
	buckets map[string]*bucket
}

// bucket implements a fixed-window token bucket
type bucket struct {
	tokens   int
	lastFill time.Time
}

// NewLimiter creates a limiter. interval <= 0 means one minute.
func NewLimiter(limit int, interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Limiter{
		limit:    limit,
		interval: interval,
		clock:    clock.Default,
		buckets:  make(map[string]*bucket),
	}
}

// SetClock replaces the time source (tests).
func (l *Limiter) SetClock(c clock.Clock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock.OrReal(c)
}

// Enabled reports whether the limiter restricts anything.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limit > 0
}

// Allow checks if a request for the given key is allowed and consumes a
// token when it is.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{tokens: l.limit, lastFill: now}
		l.buckets[key] = b
	}

	if now.Sub(b.lastFill) >= l.interval {
		b.tokens = l.limit
		b.lastFill = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Reset clears the rate limit for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// CleanupExpired removes buckets whose window ended more than maxAge ago.
func (l *Limiter) CleanupExpired(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for key, b := range l.buckets {
		if now.Sub(b.lastFill) > maxAge {
			delete(l.buckets, key)
		}
	}
}

// RunCleanup prunes idle buckets every interval until ctx is cancelled.
func (l *Limiter) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.CleanupExpired(maxAge)
		}
	}
}

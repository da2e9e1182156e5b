// Package ratelimit implements a fixed-window request limiter keyed by
// client identity.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultWindow is the counting window applied when none is configured.
const DefaultWindow = 60 * time.Second

// Limiter admits up to Max calls per key per fixed window.
//
// The counter map is the only long-lived shared mutable state in the engine
// core, so it is guarded by a single mutex: increments must not be lost
// under concurrent calls. Expired windows are evicted opportunistically on
// Allow calls rather than by a dedicated timer, which bounds memory under
// high key cardinality without background goroutines.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time

	// sweepEvery controls how often the opportunistic eviction pass runs,
	// counted in Allow calls.
	sweepEvery int
	calls      int
}

type bucket struct {
	start time.Time
	count int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the window length. Useful for tests.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithClock overrides the time source. Useful for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter admitting max calls per key per window.
func New(max int, opts ...Option) *Limiter {
	l := &Limiter{
		max:        max,
		window:     DefaultWindow,
		buckets:    make(map[string]*bucket),
		now:        time.Now,
		sweepEvery: 256,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether the call identified by key is admitted, counting it
// if so. Counting restarts when the key's window has rolled over.
// Independent keys never affect each other.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.calls++
	if l.calls >= l.sweepEvery {
		l.calls = 0
		l.evictLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		l.buckets[key] = &bucket{start: now, count: 1}
		return true
	}

	if b.count >= l.max {
		return false
	}
	b.count++
	return true
}

// Remaining returns how many calls the key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || l.now().Sub(b.start) >= l.window {
		return l.max
	}
	if b.count >= l.max {
		return 0
	}
	return l.max - b.count
}

// evictLocked drops windows older than the window length.
// Caller holds l.mu.
func (l *Limiter) evictLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, key)
		}
	}
}

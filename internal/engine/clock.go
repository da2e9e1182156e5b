package engine

import (
	"sync"
	"time"
)

// Clock is the engine's timestamp source. createdAt/updatedAt come from
// here and only here - they are never client-writable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a programmable sequence of instants for tests.
//
// Each call to Now advances by the configured step, so successive writes get
// distinct, ordered timestamps without sleeping.
type FixedClock struct {
	mu   sync.Mutex
	at   time.Time
	step time.Duration
}

// NewFixedClock creates a clock starting at the given instant, advancing by
// step on every Now call.
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{at: start, step: step}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.at
	c.at = c.at.Add(c.step)
	return now
}

// timestamp formats an instant the way documents store it: RFC 3339 with
// millisecond precision, UTC.
func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

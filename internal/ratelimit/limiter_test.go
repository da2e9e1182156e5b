package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(max int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(max, WithWindow(window), WithClock(clock.now)), clock
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client-a"), "call %d should be admitted", i)
	}
	assert.False(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
}

func TestWindowRollover(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)

	require.True(t, l.Allow("k"))
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	// One second short of the boundary: still the same window.
	clock.advance(59 * time.Second)
	assert.False(t, l.Allow("k"))

	clock.advance(time.Second)
	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("b"))
}

func TestRemaining(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	assert.Equal(t, 3, l.Remaining("k"))
	l.Allow("k")
	assert.Equal(t, 2, l.Remaining("k"))
	l.Allow("k")
	l.Allow("k")
	assert.Equal(t, 0, l.Remaining("k"))

	// Denied calls do not go below zero.
	l.Allow("k")
	assert.Equal(t, 0, l.Remaining("k"))

	clock.advance(time.Minute)
	assert.Equal(t, 3, l.Remaining("k"))
}

func TestEvictionDropsExpiredWindows(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)
	l.sweepEvery = 10

	for i := 0; i < 5; i++ {
		l.Allow("stale")
	}
	clock.advance(2 * time.Minute)

	// Enough calls on another key to trigger the sweep.
	for i := 0; i < 10; i++ {
		l.Allow("fresh")
	}

	l.mu.Lock()
	_, staleKept := l.buckets["stale"]
	l.mu.Unlock()
	assert.False(t, staleKept)
}

func TestConcurrentAllow(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)

	done := make(chan int)
	for g := 0; g < 4; g++ {
		go func() {
			admitted := 0
			for i := 0; i < 50; i++ {
				if l.Allow("shared") {
					admitted++
				}
			}
			done <- admitted
		}()
	}

	total := 0
	for g := 0; g < 4; g++ {
		total += <-done
	}
	// 200 attempts against a limit of 100: exactly 100 admitted.
	assert.Equal(t, 100, total)
}

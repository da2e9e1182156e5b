// Package events implements the pattern-matched pub/sub bus for mutation
// events.
//
// The bus is how document mutations become observable to downstream
// consumers (analytics, cache invalidation, seed bookkeeping) without the
// engine knowing any of them. Emission is synchronous and in subscription
// order; the bus does not catch handler panics or swallow handler effects -
// fire-and-forget consumers contain their own failures.
package events

import (
	"strings"
	"sync"
	"time"
)

// EventKind names the lifecycle point that produced an event.
type EventKind string

const (
	AfterChange EventKind = "afterChange"
	AfterDelete EventKind = "afterDelete"
)

// Event is one committed mutation, immutable once emitted.
type Event struct {
	Collection string
	Kind       EventKind
	Operation  string // create | update | delete
	Doc        map[string]any
	Timestamp  time.Time
}

// Handler consumes events. Handlers run synchronously on the emitter's
// goroutine and must contain their own failures.
type Handler func(Event)

// Bus is a pattern-matched event bus.
//
// Patterns take the form "collection:kind" with "*" as a wildcard on either
// side, or the bare "*" for everything. Examples:
//
//	"*"                  every event
//	"posts:*"            every event on the posts collection
//	"*:afterDelete"      every delete, any collection
//	"posts:afterChange"  exactly that pair
//
// Anything else - no separator, extra separators - matches nothing,
// silently. Matching is exact literal comparison on each side; there is no
// prefix or glob expansion.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscription
	next int
}

type subscription struct {
	id      int
	pattern string
	handler Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// On subscribes handler to events matching pattern and returns an
// unsubscribe function. Handlers fire in subscription order.
func (b *Bus) On(pattern string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{id: b.next, pattern: pattern, handler: handler}
	b.next++
	b.subs = append(b.subs, sub)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == sub.id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit synchronously invokes every matching handler in subscription order.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if matchPattern(sub.pattern, ev) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	// Handlers run outside the lock so a handler may subscribe or
	// unsubscribe without deadlocking.
	for _, h := range matched {
		h(ev)
	}
}

// Clear drops every subscription. Used on plugin shutdown.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}

// matchPattern reports whether pattern matches the event.
//
// "*" matches everything. Otherwise the pattern must split into exactly two
// sides on ":"; each side matches by literal equality or "*". A malformed
// pattern matches nothing.
func matchPattern(pattern string, ev Event) bool {
	if pattern == "*" {
		return true
	}

	parts := strings.Split(pattern, ":")
	if len(parts) != 2 {
		return false
	}

	if parts[0] != "*" && parts[0] != ev.Collection {
		return false
	}
	if parts[1] != "*" && parts[1] != string(ev.Kind) {
		return false
	}
	return true
}

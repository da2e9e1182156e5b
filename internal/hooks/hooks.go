// Package hooks implements the ordered mutation-lifecycle pipelines.
//
// Each lifecycle point holds a slice of callbacks that run strictly in
// declaration order, never in parallel. beforeChange is a fold: each callback
// receives the previous one's output, so cooperating plugins can enrich the
// same payload. after* callbacks run for effect; their order is still the
// declaration order because side effects must be predictable.
//
// A callback error aborts the remaining pipeline and propagates to the
// caller as an operation failure. Consumers that must not fail the operation
// (event bus subscribers) hang off the bus instead of these pipelines.
package hooks

import (
	"context"
	"fmt"

	"github.com/roach88/momentum/internal/access"
)

// Args carries the mutation context into every hook.
type Args struct {
	// Collection is the slug of the collection being mutated.
	Collection string

	// Operation is the mutation kind: create, update, or delete.
	Operation access.Operation

	// Doc is the document after the mutation (nil for afterDelete; for
	// beforeChange it is the incoming payload).
	Doc map[string]any

	// Previous is the stored document before the mutation (nil on create).
	Previous map[string]any

	// User is the requesting identity, nil for unauthenticated callers.
	User *access.User
}

// BeforeChange transforms a mutation payload before it reaches storage.
// Returning a new map replaces the payload for the next hook in line.
type BeforeChange func(ctx context.Context, args Args) (map[string]any, error)

// AfterChange observes a committed create or update.
type AfterChange func(ctx context.Context, args Args) error

// AfterDelete observes a committed delete. Args.Previous holds the removed
// document.
type AfterDelete func(ctx context.Context, args Args) error

// AfterRead may reshape a document after storage read, before access-scoped
// output filtering. Used for computed fields.
type AfterRead func(ctx context.Context, args Args) (map[string]any, error)

// Hooks is the full set of pipelines a collection (or global) declares.
type Hooks struct {
	BeforeChange []BeforeChange
	AfterChange  []AfterChange
	AfterDelete  []AfterDelete
	AfterRead    []AfterRead
}

// RunBeforeChange folds the payload through every beforeChange hook in
// declaration order. Each hook sees the previous hook's output. A hook may
// return nil to keep the payload unchanged.
func RunBeforeChange(ctx context.Context, chain []BeforeChange, args Args) (map[string]any, error) {
	doc := args.Doc
	for i, hook := range chain {
		args.Doc = doc
		out, err := hook(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("beforeChange hook %d: %w", i, err)
		}
		if out != nil {
			doc = out
		}
	}
	return doc, nil
}

// RunAfterChange runs every afterChange hook in declaration order.
// The first error aborts the rest and propagates.
func RunAfterChange(ctx context.Context, chain []AfterChange, args Args) error {
	for i, hook := range chain {
		if err := hook(ctx, args); err != nil {
			return fmt.Errorf("afterChange hook %d: %w", i, err)
		}
	}
	return nil
}

// RunAfterDelete runs every afterDelete hook in declaration order.
func RunAfterDelete(ctx context.Context, chain []AfterDelete, args Args) error {
	for i, hook := range chain {
		if err := hook(ctx, args); err != nil {
			return fmt.Errorf("afterDelete hook %d: %w", i, err)
		}
	}
	return nil
}

// RunAfterRead folds a stored document through every afterRead hook.
// Like beforeChange, each hook sees the previous hook's output.
func RunAfterRead(ctx context.Context, chain []AfterRead, args Args) (map[string]any, error) {
	doc := args.Doc
	for i, hook := range chain {
		args.Doc = doc
		out, err := hook(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("afterRead hook %d: %w", i, err)
		}
		if out != nil {
			doc = out
		}
	}
	return doc, nil
}

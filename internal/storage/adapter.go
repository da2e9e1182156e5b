// Package storage defines the contract every storage backend implements,
// plus an in-memory adapter used by tests and by deployments that do not
// need durability.
//
// The adapter is the engine's only point of truth for persistence and for
// transactional guarantees. The engine never reaches around it; multi-step
// operations (publish-and-demote) are atomic only to the extent the adapter
// makes them so.
package storage

import (
	"context"

	"github.com/roach88/momentum/internal/query"
)

// Document is an opaque key-value record with a stable "id". The engine
// stamps "createdAt"/"updatedAt"; adapters treat the payload as opaque
// beyond the id.
type Document = map[string]any

// Adapter is the contract every backend must implement.
//
// Ordering contract: Find returns documents in a stable order (insertion
// order for the memory adapter, created_at then id for SQL adapters) so
// pagination is deterministic across calls.
//
// Absence contract: FindByID and FindGlobal return (nil, nil) for a missing
// record - absence is a result, not an error. Errors are reserved for the
// backend failing.
type Adapter interface {
	// Find returns every document in the collection matching the filter.
	// A nil filter matches all.
	Find(ctx context.Context, collection string, where query.Where) ([]Document, error)

	// FindByID returns the document or (nil, nil) when absent.
	FindByID(ctx context.Context, collection, id string) (Document, error)

	// Create persists a new document. The payload already carries its id
	// and timestamps; the adapter stores it as given.
	Create(ctx context.Context, collection string, data Document) (Document, error)

	// Update merges the patch into the stored document and returns the
	// merged result, or (nil, nil) when the id is absent.
	Update(ctx context.Context, collection, id string, data Document) (Document, error)

	// Delete removes the document, reporting whether it existed.
	Delete(ctx context.Context, collection, id string) (bool, error)

	// FindGlobal returns the singleton for slug, or (nil, nil) when it has
	// never been written.
	FindGlobal(ctx context.Context, slug string) (Document, error)

	// UpdateGlobal upserts the singleton for slug and returns the merged
	// result.
	UpdateGlobal(ctx context.Context, slug string, data Document) (Document, error)
}

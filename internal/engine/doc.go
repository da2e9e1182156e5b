// Package engine implements the Momentum document engine.
//
// The engine is the CRUD orchestrator underneath the declarative collection
// layer: it resolves a collection by slug, authorizes the operation, runs
// the hook pipelines, validates the payload, delegates persistence to the
// storage adapter, and fans the resulting event out on the bus.
//
// Scoping model:
//
// A collection may declare a defaultWhere - an implicit, context-dependent
// filter. It is intersected with every find, findById, update, and delete.
// The update/delete half is the part that is easy to get wrong: a permitted
// user whose scope excludes a document must see NotFound, exactly as if the
// document did not exist. Authorization is necessary but not sufficient.
//
// Identity model:
//
// The engine holds no per-request state. WithContext returns a copy bound
// to a requesting identity; the shared instance is never mutated, so
// concurrent requests under different identities need no locking here. The
// storage adapter is the only transactional boundary.
package engine

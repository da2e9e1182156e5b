// Package query defines the filter IR shared by the engine and storage
// adapters.
//
// A Where value is a tree of predicates over document fields. The engine uses
// it in two roles: the caller's explicit filter on find operations, and the
// collection's defaultWhere scoping filter, which is intersected with every
// read, update, and delete. Adapters that can push predicates down to their
// backend may do so; adapters that cannot rely on Matches for engine-side
// evaluation, so both paths must agree.
//
// The Where and Predicate interfaces are sealed: only types in this package
// implement them, which keeps type switches in adapters exhaustive.
package query

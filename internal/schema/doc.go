// Package schema holds the declarative data model for Momentum.
//
// A Collection declares a document type: its fields, access rules, hook
// pipelines, and optional version settings. A Global declares a singleton
// document type outside the collection namespace. Both are built at
// configuration load time and treated as immutable once the engine starts
// serving requests; the only sanctioned mutation window is plugin
// initialization, which may append fields and hooks before the first request.
//
// Validation here covers shape only (slug format, field uniqueness, per-type
// requirements). Runtime payload validation against these declarations lives
// in the engine package.
package schema

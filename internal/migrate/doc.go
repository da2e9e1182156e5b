// Package migrate computes schema diffs between declared collections and a
// live database, and generates reversible migration source files from them.
//
// The pipeline has three stages, kept separate on purpose:
//
//  1. Mapping: each collection becomes a declared Table via a total
//     field-type -> column-type function per dialect.
//  2. Diffing: declared tables against the introspected live schema,
//     producing an ordered list of dialect-agnostic operations. Column
//     types are normalized first so cosmetic dialect spellings
//     ("character varying(255)" vs "VARCHAR(255)") never produce spurious
//     operations.
//  3. Generation: the operations become a Go source file with Meta, Up, and
//     Down. Down executes the reverse of each operation in reverse order,
//     so up-then-down always returns the schema to its starting point.
//
// Dialect gaps degrade rather than fail: SQLite cannot alter a column type
// in place, so that operation renders as an explanatory comment in the
// generated file.
package migrate

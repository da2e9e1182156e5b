// Package seed implements idempotent declarative data seeding.
//
// A seed is a document that should exist after first run, identified by a
// stable seedId. The tracker records which document each seedId produced and
// a checksum of the input data that produced it. Re-running the seed list
// any number of times converges to the same document set: unchanged seeds
// are no-ops, changed seeds update their tracked document in place, and no
// run ever creates a duplicate.
//
// Checksums are computed over a canonical JSON form (sorted keys, NFC
// normalized strings, no HTML escaping, minimal number formatting) so
// semantically identical inputs always hash identically, regardless of map
// iteration order or Unicode representation.
package seed

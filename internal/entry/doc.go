// Package entry provides the news/patch-notes record model and the pure
// rules applied to it.
//
// The entry package turns loosely-typed extraction candidates into complete
// entries (Normalize), routes them to a category by title keywords (Classify)
// and merges them into an ordered bucket keyed by link (Bucket.Merge). After
// every run a bucket is re-sorted by date and exactly one entry is flagged as
// the latest (Bucket.Finalize).
package entry

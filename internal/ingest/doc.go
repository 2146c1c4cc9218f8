// Package ingest runs the news pipeline end to end.
//
// A run loads both buckets, fetches the listing, fetches each article's
// detail page with a politeness delay between requests, normalizes and
// classifies every candidate, merges it into its bucket and finally
// re-sorts both buckets before they are saved. A listing failure or a
// corrupt bucket aborts the run before anything is written; per-record
// problems only skip or degrade that record.
//
// The event-timer snapshot is synced separately (SyncEvents) and never
// fails the process.
package ingest

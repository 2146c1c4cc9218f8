// Package storage provides JSON file persistence for entry buckets and the
// event-timer snapshot.
//
// Each bucket lives in its own file (news.json and patches.json by default)
// as a JSON array of entry objects. Files are validated against an embedded
// JSON Schema when loaded and replaced atomically when saved, so a reader
// never observes a half-written file. The event snapshot (events.json) is
// stored verbatim.
package storage

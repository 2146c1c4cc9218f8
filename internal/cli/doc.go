// Package cli implements the command-line interface for arcfeed.
//
// The cli package provides the Cobra-based CLI: sync (news then events),
// news, events, list and serve. It loads configuration, wires the scraper,
// storage, event feed, notifier and ingest packages together and renders
// run reports and entry listings as text or JSON.
package cli

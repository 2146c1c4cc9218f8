package ingest

import (
	"context"

	"github.com/k2fort/arcfeed/internal/eventfeed"
	"github.com/k2fort/arcfeed/internal/logger"
)

// EventSource fetches the event-timer payload
type EventSource interface {
	Sync(ctx context.Context) (*eventfeed.Result, error)
}

// EventStore persists the event-timer payload
type EventStore interface {
	SaveEvents(payload []byte) error
}

// SyncEvents mirrors the event feed into store. The previous snapshot is
// kept whenever the fetch is not a recognized success. The returned error
// is informational and must not fail the process.
func SyncEvents(ctx context.Context, source EventSource, store EventStore, log *logger.Logger) (*eventfeed.Result, error) {
	if log == nil {
		log = logger.Default()
	}

	result, err := source.Sync(ctx)
	if err != nil {
		log.WarnErr("Event feed unavailable, keeping previous snapshot", logger.Fields{"stage": "events"}, err)
		return nil, err
	}

	if err := store.SaveEvents(result.Bytes); err != nil {
		log.Error("Saving event snapshot failed", logger.Fields{"stage": "events"}, err)
		return nil, err
	}

	fields := logger.Fields{"stage": "events", "bytes": len(result.Bytes)}
	if result.HasItems {
		fields["items"] = result.Items
	}
	log.Info("Event snapshot saved", fields)

	return result, nil
}

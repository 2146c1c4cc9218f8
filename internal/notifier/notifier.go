package notifier

import (
	"context"

	"github.com/k2fort/arcfeed/internal/entry"
)

// Announcement is one newly inserted entry and the bucket it landed in
type Announcement struct {
	Category entry.Category `json:"category"`
	Entry    *entry.Entry   `json:"entry"`
}

// Notifier defines the interface for posting new-entry notifications
type Notifier interface {
	// Notify posts one notification per announcement
	Notify(ctx context.Context, announcements []Announcement) error
}

// Nop discards every announcement
type Nop struct{}

// Notify implements Notifier
func (Nop) Notify(context.Context, []Announcement) error {
	return nil
}

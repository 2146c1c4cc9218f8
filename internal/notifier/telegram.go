package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/k2fort/arcfeed/internal/entry"
	"github.com/k2fort/arcfeed/internal/logger"
	"github.com/k2fort/arcfeed/internal/telegram"
)

// DefaultMaxMessages caps per-entry messages in one run. Larger batches,
// such as the first run against an empty data dir, get a single summary.
const DefaultMaxMessages = 10

// Sender is the part of the Telegram client the notifier needs
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramNotifier posts one message per announcement
type TelegramNotifier struct {
	sender Sender
	// gap between consecutive messages, keeps under the Bot API rate limit
	gap         time.Duration
	maxMessages int
	metrics     *logger.Metrics
}

// Option customizes a TelegramNotifier
type Option func(*TelegramNotifier)

// WithMetrics records notifications_sent and notifications_failed on m
func WithMetrics(m *logger.Metrics) Option {
	return func(n *TelegramNotifier) {
		n.metrics = m
	}
}

// NewTelegramNotifier creates a notifier for the given bot credentials
func NewTelegramNotifier(botToken, chatID string, opts ...Option) (*TelegramNotifier, error) {
	client, err := telegram.NewClient(botToken, chatID)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}
	return NewTelegramNotifierWithSender(client, time.Second, opts...), nil
}

// NewTelegramNotifierWithSender wires an arbitrary sender
func NewTelegramNotifierWithSender(sender Sender, gap time.Duration, opts ...Option) *TelegramNotifier {
	n := &TelegramNotifier{
		sender:      sender,
		gap:         gap,
		maxMessages: DefaultMaxMessages,
		metrics:     logger.NewMetrics(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SetMaxMessages changes the per-entry message cap. Zero or less disables it.
func (n *TelegramNotifier) SetMaxMessages(limit int) {
	n.maxMessages = limit
}

// Notify sends every announcement, continuing past individual failures.
// The returned error joins all send failures.
func (n *TelegramNotifier) Notify(ctx context.Context, announcements []Announcement) error {
	if n.maxMessages > 0 && len(announcements) > n.maxMessages {
		counts := make(map[entry.Category]int)
		for _, a := range announcements {
			counts[a.Category]++
		}
		if err := n.sender.SendMessage(ctx, telegram.FormatSummary(counts)); err != nil {
			return fmt.Errorf("sending summary: %w", err)
		}
		n.metrics.IncrCounter("notifications_sent")
		return nil
	}

	var errs []error

	for i, a := range announcements {
		if i > 0 && n.gap > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(append(errs, ctx.Err())...)
			case <-time.After(n.gap):
			}
		}

		if err := n.sender.SendMessage(ctx, telegram.FormatEntry(a.Category, a.Entry)); err != nil {
			logger.WarnErr("Failed to send notification", logger.Fields{
				"stage": "notify",
				"link":  a.Entry.Link,
			}, err)
			n.metrics.IncrCounter("notifications_failed")
			errs = append(errs, fmt.Errorf("notifying %s: %w", a.Entry.Link, err))
			continue
		}
		n.metrics.IncrCounter("notifications_sent")
	}

	return errors.Join(errs...)
}

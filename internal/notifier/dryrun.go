package notifier

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/k2fort/arcfeed/internal/telegram"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to out, stdout when nil
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Notify prints the messages that would be posted
func (n *DryRunNotifier) Notify(_ context.Context, announcements []Announcement) error {
	for i, a := range announcements {
		msg := telegram.FormatEntry(a.Category, a.Entry)
		fmt.Fprintf(n.out, "--- Message %d/%d ---\n", i+1, len(announcements))
		fmt.Fprintln(n.out, msg)
		fmt.Fprintf(n.out, "\n(Length: %d characters)\n\n", len([]rune(msg)))
	}
	return nil
}

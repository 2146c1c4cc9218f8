package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/k2fort/arcfeed/internal/entry"
)

// FormatEntry formats a single new entry as a Telegram HTML message
func FormatEntry(category entry.Category, e *entry.Entry) string {
	var msg strings.Builder

	if category == entry.CategoryPatches {
		msg.WriteString("🛠 <b>New ARC Raiders patch notes</b>\n\n")
	} else {
		msg.WriteString("📰 <b>New ARC Raiders news</b>\n\n")
	}

	msg.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(e.Title)))
	if e.Date != "" {
		msg.WriteString(fmt.Sprintf("📅 %s\n", e.Date))
	}
	if e.Summary != "" && e.Summary != e.Title {
		msg.WriteString(fmt.Sprintf("\n%s\n", html.EscapeString(e.Summary)))
	}
	if e.Link != "" {
		msg.WriteString(fmt.Sprintf("\n🔗 <a href=\"%s\">Read more</a>\n", html.EscapeString(e.Link)))
	}

	msg.WriteString(fmt.Sprintf("\n#ARCRaiders #%s", category))

	return msg.String()
}

// FormatSummary formats a one-line roll-up of a run's new entries
func FormatSummary(counts map[entry.Category]int) string {
	total := 0
	parts := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if n := counts[cat]; n > 0 {
			total += n
			parts = append(parts, fmt.Sprintf("%d %s", n, cat))
		}
	}
	if total == 0 {
		return "No new ARC Raiders entries."
	}
	return fmt.Sprintf("📣 <b>%d new ARC Raiders entries</b> (%s)", total, strings.Join(parts, ", "))
}

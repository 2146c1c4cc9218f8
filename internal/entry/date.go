package entry

import (
	"strings"
	"time"
)

// DateFormat is the persisted date layout
const DateFormat = "2006-01-02"

// DefaultDateLayouts are tried in order when a source does not configure its own.
// The first one is the human format used on the official news page ("January 5, 2026").
var DefaultDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	DateFormat,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate attempts to parse free-form date text against the given layouts.
// Returns time.Time{} (zero value) if no layout matches.
func ParseDate(dateText string, layouts []string) time.Time {
	dateText = strings.Join(strings.Fields(dateText), " ")
	if dateText == "" {
		return time.Time{}
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateText); err == nil {
			return t
		}
	}

	return time.Time{}
}

// NormalizeDate converts date text to YYYY-MM-DD, falling back to the
// processing date when the text is absent or unparseable.
// The second return value reports whether the fallback was used.
func NormalizeDate(dateText string, layouts []string, now time.Time) (string, bool) {
	parsed := ParseDate(dateText, layouts)
	if parsed.IsZero() {
		return now.Format(DateFormat), true
	}
	return parsed.Format(DateFormat), false
}

// Package filter narrows persisted entries for display.
//
// Filters combine, all criteria must match:
//   - Date range (since/until, inclusive, compared on the YYYY-MM-DD date)
//   - Keywords (case-insensitive substring of the title or summary, any keyword)
//   - Latest only (the entry flagged isLatest)
//
// A Limit caps the result after matching.
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.Keywords = []string{"hotfix"}
//	f.Limit = 5
//	recent := f.Apply(bucket.Entries)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/k2fort/arcfeed/internal/entry"
)

// Filter represents entry filtering criteria
type Filter struct {
	// Date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Title/summary filtering (case-insensitive substring match)
	Keywords []string `json:"keywords,omitempty"`

	// Only the entry flagged as latest
	LatestOnly bool `json:"latest_only,omitempty"`

	// Maximum number of entries returned, 0 for no limit
	Limit int `json:"limit,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all entries until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Keywords: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Keywords) == 0 &&
		!f.LatestOnly &&
		f.Limit == 0
}

// Matches checks if an entry matches all active filter criteria.
// Limit is not a matching criterion and is ignored here.
func (f *Filter) Matches(e *entry.Entry) bool {
	if f.LatestOnly && !e.IsLatest {
		return false
	}

	if f.DateFrom != nil && e.Date < f.DateFrom.Format(entry.DateFormat) {
		return false
	}

	if f.DateTo != nil && e.Date > f.DateTo.Format(entry.DateFormat) {
		return false
	}

	if len(f.Keywords) > 0 {
		matched := false
		haystack := strings.ToLower(e.Title + "\n" + e.Summary)
		for _, kw := range f.Keywords {
			if strings.Contains(haystack, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the matching entries in their original order, capped at Limit.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(entries []*entry.Entry) []*entry.Entry {
	if f.IsEmpty() {
		return entries
	}

	filtered := make([]*entry.Entry, 0, len(entries))
	for _, e := range entries {
		if !f.Matches(e) {
			continue
		}
		filtered = append(filtered, e)
		if f.Limit > 0 && len(filtered) == f.Limit {
			break
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Jan 2, 2026 | To: Jan 15, 2026 | Keywords: hotfix | Latest only | Limit: 5"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Keywords: %s", strings.Join(f.Keywords, ", ")))
	}

	if f.LatestOnly {
		parts = append(parts, "Latest only")
	}

	if f.Limit > 0 {
		parts = append(parts, fmt.Sprintf("Limit: %d", f.Limit))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		LatestOnly: f.LatestOnly,
		Limit:      f.Limit,
	}

	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}

	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}

	clone.Keywords = make([]string, len(f.Keywords))
	copy(clone.Keywords, f.Keywords)

	return clone
}

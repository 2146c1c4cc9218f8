package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/k2fort/arcfeed/internal/entry"
	"github.com/k2fort/arcfeed/internal/ingest"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// titleWidth is the display width of the title column in text listings
const titleWidth = 56

// ListedEntry is an entry together with its bucket
type ListedEntry struct {
	Category entry.Category `json:"category"`
	*entry.Entry
}

// ListResult contains the entries selected by the list command
type ListResult struct {
	Categories []entry.Category `json:"categories"`
	Filter     string           `json:"filter"`
	Count      int              `json:"count"`
	Entries    []ListedEntry    `json:"entries"`
}

// writeReport writes a run report in the specified format
func writeReport(w io.Writer, report *ingest.Report, format string) error {
	switch OutputFormat(strings.ToLower(format)) {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeReportText(w, report)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeList writes a listing in the specified format
func writeList(w io.Writer, result *ListResult, format OutputFormat, verbose bool) error {
	switch OutputFormat(strings.ToLower(string(format))) {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeListText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeReportText(w io.Writer, r *ingest.Report) error {
	fmt.Fprintf(w, "Listed %d, inserted %d, updated %d, unchanged %d, skipped %d",
		r.Listed, r.Inserted, r.Updated, r.Unchanged, r.Skipped)
	if r.SkippedKnown > 0 {
		fmt.Fprintf(w, ", known %d", r.SkippedKnown)
	}
	if r.Collapsed > 0 {
		fmt.Fprintf(w, ", collapsed %d", r.Collapsed)
	}
	if r.DetailFailures > 0 {
		fmt.Fprintf(w, ", detail failures %d", r.DetailFailures)
	}
	fmt.Fprintf(w, " (%s)\n", r.DurationText)

	cats := make([]string, 0, len(r.BucketSizes))
	for cat := range r.BucketSizes {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	for _, cat := range cats {
		fmt.Fprintf(w, "  %s: %d entries\n", cat, r.BucketSizes[entry.Category(cat)])
	}

	if len(r.NewEntries) == 0 {
		fmt.Fprintln(w, "No new entries found.")
		return nil
	}

	counts := r.NewCounts()
	fmt.Fprintf(w, "\nNew entries (%d news, %d patches):\n",
		counts[entry.CategoryNews], counts[entry.CategoryPatches])
	for _, a := range r.NewEntries {
		fmt.Fprintf(w, "  NEW (%s): %s  %s\n", a.Category, a.Entry.Date, a.Entry.Title)
	}
	return nil
}

// writeListText outputs entries as aligned columns: date, category, title, link
func writeListText(w io.Writer, result *ListResult, verbose bool) error {
	if result.Count == 0 {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}

	catWidth := 0
	for _, cat := range result.Categories {
		if n := runewidth.StringWidth(string(cat)); n > catWidth {
			catWidth = n
		}
	}

	for _, e := range result.Entries {
		marker := " "
		if e.IsLatest {
			marker = "*"
		}
		title := runewidth.Truncate(e.Title, titleWidth, "...")
		fmt.Fprintf(w, "%s %s  %s  %s  %s\n",
			marker,
			e.Date,
			runewidth.FillRight(string(e.Category), catWidth),
			runewidth.FillRight(title, titleWidth),
			e.Link,
		)
		if verbose && e.Summary != "" && e.Summary != e.Title {
			fmt.Fprintf(w, "      %s\n", e.Summary)
		}
	}

	if result.Filter != "" && result.Filter != "No active filters" {
		fmt.Fprintf(w, "\nFilter: %s\n", result.Filter)
	}
	fmt.Fprintf(w, "Total: %d entries (* latest)\n", result.Count)
	return nil
}

package ingest

import (
	"time"

	"github.com/k2fort/arcfeed/internal/entry"
	"github.com/k2fort/arcfeed/internal/notifier"
)

// Report summarizes one news run
type Report struct {
	Listed         int                     `json:"listed"`
	Inserted       int                     `json:"inserted"`
	Updated        int                     `json:"updated"`
	Unchanged      int                     `json:"unchanged"`
	Skipped        int                     `json:"skipped"`
	SkippedKnown   int                     `json:"skippedKnown"`
	KnownAtStart   int                     `json:"knownAtStart"`
	DetailFetches  int                     `json:"detailFetches"`
	DetailFailures int                     `json:"detailFailures"`
	Fallbacks      int                     `json:"fallbacks"`
	Collapsed      int                     `json:"collapsed"`
	BucketSizes    map[entry.Category]int  `json:"bucketSizes"`
	NewEntries     []notifier.Announcement `json:"newEntries"`
	Duration       time.Duration           `json:"-"`
	DurationText   string                  `json:"duration"`
}

func newReport() *Report {
	return &Report{
		BucketSizes: make(map[entry.Category]int),
		NewEntries:  []notifier.Announcement{},
	}
}

func (r *Report) record(category entry.Category, res entry.MergeResult) {
	switch res.Action {
	case entry.MergeInserted:
		r.Inserted++
		r.NewEntries = append(r.NewEntries, notifier.Announcement{Category: category, Entry: res.Entry})
	case entry.MergeUpdated:
		r.Updated++
	case entry.MergeUnchanged:
		r.Unchanged++
	}
}

// NewCounts returns the number of inserted entries per category
func (r *Report) NewCounts() map[entry.Category]int {
	counts := make(map[entry.Category]int)
	for _, a := range r.NewEntries {
		counts[a.Category]++
	}
	return counts
}

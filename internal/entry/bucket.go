package entry

import "sort"

// MergeAction describes what Merge did with an incoming entry
type MergeAction string

const (
	MergeInserted  MergeAction = "inserted"
	MergeUpdated   MergeAction = "updated"
	MergeUnchanged MergeAction = "unchanged"
)

// MergeResult reports the outcome of a single merge
type MergeResult struct {
	Action MergeAction
	Index  int // position of the affected entry in the bucket
	Entry  *Entry
}

// Bucket is an ordered collection of entries of one category
type Bucket struct {
	Category Category
	Entries  []*Entry
}

// NewBucket creates an empty bucket
func NewBucket(category Category) *Bucket {
	return &Bucket{
		Category: category,
		Entries:  make([]*Entry, 0),
	}
}

// Len returns the number of entries
func (b *Bucket) Len() int {
	return len(b.Entries)
}

// Links returns the set of non-empty links currently in the bucket
func (b *Bucket) Links() map[string]bool {
	links := make(map[string]bool, len(b.Entries))
	for _, e := range b.Entries {
		if e.Link != "" {
			links[e.Link] = true
		}
	}
	return links
}

// Find returns the index of the entry sharing an identity with e, or -1.
//
// Link equality is the primary identity. When several entries carry the same
// link the one whose title also matches wins, else the first. When no entry
// carries the link, an entry without any link is matched by exact title.
func (b *Bucket) Find(e *Entry) int {
	first := -1
	for i, existing := range b.Entries {
		if e.Link == "" || existing.Link != e.Link {
			continue
		}
		if existing.Title == e.Title {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	if first >= 0 {
		return first
	}

	for i, existing := range b.Entries {
		if existing.Link == "" && existing.Title == e.Title {
			return i
		}
	}
	return -1
}

// Merge inserts e, updates the matching entry in place when e carries strictly
// longer full content, or leaves the bucket untouched.
func (b *Bucket) Merge(e *Entry) MergeResult {
	idx := b.Find(e)
	if idx < 0 {
		added := e.Clone()
		added.IsLatest = false
		b.Entries = append(b.Entries, added)
		return MergeResult{Action: MergeInserted, Index: len(b.Entries) - 1, Entry: added}
	}

	existing := b.Entries[idx]
	if len(e.FullContent) <= len(existing.FullContent) {
		return MergeResult{Action: MergeUnchanged, Index: idx, Entry: existing}
	}

	existing.Date = e.Date
	existing.Summary = e.Summary
	existing.FullContent = e.FullContent
	if existing.Link == "" {
		existing.Link = e.Link
	}
	return MergeResult{Action: MergeUpdated, Index: idx, Entry: existing}
}

// Compact collapses entries sharing a link into one, keeping the position of
// the first and the full content of the richest. It returns the number of
// entries removed. Link-less entries are left alone.
func (b *Bucket) Compact() int {
	seen := make(map[string]int, len(b.Entries))
	kept := b.Entries[:0]
	for _, e := range b.Entries {
		if e.Link == "" {
			kept = append(kept, e)
			continue
		}
		idx, dup := seen[e.Link]
		if !dup {
			seen[e.Link] = len(kept)
			kept = append(kept, e)
			continue
		}
		if len(e.FullContent) > len(kept[idx].FullContent) {
			kept[idx] = e
		}
	}
	removed := len(b.Entries) - len(kept)
	for i := len(kept); i < len(b.Entries); i++ {
		b.Entries[i] = nil
	}
	b.Entries = kept
	return removed
}

// Finalize orders entries by date descending and flags the first one as the
// latest. Entries with equal dates keep their relative order.
func (b *Bucket) Finalize() {
	sort.SliceStable(b.Entries, func(i, j int) bool {
		return b.Entries[i].Date > b.Entries[j].Date
	})
	for i, e := range b.Entries {
		e.IsLatest = i == 0
	}
}

// Latest returns the flagged latest entry, or nil for an empty bucket
func (b *Bucket) Latest() *Entry {
	for _, e := range b.Entries {
		if e.IsLatest {
			return e
		}
	}
	return nil
}

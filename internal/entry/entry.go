package entry

import (
	"fmt"
	"strings"
)

// Category identifies which bucket an entry lives in
type Category string

const (
	CategoryNews    Category = "news"
	CategoryPatches Category = "patches"
)

// Categories lists every bucket in persistence order
var Categories = []Category{CategoryNews, CategoryPatches}

// ParseCategory resolves a user-supplied category name
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "news":
		return CategoryNews, nil
	case "patches", "patch", "patchnotes", "patch-notes":
		return CategoryPatches, nil
	default:
		return "", fmt.Errorf("unknown category: %q", s)
	}
}

// Candidate is an unvalidated record surfaced by an extraction adapter.
// Empty strings mean the field was absent.
type Candidate struct {
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
	DateText string `json:"date_text,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Identity returns the best available identity for log output
func (c Candidate) Identity() string {
	if link := strings.TrimSpace(c.Link); link != "" {
		return link
	}
	return strings.TrimSpace(c.Title)
}

// Entry is a normalized, persisted news or patch-notes record
type Entry struct {
	Title       string `json:"title"`
	Date        string `json:"date"` // YYYY-MM-DD
	Summary     string `json:"summary"`
	Link        string `json:"link"`
	IsLatest    bool   `json:"isLatest"`
	FullContent string `json:"fullContent"`
}

// Clone returns a copy of the entry
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

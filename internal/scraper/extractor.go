package scraper

import (
	"fmt"
	"io"
	"net/url"
	"sort"

	"github.com/k2fort/arcfeed/internal/entry"
)

// Extractor turns a fetched listing document into raw candidates
type Extractor interface {
	// Name identifies the extractor inside the registry (html, json, rss)
	Name() string
	// Extract parses r. base is the listing URL, available for extractors
	// that need to resolve references themselves.
	Extract(r io.Reader, base *url.URL) ([]entry.Candidate, error)
}

// Registry maps source kinds to extractors
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds a registry holding the given extractors
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: map[string]Extractor{}}
	for _, ex := range extractors {
		r.Register(ex)
	}
	return r
}

// Register adds or replaces an extractor
func (r *Registry) Register(ex Extractor) {
	if r.extractors == nil {
		r.extractors = map[string]Extractor{}
	}
	r.extractors[ex.Name()] = ex
}

// Resolve returns the extractor for a source kind
func (r *Registry) Resolve(kind string) (Extractor, error) {
	if ex, ok := r.extractors[kind]; ok {
		return ex, nil
	}
	return nil, fmt.Errorf("extractor %s is not registered", kind)
}

// Names lists registered source kinds
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// dedupe drops repeated (link, title) pairs while keeping listing order
func dedupe(candidates []entry.Candidate) []entry.Candidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]entry.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.Link + "|" + c.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}
	return unique
}

package scraper

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/k2fort/arcfeed/internal/entry"
)

// JSONKeys lists candidate keys for each field, tried in order
type JSONKeys struct {
	Items   []string
	Title   []string
	Link    []string
	Date    []string
	Summary []string
	Content []string
}

// JSONExtractor reads candidates from a news API payload. The payload is
// either a bare array of items or an object holding the array under one of
// the Items keys.
type JSONExtractor struct {
	keys JSONKeys
}

// DefaultJSONKeys covers the shapes the official news API has used
func DefaultJSONKeys() JSONKeys {
	return JSONKeys{
		Items:   []string{"items", "data"},
		Title:   []string{"title", "name"},
		Link:    []string{"url", "slug"},
		Date:    []string{"date", "published"},
		Summary: []string{"excerpt", "summary", "description"},
		Content: []string{"content"},
	}
}

// NewJSONExtractor creates an extractor for the given key lists
func NewJSONExtractor(keys JSONKeys) *JSONExtractor {
	return &JSONExtractor{keys: keys}
}

// Name implements Extractor
func (j *JSONExtractor) Name() string {
	return "json"
}

// Extract implements Extractor
func (j *JSONExtractor) Extract(r io.Reader, _ *url.URL) ([]entry.Candidate, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var payload interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	items, err := j.items(payload)
	if err != nil {
		return nil, err
	}

	candidates := make([]entry.Candidate, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		candidates = append(candidates, entry.Candidate{
			Title:    firstString(item, j.keys.Title),
			Link:     firstString(item, j.keys.Link),
			DateText: firstString(item, j.keys.Date),
			Summary:  firstString(item, j.keys.Summary),
			Content:  firstString(item, j.keys.Content),
		})
	}

	return dedupe(candidates), nil
}

func (j *JSONExtractor) items(payload interface{}) ([]interface{}, error) {
	switch v := payload.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		for _, key := range j.keys.Items {
			if items, ok := v[key].([]interface{}); ok {
				return items, nil
			}
		}
		return nil, fmt.Errorf("no item array under keys %v", j.keys.Items)
	default:
		return nil, fmt.Errorf("unexpected JSON payload type %T", payload)
	}
}

// firstString returns the first non-blank scalar value among keys
func firstString(item map[string]interface{}, keys []string) string {
	for _, key := range keys {
		switch v := item[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

package scraper

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/k2fort/arcfeed/internal/entry"
)

// FeedExtractor reads candidates from an RSS, Atom or JSON Feed document
type FeedExtractor struct {
	parser *gofeed.Parser
}

// NewFeedExtractor creates a feed extractor
func NewFeedExtractor() *FeedExtractor {
	return &FeedExtractor{parser: gofeed.NewParser()}
}

// Name implements Extractor
func (f *FeedExtractor) Name() string {
	return "rss"
}

// Extract implements Extractor
func (f *FeedExtractor) Extract(r io.Reader, _ *url.URL) ([]entry.Candidate, error) {
	feed, err := f.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	candidates := make([]entry.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		dateText := item.Published
		if item.PublishedParsed != nil {
			dateText = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			dateText = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}

		candidates = append(candidates, entry.Candidate{
			Title:    item.Title,
			Link:     item.Link,
			DateText: dateText,
			Summary:  item.Description,
			Content:  item.Content,
		})
	}

	return dedupe(candidates), nil
}

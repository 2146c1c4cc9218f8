package scraper

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/k2fort/arcfeed/internal/entry"
)

// CardStrategy locates repeated listing cards and their fields.
// Field selectors are evaluated inside each card.
type CardStrategy struct {
	Card     string
	Title    string // empty: the card's own text
	Date     string
	DateAttr string // attribute preferred over text when present, e.g. datetime
	Link     string // empty: the card element itself
	LinkAttr string // defaults to href
	Summary  string
}

// HTMLExtractor tries card strategies in order and uses the first one that
// matches any card on the page
type HTMLExtractor struct {
	strategies []CardStrategy
}

// NewHTMLExtractor creates an extractor for the given strategies
func NewHTMLExtractor(strategies []CardStrategy) *HTMLExtractor {
	return &HTMLExtractor{strategies: strategies}
}

// Name implements Extractor
func (h *HTMLExtractor) Name() string {
	return "html"
}

// Extract implements Extractor
func (h *HTMLExtractor) Extract(r io.Reader, _ *url.URL) ([]entry.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	for _, strategy := range h.strategies {
		cards := doc.Find(strategy.Card)
		if cards.Length() == 0 {
			continue
		}

		candidates := make([]entry.Candidate, 0, cards.Length())
		cards.Each(func(_ int, card *goquery.Selection) {
			candidates = append(candidates, strategy.extract(card))
		})
		return dedupe(candidates), nil
	}

	return []entry.Candidate{}, nil
}

func (s CardStrategy) extract(card *goquery.Selection) entry.Candidate {
	c := entry.Candidate{}

	if s.Title == "" {
		c.Title = text(card)
	} else {
		c.Title = text(card.Find(s.Title).First())
	}

	linkAttr := s.LinkAttr
	if linkAttr == "" {
		linkAttr = "href"
	}
	linkSel := card
	if s.Link != "" {
		linkSel = card.Find(s.Link).First()
	}
	if href, ok := linkSel.Attr(linkAttr); ok {
		c.Link = strings.TrimSpace(href)
	}

	if s.Date != "" {
		dateSel := card.Find(s.Date).First()
		if s.DateAttr != "" {
			if v, ok := dateSel.Attr(s.DateAttr); ok {
				c.DateText = strings.TrimSpace(v)
			}
		}
		if c.DateText == "" {
			c.DateText = text(dateSel)
		}
	}

	if s.Summary != "" {
		c.Summary = text(card.Find(s.Summary).First())
	}

	return c
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

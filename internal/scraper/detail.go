package scraper

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

// DefaultCardStrategies matches the hashed card classes of the official
// news page first, then generic <article> cards.
func DefaultCardStrategies() []CardStrategy {
	return []CardStrategy{
		{
			Card:  `a[class*="news-article-card_container"]`,
			Title: `div[class*="news-article-card_title"]`,
			Date:  `div[class*="news-article-card_date"]`,
		},
		{
			Card:     "article",
			Title:    "h2, h3",
			Date:     "time",
			DateAttr: "datetime",
			Link:     "a[href]",
			Summary:  "p",
		},
	}
}

// DefaultContentSelectors are tried in order on a detail page
func DefaultContentSelectors() []string {
	return []string{"article", `div[class*="article"]`, "main"}
}

// extractContent returns the inner markup of the first content container
// found. When none matches and readability is enabled, the readable text is
// rendered as escaped paragraphs.
func (s *Scraper) extractContent(body []byte, pageURL *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, selector := range s.contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		markup, err := sel.Html()
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", selector, err)
		}
		if strings.TrimSpace(markup) != "" {
			return strings.TrimSpace(markup), nil
		}
	}

	if !s.readability {
		return "", nil
	}

	return readableContent(body, pageURL)
}

func readableContent(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := rendered.String()
	if strings.TrimSpace(text) == "" {
		text = article.Excerpt()
	}

	return paragraphs(text), nil
}

// paragraphs wraps each non-blank line of text in an escaped <p> element
func paragraphs(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}

package entry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// SummaryMaxRunes is the summary budget before the ellipsis is appended
	SummaryMaxRunes = 250
	// SummaryEllipsis marks a truncated summary
	SummaryEllipsis = "..."
	// ContentPlaceholder stands in for markup that could not be obtained
	ContentPlaceholder = "<p>Full content not available.</p>"
)

var (
	// ErrSkip is matched by every error Normalize returns
	ErrSkip = errors.New("candidate skipped")

	ErrMissingTitle = fmt.Errorf("%w: missing title", ErrSkip)
	ErrMissingLink  = fmt.Errorf("%w: missing link", ErrSkip)
)

// NormalizeOptions carries the per-source context Normalize needs
type NormalizeOptions struct {
	// Base is the source origin relative links are resolved against
	Base *url.URL
	// DateLayouts are tried in order; DefaultDateLayouts when empty
	DateLayouts []string
	// Now supplies the processing date; time.Now when nil
	Now func() time.Time
}

// Fallbacks reports which best-effort defaults Normalize applied
type Fallbacks struct {
	DateDefaulted      bool
	SummaryFromTitle   bool
	ContentPlaceholder bool
}

// Any reports whether at least one fallback was used
func (f Fallbacks) Any() bool {
	return f.DateDefaulted || f.SummaryFromTitle || f.ContentPlaceholder
}

// Normalize converts a candidate into a complete Entry. It returns an error
// wrapping ErrSkip when the title or link is missing; it never returns a
// partially populated entry.
func Normalize(c Candidate, opts NormalizeOptions) (*Entry, Fallbacks, error) {
	var fb Fallbacks

	title := strings.TrimSpace(c.Title)
	if title == "" {
		return nil, fb, ErrMissingTitle
	}

	link, err := ResolveLink(c.Link, opts.Base)
	if err != nil {
		return nil, fb, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	date, defaulted := NormalizeDate(c.DateText, opts.DateLayouts, now())
	fb.DateDefaulted = defaulted

	content := c.Content
	if strings.TrimSpace(content) == "" {
		content = ContentPlaceholder
		fb.ContentPlaceholder = true
	}

	summary := FirstParagraph(c.Content)
	if summary == "" {
		summary = collapseSpace(c.Summary)
	}
	if summary == "" {
		summary = title
		fb.SummaryFromTitle = true
	}

	return &Entry{
		Title:       title,
		Date:        date,
		Summary:     TruncateSummary(summary, SummaryMaxRunes),
		Link:        link,
		FullContent: content,
	}, fb, nil
}

// ResolveLink turns a possibly relative link into an absolute URL using the
// origin (scheme and host) of base.
func ResolveLink(link string, base *url.URL) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrMissingLink
	}

	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: parsing %q: %v", ErrMissingLink, link, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == nil || base.Host == "" {
		return "", fmt.Errorf("%w: relative link %q without source origin", ErrMissingLink, link)
	}

	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	return origin.ResolveReference(ref).String(), nil
}

// FirstParagraph returns the whitespace-collapsed text of the first non-empty
// <p> element in the markup, or "" when there is none.
func FirstParagraph(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var text string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text = collapseSpace(p.Text())
		return text == ""
	})
	return text
}

// TruncateSummary clips text to maxRunes runes and appends SummaryEllipsis
// when it was clipped.
func TruncateSummary(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + SummaryEllipsis
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

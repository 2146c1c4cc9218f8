package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/k2fort/arcfeed/internal/entry"
)

const (
	DefaultUserAgent       = "arcfeed/1.0 (github.com/k2fort/arcfeed)"
	DefaultListingTimeout  = 60 * time.Second
	DefaultDetailTimeout   = 30 * time.Second
	DefaultPolitenessDelay = time.Second

	// DefaultMaxBodyBytes caps any single response read into memory
	DefaultMaxBodyBytes = 4 << 20
)

var (
	// ErrListing marks a listing fetch or parse failure. It is fatal for the source.
	ErrListing = errors.New("listing unavailable")
	// ErrUnexpectedStatus is returned for any non-200 response
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrBodyTooLarge is returned instead of parsing a truncated page
	ErrBodyTooLarge = errors.New("response body too large")
)

// Options configures a Scraper. Zero values fall back to the defaults above,
// except PolitenessDelay where zero disables the pause.
type Options struct {
	HTTPClient       *http.Client
	UserAgent        string
	ListingTimeout   time.Duration
	DetailTimeout    time.Duration
	PolitenessDelay  time.Duration
	Extractor        Extractor
	ContentSelectors []string
	Readability      bool
	MaxBodyBytes     int64
}

// Scraper fetches a news listing and the detail page of each article
type Scraper struct {
	client           *http.Client
	userAgent        string
	listingTimeout   time.Duration
	detailTimeout    time.Duration
	delay            time.Duration
	extractor        Extractor
	contentSelectors []string
	readability      bool
	maxBodyBytes     int64
}

// New creates a new Scraper instance
func New(opts Options) *Scraper {
	s := &Scraper{
		client:           opts.HTTPClient,
		userAgent:        opts.UserAgent,
		listingTimeout:   opts.ListingTimeout,
		detailTimeout:    opts.DetailTimeout,
		delay:            opts.PolitenessDelay,
		extractor:        opts.Extractor,
		contentSelectors: opts.ContentSelectors,
		readability:      opts.Readability,
		maxBodyBytes:     opts.MaxBodyBytes,
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if s.userAgent == "" {
		s.userAgent = DefaultUserAgent
	}
	if s.listingTimeout <= 0 {
		s.listingTimeout = DefaultListingTimeout
	}
	if s.detailTimeout <= 0 {
		s.detailTimeout = DefaultDetailTimeout
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.delay < 0 {
		s.delay = 0
	}
	if s.extractor == nil {
		s.extractor = NewHTMLExtractor(DefaultCardStrategies())
	}
	if len(s.contentSelectors) == 0 {
		s.contentSelectors = DefaultContentSelectors()
	}
	return s
}

// FetchListing downloads the listing page and extracts its candidates.
// Every failure wraps ErrListing.
func (s *Scraper) FetchListing(ctx context.Context, listingURL string) ([]entry.Candidate, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing listing URL: %w", ErrListing, err)
	}

	body, err := s.get(ctx, listingURL, s.listingTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListing, err)
	}

	candidates, err := s.extractor.Extract(bytes.NewReader(body), base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s extractor: %w", ErrListing, s.extractor.Name(), err)
	}

	return candidates, nil
}

// FetchDetail downloads an article page and returns its content markup.
// An empty string with a nil error means the page had no recognizable content.
func (s *Scraper) FetchDetail(ctx context.Context, link string) (string, error) {
	body, err := s.get(ctx, link, s.detailTimeout)
	if err != nil {
		return "", err
	}

	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing detail URL: %w", err)
	}

	return s.extractContent(body, pageURL)
}

// Pause waits for the politeness delay. It returns early with the context
// error when ctx is cancelled.
func (s *Scraper) Pause(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay returns the configured politeness delay
func (s *Scraper) Delay() time.Duration {
	return s.delay
}

func (s *Scraper) get(ctx context.Context, target string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(body)) > s.maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, s.maxBodyBytes)
	}

	return body, nil
}

// Package eventfeed mirrors the third-party event-timer endpoint.
//
// The payload is opaque: a response is accepted when it is HTTP 200 and
// well-formed JSON, and its bytes are handed back untouched for storage.
package eventfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultURL       = "https://metaforge.app/api/arc-raiders/event-timers"
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "arcfeed/1.0 (github.com/k2fort/arcfeed)"

	maxPayloadBytes = 8 << 20
)

var (
	// ErrUnexpectedStatus is returned for any non-200 response
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrMalformed is returned when the body is not well-formed JSON
	ErrMalformed = errors.New("malformed event payload")
)

// Result is a recognized event snapshot
type Result struct {
	Bytes []byte
	// Items is the length of a top-level "data" array, when there is one
	Items    int
	HasItems bool
}

// Client fetches the event feed
type Client struct {
	httpClient *http.Client
	url        string
	userAgent  string
	timeout    time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client for the given endpoint, DefaultURL when empty
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		httpClient: &http.Client{},
		url:        url,
		userAgent:  DefaultUserAgent,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client reads
func (c *Client) URL() string {
	return c.url
}

// Sync fetches the feed once. Any error means the previous snapshot must be
// kept as is.
func (c *Client) Sync(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	if len(body) > maxPayloadBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrMalformed, maxPayloadBytes)
	}

	return recognize(body)
}

func recognize(body []byte) (*Result, error) {
	if len(bytes.TrimSpace(body)) == 0 || !json.Valid(body) {
		return nil, ErrMalformed
	}

	result := &Result{Bytes: body}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 {
		var items []json.RawMessage
		if err := json.Unmarshal(envelope.Data, &items); err == nil {
			result.Items = len(items)
			result.HasItems = true
		}
	}

	return result, nil
}

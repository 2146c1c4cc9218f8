package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/k2fort/arcfeed/internal/entry"
	"github.com/k2fort/arcfeed/internal/logger"
	"github.com/k2fort/arcfeed/internal/notifier"
)

// Detail fetch policies
const (
	PolicyRefetch   = "refetch"
	PolicySkipKnown = "skip-known"
)

// Source is the network side of a run
type Source interface {
	FetchListing(ctx context.Context, listingURL string) ([]entry.Candidate, error)
	FetchDetail(ctx context.Context, link string) (string, error)
	Pause(ctx context.Context) error
}

// Store persists both buckets
type Store interface {
	LoadState() (news, patches *entry.Bucket, err error)
	SaveState(news, patches *entry.Bucket) error
}

// State holds the buckets a run mutates
type State struct {
	News    *entry.Bucket
	Patches *entry.Bucket
}

// NewState creates a state with two empty buckets
func NewState() *State {
	return &State{
		News:    entry.NewBucket(entry.CategoryNews),
		Patches: entry.NewBucket(entry.CategoryPatches),
	}
}

// Bucket returns the bucket for a category
func (s *State) Bucket(category entry.Category) *entry.Bucket {
	if category == entry.CategoryPatches {
		return s.Patches
	}
	return s.News
}

// KnownLinks returns every link present in either bucket
func (s *State) KnownLinks() map[string]bool {
	known := s.News.Links()
	for link := range s.Patches.Links() {
		known[link] = true
	}
	return known
}

// Locate returns the bucket already holding an entry with e's identity, or
// nil for an identity not seen before. Entries never change bucket once
// classified, even when a later title would classify differently.
func (s *State) Locate(e *entry.Entry) *entry.Bucket {
	for _, cat := range entry.Categories {
		if b := s.Bucket(cat); b.Find(e) >= 0 {
			return b
		}
	}
	return nil
}

// Config describes the news source of a run
type Config struct {
	ListingURL string
	// Origin resolves relative links; derived from ListingURL when nil
	Origin       *url.URL
	DateLayouts  []string
	DetailPolicy string
	Now          func() time.Time
}

// Service runs the news pipeline
type Service struct {
	source   Source
	cfg      Config
	log      *logger.Logger
	metrics  *logger.Metrics
	notifier notifier.Notifier
}

// Option customizes a Service
type Option func(*Service)

// WithLogger sets the logger, logger.Default() otherwise
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithMetrics sets the metrics tracker
func WithMetrics(m *logger.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNotifier announces inserted entries after a successful save
func WithNotifier(n notifier.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// NewService creates a service. It fails when the listing URL or the
// detail policy is unusable.
func NewService(source Source, cfg Config, opts ...Option) (*Service, error) {
	if cfg.ListingURL == "" {
		return nil, fmt.Errorf("listing URL is required")
	}
	if cfg.Origin == nil {
		u, err := url.Parse(cfg.ListingURL)
		if err != nil {
			return nil, fmt.Errorf("parsing listing URL: %w", err)
		}
		cfg.Origin = u
	}
	switch cfg.DetailPolicy {
	case "":
		cfg.DetailPolicy = PolicyRefetch
	case PolicyRefetch, PolicySkipKnown:
	default:
		return nil, fmt.Errorf("unknown detail policy %q", cfg.DetailPolicy)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Service{
		source:   source,
		cfg:      cfg,
		log:      logger.Default(),
		metrics:  logger.NewMetrics(),
		notifier: notifier.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Metrics returns the tracker fed by runs
func (s *Service) Metrics() *logger.Metrics {
	return s.metrics
}

// Sync loads both buckets from store, runs the pipeline and saves them.
// Nothing is written when loading, the listing or the context fails.
func (s *Service) Sync(ctx context.Context, store Store) (*Report, error) {
	news, patches, err := store.LoadState()
	if err != nil {
		return nil, fmt.Errorf("loading buckets: %w", err)
	}

	state := &State{News: news, Patches: patches}
	report, err := s.Run(ctx, state)
	if err != nil {
		return nil, err
	}

	if err := store.SaveState(state.News, state.Patches); err != nil {
		return nil, fmt.Errorf("saving buckets: %w", err)
	}

	s.log.Info("Buckets saved", logger.Fields{
		"news":    state.News.Len(),
		"patches": state.Patches.Len(),
	})

	if len(report.NewEntries) > 0 {
		if err := s.notifier.Notify(ctx, report.NewEntries); err != nil {
			s.log.WarnErr("Notification failed", logger.Fields{"stage": "notify"}, err)
			s.metrics.IncrCounter("notify_failures")
		}
	}

	return report, nil
}

// Run merges the current listing into state. On error state may have been
// partially mutated and must not be persisted.
func (s *Service) Run(ctx context.Context, state *State) (*Report, error) {
	start := time.Now()
	report := newReport()

	known := state.KnownLinks()
	report.KnownAtStart = len(known)

	s.log.Info("Fetching listing", logger.Fields{
		"stage":  "listing",
		"url":    s.cfg.ListingURL,
		"known":  len(known),
		"policy": s.cfg.DetailPolicy,
	})

	listingStart := time.Now()
	candidates, err := s.source.FetchListing(ctx, s.cfg.ListingURL)
	s.metrics.RecordTiming("listing_fetch", time.Since(listingStart))
	if err != nil {
		s.log.Error("Listing fetch failed", logger.Fields{"stage": "listing", "url": s.cfg.ListingURL}, err)
		return nil, err
	}
	report.Listed = len(candidates)
	s.metrics.SetGauge("listing_candidates", float64(len(candidates)))

	opts := entry.NormalizeOptions{
		Base:        s.cfg.Origin,
		DateLayouts: s.cfg.DateLayouts,
		Now:         s.cfg.Now,
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.cfg.DetailPolicy == PolicySkipKnown && s.isKnown(c, known) {
			report.SkippedKnown++
			s.metrics.IncrCounter("skipped_known")
			s.log.Debug("Skipping known entry", logger.Fields{"stage": "detail", "identity": c.Identity()})
			continue
		}

		if s.wantsDetail(c) {
			if report.DetailFetches > 0 {
				if err := s.source.Pause(ctx); err != nil {
					return nil, err
				}
			}
			report.DetailFetches++
			s.fetchDetail(ctx, &c, report)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		e, fb, err := entry.Normalize(c, opts)
		if err != nil {
			report.Skipped++
			s.metrics.IncrCounter("skipped")
			s.log.WarnErr("Skipping candidate", logger.Fields{
				"stage":    "normalize",
				"identity": c.Identity(),
			}, err)
			continue
		}
		if fb.Any() {
			report.Fallbacks++
			s.log.Debug("Applied fallbacks", logger.Fields{
				"stage":              "normalize",
				"link":               e.Link,
				"dateDefaulted":      fb.DateDefaulted,
				"summaryFromTitle":   fb.SummaryFromTitle,
				"contentPlaceholder": fb.ContentPlaceholder,
			})
		}

		bucket := state.Locate(e)
		if bucket == nil {
			bucket = state.Bucket(entry.Classify(e.Title))
		}
		category := bucket.Category
		res := bucket.Merge(e)
		report.record(category, res)
		s.metrics.IncrCounter(string(res.Action))

		s.log.Debug("Merged entry", logger.Fields{
			"stage":    "merge",
			"category": category,
			"action":   res.Action,
			"link":     e.Link,
		})
	}

	for _, cat := range entry.Categories {
		bucket := state.Bucket(cat)
		if removed := bucket.Compact(); removed > 0 {
			report.Collapsed += removed
			s.metrics.IncrCounter("collapsed")
			s.log.Warn("Collapsed duplicate links", logger.Fields{
				"stage":    "finalize",
				"category": cat,
				"removed":  removed,
			})
		}
		bucket.Finalize()
		report.BucketSizes[cat] = bucket.Len()
		s.metrics.SetGauge("bucket_"+string(cat), float64(bucket.Len()))
	}

	report.Duration = time.Since(start)
	report.DurationText = report.Duration.Round(time.Millisecond).String()
	s.metrics.RecordTiming("run", report.Duration)

	s.log.Info("Run complete", logger.Fields{
		"listed":         report.Listed,
		"inserted":       report.Inserted,
		"updated":        report.Updated,
		"unchanged":      report.Unchanged,
		"skipped":        report.Skipped,
		"skippedKnown":   report.SkippedKnown,
		"detailFailures": report.DetailFailures,
		"duration":       report.DurationText,
	})

	return report, nil
}

// wantsDetail reports whether a detail page should be fetched: the
// candidate must be usable and must not already carry content.
func (s *Service) wantsDetail(c entry.Candidate) bool {
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Content) != "" {
		return false
	}
	_, err := entry.ResolveLink(c.Link, s.cfg.Origin)
	return err == nil
}

func (s *Service) isKnown(c entry.Candidate, known map[string]bool) bool {
	link, err := entry.ResolveLink(c.Link, s.cfg.Origin)
	return err == nil && known[link]
}

// fetchDetail fills c.Content. Failures leave it empty so that Normalize
// substitutes the placeholder.
func (s *Service) fetchDetail(ctx context.Context, c *entry.Candidate, report *Report) {
	link, _ := entry.ResolveLink(c.Link, s.cfg.Origin)

	detailStart := time.Now()
	content, err := s.source.FetchDetail(ctx, link)
	s.metrics.RecordTiming("detail_fetch", time.Since(detailStart))

	if err != nil {
		report.DetailFailures++
		s.metrics.IncrCounter("detail_failures")
		if !errors.Is(err, context.Canceled) {
			s.log.WarnErr("Detail fetch failed", logger.Fields{"stage": "detail", "link": link}, err)
		}
		return
	}
	if strings.TrimSpace(content) == "" {
		s.log.Warn("No content container on detail page", logger.Fields{"stage": "detail", "link": link})
		return
	}
	c.Content = content
}

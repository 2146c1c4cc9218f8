package ingest

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/k2fort/arcfeed/internal/entry"
	"github.com/k2fort/arcfeed/internal/eventfeed"
	"github.com/k2fort/arcfeed/internal/logger"
	"github.com/k2fort/arcfeed/internal/notifier"
	"github.com/k2fort/arcfeed/internal/storage"
)

const listingURL = "https://arcraiders.com/news"

// fakeSource serves a fixed listing and per-link detail content
type fakeSource struct {
	candidates []entry.Candidate
	listingErr error
	details    map[string]string
	detailErr  map[string]error
	fetched    []string
	pauses     int
}

func (f *fakeSource) FetchListing(context.Context, string) ([]entry.Candidate, error) {
	if f.listingErr != nil {
		return nil, f.listingErr
	}
	return append([]entry.Candidate(nil), f.candidates...), nil
}

func (f *fakeSource) FetchDetail(_ context.Context, link string) (string, error) {
	f.fetched = append(f.fetched, link)
	if err := f.detailErr[link]; err != nil {
		return "", err
	}
	return f.details[link], nil
}

func (f *fakeSource) Pause(ctx context.Context) error {
	f.pauses++
	return ctx.Err()
}

type recordingNotifier struct {
	got []notifier.Announcement
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, a []notifier.Announcement) error {
	r.got = append(r.got, a...)
	return r.err
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, src Source, policy string, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(logger.New(logger.LevelError, io.Discard))}, opts...)
	svc, err := NewService(src, Config{
		ListingURL:   listingURL,
		DetailPolicy: policy,
		Now:          fixedNow,
	}, opts...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func content(n int) string {
	return "<p>" + strings.Repeat("x", n-7) + "</p>"
}

func TestRun_RoutesAndNormalizes(t *testing.T) {
	src := &fakeSource{
		candidates: []entry.Candidate{
			{Title: "Hotfix 1.2 Notes", Link: "/news/hotfix-1-2", DateText: "January 5, 2026"},
			{Title: "Community Spotlight", Link: "/news/spotlight", DateText: "February 1, 2026"},
		},
		details: map[string]string{
			"https://arcraiders.com/news/hotfix-1-2": "<p>Fixed the elevator.</p>",
		},
	}
	svc := newTestService(t, src, PolicyRefetch)
	state := NewState()

	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.Patches.Len() != 1 || state.News.Len() != 1 {
		t.Fatalf("expected 1 patch and 1 news entry, got %d and %d", state.Patches.Len(), state.News.Len())
	}

	patch := state.Patches.Entries[0]
	if patch.Date != "2026-01-05" {
		t.Errorf("expected date 2026-01-05, got %s", patch.Date)
	}
	if patch.Link != "https://arcraiders.com/news/hotfix-1-2" {
		t.Errorf("expected absolute link, got %s", patch.Link)
	}
	if patch.FullContent != "<p>Fixed the elevator.</p>" || patch.Summary != "Fixed the elevator." {
		t.Errorf("unexpected content/summary: %q / %q", patch.FullContent, patch.Summary)
	}
	if !patch.IsLatest {
		t.Error("single patch entry should be latest")
	}

	news := state.News.Entries[0]
	if news.FullContent != entry.ContentPlaceholder {
		t.Errorf("expected placeholder for empty detail page, got %q", news.FullContent)
	}

	if report.Inserted != 2 || len(report.NewEntries) != 2 {
		t.Errorf("expected 2 inserted, got %d (%d announcements)", report.Inserted, len(report.NewEntries))
	}
	if report.DetailFetches != 2 || src.pauses != 1 {
		t.Errorf("expected 2 detail fetches with 1 pause between, got %d and %d", report.DetailFetches, src.pauses)
	}
}

func TestRun_Idempotent(t *testing.T) {
	src := &fakeSource{
		candidates: []entry.Candidate{
			{Title: "Hotfix 1.2 Notes", Link: "/news/hotfix-1-2", DateText: "January 5, 2026"},
		},
		details: map[string]string{"https://arcraiders.com/news/hotfix-1-2": content(80)},
	}
	svc := newTestService(t, src, PolicyRefetch)
	state := NewState()

	if _, err := svc.Run(context.Background(), state); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	before := *state.Patches.Entries[0]

	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if report.Inserted != 0 || report.Updated != 0 || report.Unchanged != 1 {
		t.Errorf("expected only unchanged, got %+v", report)
	}
	if state.Patches.Len() != 1 || *state.Patches.Entries[0] != before {
		t.Errorf("bucket changed on identical input: %+v", state.Patches.Entries)
	}
}

func TestRun_RicherContentUpdatesInPlace(t *testing.T) {
	state := NewState()
	state.Patches.Entries = []*entry.Entry{
		{Title: "Patch 1.3 Notes", Date: "2026-03-01", Summary: "Newer", Link: "https://arcraiders.com/news/patch-1-3", IsLatest: true, FullContent: content(60)},
		{Title: "Hotfix 1.2 Notes", Date: "2026-01-05", Summary: "Old", Link: "https://arcraiders.com/news/hotfix-1-2", FullContent: content(50)},
		{Title: "Patch 1.0 Notes", Date: "2025-12-01", Summary: "Oldest", Link: "https://arcraiders.com/news/patch-1-0", FullContent: content(50)},
	}

	src := &fakeSource{
		candidates: []entry.Candidate{
			{Title: "Hotfix 1.2 Notes", Link: "/news/hotfix-1-2", DateText: "January 6, 2026"},
		},
		details: map[string]string{"https://arcraiders.com/news/hotfix-1-2": content(500)},
	}
	svc := newTestService(t, src, PolicyRefetch)

	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", report)
	}

	updated := state.Patches.Entries[1]
	if updated.Link != "https://arcraiders.com/news/hotfix-1-2" {
		t.Fatalf("updated entry moved, position 1 holds %s", updated.Link)
	}
	if len(updated.FullContent) != 500 || updated.Date != "2026-01-06" {
		t.Errorf("expected content and date overwritten, got len=%d date=%s", len(updated.FullContent), updated.Date)
	}
	if updated.IsLatest || !state.Patches.Entries[0].IsLatest {
		t.Error("latest flag should stay with the newest entry")
	}
}

func TestRun_KnownLinkStaysInItsBucket(t *testing.T) {
	src := &fakeSource{
		candidates: []entry.Candidate{
			{Title: "Cold Snap Update", Link: "/news/cold-snap", DateText: "December 1, 2026", Content: "<p>Short.</p>"},
		},
	}
	svc := newTestService(t, src, PolicyRefetch)
	state := NewState()

	if _, err := svc.Run(context.Background(), state); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if state.Patches.Len() != 1 {
		t.Fatalf("expected the entry in patches, got %d", state.Patches.Len())
	}

	// Same link, retitled so that it would now classify as news
	src.candidates = []entry.Candidate{
		{Title: "Cold Snap Is Here", Link: "/news/cold-snap", DateText: "December 2, 2026", Content: "<p>Much longer body text.</p>"},
	}
	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if state.News.Len() != 0 {
		t.Errorf("known link must not be inserted into news, got %d entries", state.News.Len())
	}
	if state.Patches.Len() != 1 {
		t.Fatalf("expected a single patches entry, got %d", state.Patches.Len())
	}
	if report.Updated != 1 || report.Inserted != 0 {
		t.Errorf("expected 1 update and no insert, got %d/%d", report.Updated, report.Inserted)
	}
	if got := state.Patches.Entries[0].FullContent; got != "<p>Much longer body text.</p>" {
		t.Errorf("expected richer content in place, got %q", got)
	}
	if got := svc.Metrics().Counter(string(entry.MergeUpdated)); got != 1 {
		t.Errorf("updated counter = %d, want 1", got)
	}
}

func TestRun_CollapsesLegacyDuplicateLinks(t *testing.T) {
	state := NewState()
	state.News.Entries = []*entry.Entry{
		{Title: "Roadmap", Link: "https://arcraiders.com/news/roadmap", Date: "2026-03-01", Summary: "Roadmap", FullContent: "<p>a</p>"},
		{Title: "Roadmap", Link: "https://arcraiders.com/news/roadmap", Date: "2026-03-01", Summary: "Roadmap", FullContent: "<p>longer body</p>"},
	}

	svc := newTestService(t, &fakeSource{}, PolicyRefetch)
	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if state.News.Len() != 1 {
		t.Fatalf("expected duplicates collapsed to 1 entry, got %d", state.News.Len())
	}
	if state.News.Entries[0].FullContent != "<p>longer body</p>" {
		t.Errorf("expected the richer copy to survive, got %q", state.News.Entries[0].FullContent)
	}
	if !state.News.Entries[0].IsLatest {
		t.Error("surviving entry should be latest")
	}
	if report.Collapsed != 1 {
		t.Errorf("report.Collapsed = %d, want 1", report.Collapsed)
	}
}

func TestRun_SortsAndFlagsLatest(t *testing.T) {
	state := NewState()
	state.News.Entries = []*entry.Entry{
		{Title: "A", Date: "2026-01-05", Link: "https://arcraiders.com/news/a", IsLatest: true, FullContent: "x"},
		{Title: "B", Date: "2026-02-01", Link: "https://arcraiders.com/news/b", FullContent: "x"},
	}

	svc := newTestService(t, &fakeSource{}, PolicyRefetch)
	if _, err := svc.Run(context.Background(), state); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	first := state.News.Entries[0]
	if first.Date != "2026-02-01" || !first.IsLatest {
		t.Errorf("expected 2026-02-01 entry first and latest, got %+v", first)
	}
	if state.News.Entries[1].IsLatest {
		t.Error("only one entry may be latest")
	}
}

func TestRun_SkipsCandidatesWithoutIdentity(t *testing.T) {
	src := &fakeSource{
		candidates: []entry.Candidate{
			{DateText: "January 5, 2026", Summary: "orphan"},
			{Title: "No Link Here"},
			{Link: "/news/no-title"},
		},
	}
	svc := newTestService(t, src, PolicyRefetch)
	state := NewState()

	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Skipped != 3 {
		t.Errorf("expected 3 skipped, got %d", report.Skipped)
	}
	if state.News.Len() != 0 || state.Patches.Len() != 0 {
		t.Error("skipped candidates must not reach a bucket")
	}
	if len(src.fetched) != 0 {
		t.Errorf("no detail page should be fetched for unusable candidates, fetched %v", src.fetched)
	}
}

func TestRun_DetailFailureUsesPlaceholder(t *testing.T) {
	link := "https://arcraiders.com/news/roadmap"
	src := &fakeSource{
		candidates: []entry.Candidate{{Title: "Roadmap", Link: link, DateText: "garbage"}},
		detailErr:  map[string]error{link: errors.New("connection reset")},
	}
	svc := newTestService(t, src, PolicyRefetch)
	state := NewState()

	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.DetailFailures != 1 {
		t.Errorf("expected 1 detail failure, got %d", report.DetailFailures)
	}

	e := state.News.Entries[0]
	if e.FullContent != entry.ContentPlaceholder {
		t.Errorf("expected placeholder, got %q", e.FullContent)
	}
	if e.Date != "2026-10-17" {
		t.Errorf("expected processing date, got %s", e.Date)
	}
	if e.Summary != "Roadmap" {
		t.Errorf("expected title as summary, got %q", e.Summary)
	}
}

func TestRun_CandidateContentSkipsDetail(t *testing.T) {
	src := &fakeSource{
		candidates: []entry.Candidate{{Title: "Feed Item", Link: "/news/feed", Content: "<p>inline</p>"}},
	}
	svc := newTestService(t, src, PolicyRefetch)
	state := NewState()

	if _, err := svc.Run(context.Background(), state); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(src.fetched) != 0 {
		t.Errorf("expected no detail fetch, got %v", src.fetched)
	}
	if state.News.Entries[0].FullContent != "<p>inline</p>" {
		t.Errorf("unexpected content %q", state.News.Entries[0].FullContent)
	}
}

func TestRun_SkipKnownPolicy(t *testing.T) {
	state := NewState()
	state.News.Entries = []*entry.Entry{
		{Title: "Known", Date: "2026-01-01", Link: "https://arcraiders.com/news/known", FullContent: "x"},
	}
	src := &fakeSource{
		candidates: []entry.Candidate{
			{Title: "Known", Link: "/news/known"},
			{Title: "Fresh", Link: "/news/fresh"},
		},
		details: map[string]string{
			"https://arcraiders.com/news/known": content(900),
			"https://arcraiders.com/news/fresh": content(90),
		},
	}

	svc := newTestService(t, src, PolicySkipKnown)
	report, err := svc.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.KnownAtStart != 1 || report.SkippedKnown != 1 || report.Inserted != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(src.fetched) != 1 || src.fetched[0] != "https://arcraiders.com/news/fresh" {
		t.Errorf("expected only the fresh link fetched, got %v", src.fetched)
	}
	for _, e := range state.News.Entries {
		if e.Link == "https://arcraiders.com/news/known" && e.FullContent != "x" {
			t.Error("known entry must not be updated under skip-known")
		}
	}
}

func TestRun_ListingFailureIsFatal(t *testing.T) {
	state := NewState()
	state.News.Entries = []*entry.Entry{
		{Title: "Keep", Date: "2026-01-01", Link: "https://arcraiders.com/news/keep", IsLatest: false, FullContent: "x"},
	}
	src := &fakeSource{listingErr: errors.New("listing unavailable")}

	svc := newTestService(t, src, PolicyRefetch)
	if _, err := svc.Run(context.Background(), state); err == nil {
		t.Fatal("expected listing error")
	}
	if state.News.Entries[0].IsLatest {
		t.Error("bucket must not be finalized after a fatal listing error")
	}
}

func TestRun_CancelledDuringPause(t *testing.T) {
	src := &fakeSource{
		candidates: []entry.Candidate{
			{Title: "One", Link: "/news/one"},
			{Title: "Two", Link: "/news/two"},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	svc := newTestService(t, &cancellingSource{fakeSource: src, cancel: cancel}, PolicyRefetch)

	if _, err := svc.Run(ctx, NewState()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// cancellingSource cancels the run after the first detail fetch
type cancellingSource struct {
	*fakeSource
	cancel context.CancelFunc
}

func (c *cancellingSource) FetchDetail(ctx context.Context, link string) (string, error) {
	defer c.cancel()
	return c.fakeSource.FetchDetail(ctx, link)
}

func TestNewService_Validation(t *testing.T) {
	if _, err := NewService(&fakeSource{}, Config{}); err == nil {
		t.Error("expected error without listing URL")
	}
	if _, err := NewService(&fakeSource{}, Config{ListingURL: listingURL, DetailPolicy: "sometimes"}); err == nil {
		t.Error("expected error for unknown policy")
	}

	origin, _ := url.Parse("https://arcraiders.com")
	svc, err := NewService(&fakeSource{}, Config{ListingURL: listingURL, Origin: origin})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if svc.cfg.DetailPolicy != PolicyRefetch {
		t.Errorf("expected default policy refetch, got %s", svc.cfg.DetailPolicy)
	}
}

func TestSync_PersistsAndNotifies(t *testing.T) {
	store, err := storage.New(t.TempDir(), storage.Files{})
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	src := &fakeSource{
		candidates: []entry.Candidate{
			{Title: "Patch 1.4 Notes", Link: "/news/patch-1-4", DateText: "October 10, 2026"},
		},
		details: map[string]string{"https://arcraiders.com/news/patch-1-4": "<p>Balance changes.</p>"},
	}
	rec := &recordingNotifier{err: errors.New("telegram down")}
	svc := newTestService(t, src, PolicyRefetch, WithNotifier(rec))

	report, err := svc.Sync(context.Background(), store)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if report.Inserted != 1 {
		t.Errorf("expected 1 inserted, got %d", report.Inserted)
	}
	if len(rec.got) != 1 || rec.got[0].Category != entry.CategoryPatches {
		t.Errorf("expected one patch announcement, got %+v", rec.got)
	}

	patches, err := store.LoadBucket(entry.CategoryPatches)
	if err != nil {
		t.Fatalf("LoadBucket failed: %v", err)
	}
	if patches.Len() != 1 || !patches.Entries[0].IsLatest {
		t.Errorf("unexpected persisted patches %+v", patches.Entries)
	}
	if _, err := os.Stat(store.BucketPath(entry.CategoryNews)); err != nil {
		t.Errorf("news bucket should be written even when empty: %v", err)
	}

	// Second run over identical input: nothing new to announce
	rec.got = nil
	if _, err := svc.Sync(context.Background(), store); err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	if len(rec.got) != 0 {
		t.Errorf("expected no announcements on rerun, got %d", len(rec.got))
	}
}

func TestSync_CorruptBucketWritesNothing(t *testing.T) {
	store, err := storage.New(t.TempDir(), storage.Files{})
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	corrupt := []byte(`{"not": "an array"}`)
	if err := os.WriteFile(store.BucketPath(entry.CategoryNews), corrupt, 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	src := &fakeSource{candidates: []entry.Candidate{{Title: "Fresh", Link: "/news/fresh"}}}
	svc := newTestService(t, src, PolicyRefetch)

	if _, err := svc.Sync(context.Background(), store); !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if len(src.fetched) != 0 {
		t.Error("no fetch should happen after a corrupt load")
	}
	if _, err := os.Stat(store.BucketPath(entry.CategoryPatches)); !os.IsNotExist(err) {
		t.Error("patches bucket must not be written")
	}
	data, _ := os.ReadFile(store.BucketPath(entry.CategoryNews))
	if string(data) != string(corrupt) {
		t.Error("corrupt file must be left untouched")
	}
}

func TestSync_ListingFailureWritesNothing(t *testing.T) {
	store, err := storage.New(t.TempDir(), storage.Files{})
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	svc := newTestService(t, &fakeSource{listingErr: errors.New("dns failure")}, PolicyRefetch)
	if _, err := svc.Sync(context.Background(), store); err == nil {
		t.Fatal("expected error")
	}

	files, _ := os.ReadDir(store.DataDir())
	if len(files) != 0 {
		t.Errorf("expected empty data dir, found %d files", len(files))
	}
}

type fakeEventSource struct {
	result *eventfeed.Result
	err    error
}

func (f *fakeEventSource) Sync(context.Context) (*eventfeed.Result, error) {
	return f.result, f.err
}

func TestSyncEvents(t *testing.T) {
	store, err := storage.New(t.TempDir(), storage.Files{})
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	quiet := logger.New(logger.LevelError, io.Discard)

	previous := []byte(`{"data":[{"name":"Night Raid"}]}`)
	if _, err := SyncEvents(context.Background(), &fakeEventSource{result: &eventfeed.Result{Bytes: previous}}, store, quiet); err != nil {
		t.Fatalf("SyncEvents failed: %v", err)
	}

	// A failed fetch keeps the previous snapshot byte for byte
	failing := &fakeEventSource{err: eventfeed.ErrUnexpectedStatus}
	if _, err := SyncEvents(context.Background(), failing, store, quiet); !errors.Is(err, eventfeed.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}

	got, err := store.LoadEvents()
	if err != nil {
		t.Fatalf("LoadEvents failed: %v", err)
	}
	if string(got) != string(previous) {
		t.Errorf("snapshot changed after failed sync: %s", got)
	}
}

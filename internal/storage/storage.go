package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/k2fort/arcfeed/internal/entry"
)

// ErrCorrupt is returned when an existing bucket file is not a JSON array of
// entry objects. Callers must treat it as fatal and write nothing.
var ErrCorrupt = errors.New("bucket file is corrupt")

// Files names the persisted files inside the data directory
type Files struct {
	News    string
	Patches string
	Events  string
}

// DefaultFiles returns the conventional file names
func DefaultFiles() Files {
	return Files{
		News:    "news.json",
		Patches: "patches.json",
		Events:  "events.json",
	}
}

// Store handles persistence of buckets and the event snapshot
type Store struct {
	dataDir string
	files   Files
}

// New creates a new Store instance. Empty file names fall back to DefaultFiles.
func New(dataDir string, files Files) (*Store, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	defaults := DefaultFiles()
	if files.News == "" {
		files.News = defaults.News
	}
	if files.Patches == "" {
		files.Patches = defaults.Patches
	}
	if files.Events == "" {
		files.Events = defaults.Events
	}

	return &Store{
		dataDir: dataDir,
		files:   files,
	}, nil
}

// DataDir returns the resolved data directory
func (s *Store) DataDir() string {
	return s.dataDir
}

// BucketPath returns the file path of a category's bucket
func (s *Store) BucketPath(category entry.Category) string {
	if category == entry.CategoryPatches {
		return filepath.Join(s.dataDir, s.files.Patches)
	}
	return filepath.Join(s.dataDir, s.files.News)
}

// EventsPath returns the file path of the event snapshot
func (s *Store) EventsPath() string {
	return filepath.Join(s.dataDir, s.files.Events)
}

// LoadBucket loads a bucket from disk. A missing file yields an empty bucket;
// a file that fails validation yields ErrCorrupt.
func (s *Store) LoadBucket(category entry.Category) (*entry.Bucket, error) {
	path := s.BucketPath(category)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entry.NewBucket(category), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := validateBucket(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}

	var entries []*entry.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}

	bucket := entry.NewBucket(category)
	for _, e := range entries {
		if e != nil {
			bucket.Entries = append(bucket.Entries, e)
		}
	}
	return bucket, nil
}

// ReadBucketFile returns the raw bytes of a bucket file. The error satisfies
// os.IsNotExist when the bucket has never been saved.
func (s *Store) ReadBucketFile(category entry.Category) ([]byte, error) {
	return os.ReadFile(s.BucketPath(category))
}

// SaveBucket atomically replaces the bucket file
func (s *Store) SaveBucket(bucket *entry.Bucket) error {
	entries := bucket.Entries
	if entries == nil {
		entries = []*entry.Entry{}
	}

	data, err := encodeJSON(entries)
	if err != nil {
		return fmt.Errorf("encoding %s bucket: %w", bucket.Category, err)
	}

	if err := writeFileAtomic(s.BucketPath(bucket.Category), data, 0644); err != nil {
		return fmt.Errorf("writing %s bucket: %w", bucket.Category, err)
	}
	return nil
}

// LoadState loads both buckets, failing on the first corrupt one
func (s *Store) LoadState() (news, patches *entry.Bucket, err error) {
	news, err = s.LoadBucket(entry.CategoryNews)
	if err != nil {
		return nil, nil, err
	}
	patches, err = s.LoadBucket(entry.CategoryPatches)
	if err != nil {
		return nil, nil, err
	}
	return news, patches, nil
}

// SaveState persists both buckets
func (s *Store) SaveState(news, patches *entry.Bucket) error {
	if err := s.SaveBucket(news); err != nil {
		return err
	}
	return s.SaveBucket(patches)
}

// SaveEvents writes the event payload byte for byte
func (s *Store) SaveEvents(payload []byte) error {
	if err := writeFileAtomic(s.EventsPath(), payload, 0644); err != nil {
		return fmt.Errorf("writing events: %w", err)
	}
	return nil
}

// LoadEvents returns the stored event payload. The error satisfies
// os.IsNotExist when no snapshot has been written yet.
func (s *Store) LoadEvents() ([]byte, error) {
	data, err := os.ReadFile(s.EventsPath())
	if err != nil {
		return nil, err
	}
	return data, nil
}

// encodeJSON renders v with two-space indentation and without HTML escaping
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

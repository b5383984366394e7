// Package cache persists per-source price lookups to JSON files.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"commander_go/internal/domain"

	"github.com/shopspring/decimal"
)

// record is the on-disk shape of one entry. Price is null for a cached
// negative; timestamp is epoch seconds.
type record struct {
	Price     *float64 `json:"price"`
	Timestamp float64  `json:"timestamp"`
	Reason    string   `json:"reason,omitempty"`
	Source    string   `json:"source,omitempty"`
	Editions  int      `json:"editions_count,omitempty"`
}

type sourceFile struct {
	path    string
	entries map[string]record
}

// Store keeps one JSON file per source under dir. Every Put is written
// through to disk with write-then-rename.
type Store struct {
	dir     string
	mu      sync.Mutex
	sources map[string]*sourceFile
	now     func() time.Time
}

// NewStore creates the cache directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{
		dir:     dir,
		sources: make(map[string]*sourceFile),
		now:     time.Now,
	}, nil
}

// Path returns the backing file of a source
func (s *Store) Path(source string) string {
	return filepath.Join(s.dir, source+"_cache.json")
}

// Get returns the raw entry for (source, key). Validity against a TTL is
// the caller's decision.
func (s *Store) Get(source, key string) (domain.CachedPrice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.load(source).entries[key]
	if !ok {
		return domain.CachedPrice{}, false
	}
	return toCachedPrice(key, rec), true
}

// Put records a price (or a negative when value is nil) and persists the
// source file before returning. When the write fails the entry is not
// recorded, so memory never runs ahead of disk.
func (s *Store) Put(source, key string, value *decimal.Decimal, meta domain.CacheMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.load(source)
	rec := record{
		Timestamp: float64(s.now().UnixNano()) / 1e9,
		Reason:    string(meta.Reason),
		Source:    meta.Origin,
		Editions:  meta.Editions,
	}
	if value != nil {
		p := value.InexactFloat64()
		rec.Price = &p
	}
	next := maps.Clone(f.entries)
	next[key] = rec
	if err := writeAtomic(f.path, next); err != nil {
		return err
	}
	f.entries = next
	return nil
}

// Len returns the number of entries stored for source
func (s *Store) Len(source string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load(source).entries)
}

// Stats summarises a source under the given TTL
type Stats struct {
	Source   string
	Entries  int
	Positive int
	Negative int
	Stale    int
	Oldest   time.Time
}

// Stats counts entries of a source, classifying them against ttl at now
func (s *Store) Stats(source string, ttl time.Duration) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	st := Stats{Source: source}
	for key, rec := range s.load(source).entries {
		entry := toCachedPrice(key, rec)
		st.Entries++
		if entry.Negative() {
			st.Negative++
		} else {
			st.Positive++
		}
		if !entry.Fresh(now, ttl) {
			st.Stale++
		}
		if st.Oldest.IsZero() || entry.Timestamp.Before(st.Oldest) {
			st.Oldest = entry.Timestamp
		}
	}
	return st
}

// Keys returns the sorted keys of a source
func (s *Store) Keys(source string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load(source).entries
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// load returns the in-memory file of a source, reading it on first use.
// Must be called with mu held.
func (s *Store) load(source string) *sourceFile {
	if f, ok := s.sources[source]; ok {
		return f
	}

	f := &sourceFile{path: s.Path(source), entries: make(map[string]record)}
	s.sources[source] = f

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("Failed to read cache file, starting empty",
				slog.String("source", source), slog.Any("error", err))
		}
		return f
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Error("Corrupt cache file, starting empty",
			slog.String("source", source), slog.String("path", f.path), slog.Any("error", err))
		return f
	}

	for key, msg := range raw {
		var rec record
		if err := json.Unmarshal(msg, &rec); err != nil {
			slog.Warn("Skipping unreadable cache entry",
				slog.String("source", source), slog.String("key", key))
			continue
		}
		f.entries[key] = rec
	}

	slog.Info("Cache loaded", slog.String("source", source), slog.Int("entries", len(f.entries)))
	return f
}

func toCachedPrice(key string, rec record) domain.CachedPrice {
	entry := domain.CachedPrice{
		Key:       key,
		Timestamp: time.UnixMilli(int64(rec.Timestamp * 1000)),
		Meta: domain.CacheMeta{
			Reason:   domain.FailureReason(rec.Reason),
			Origin:   rec.Source,
			Editions: rec.Editions,
		},
	}
	if rec.Price != nil {
		v := decimal.NewFromFloat(*rec.Price)
		entry.Value = &v
	}
	return entry
}

// writeAtomic replaces path with the JSON encoding of v, so a process killed
// mid-write leaves either the old or the new file.
func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"commander_go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestStore_PutGet(t *testing.T) {
	s, _ := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	price := decimal.RequireFromString("12.34")
	require.NoError(t, s.Put("ligamagic", "Sol Ring", &price, domain.CacheMeta{Editions: 3}))

	entry, ok := s.Get("ligamagic", "Sol Ring")
	require.True(t, ok)
	require.False(t, entry.Negative())
	require.True(t, entry.Value.Equal(price))
	require.Equal(t, 3, entry.Meta.Editions)
	require.WithinDuration(t, now, entry.Timestamp, time.Millisecond)

	_, ok = s.Get("scryfall", "Sol Ring")
	require.False(t, ok, "sources must not share entries")
}

func TestStore_NegativeEntry(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Put("scryfall", "Black Lotus", nil, domain.CacheMeta{Reason: domain.ReasonNoPrice}))

	entry, ok := s.Get("scryfall", "Black Lotus")
	require.True(t, ok)
	require.True(t, entry.Negative())
	require.Equal(t, domain.ReasonNoPrice, entry.Meta.Reason)
}

func TestStore_LastWriteWins(t *testing.T) {
	s, _ := newTestStore(t)

	first := decimal.NewFromInt(1)
	second := decimal.NewFromInt(2)
	require.NoError(t, s.Put("ligamagic", "Island", &first, domain.CacheMeta{}))
	require.NoError(t, s.Put("ligamagic", "Island", &second, domain.CacheMeta{}))

	entry, ok := s.Get("ligamagic", "Island")
	require.True(t, ok)
	require.True(t, entry.Value.Equal(second))
	require.Equal(t, 1, s.Len("ligamagic"))
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	s, dir := newTestStore(t)

	price := decimal.RequireFromString("0.05")
	require.NoError(t, s.Put("ligamagic", "Island", &price, domain.CacheMeta{Origin: "render"}))
	require.NoError(t, s.Put("ligamagic", "Black Lotus", nil, domain.CacheMeta{Reason: domain.ReasonInvalidResult}))

	reopened, err := NewStore(dir)
	require.NoError(t, err)

	entry, ok := reopened.Get("ligamagic", "Island")
	require.True(t, ok)
	require.True(t, entry.Value.Equal(price))
	require.Equal(t, "render", entry.Meta.Origin)

	negative, ok := reopened.Get("ligamagic", "Black Lotus")
	require.True(t, ok)
	require.True(t, negative.Negative())
	require.Equal(t, domain.ReasonInvalidResult, negative.Meta.Reason)
}

func TestStore_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ligamagic_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := NewStore(dir)
	require.NoError(t, err)

	_, ok := s.Get("ligamagic", "Sol Ring")
	require.False(t, ok)
	require.Equal(t, 0, s.Len("ligamagic"))

	// The next write replaces the corrupt file
	price := decimal.NewFromInt(5)
	require.NoError(t, s.Put("ligamagic", "Sol Ring", &price, domain.CacheMeta{}))

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	_, ok = reopened.Get("ligamagic", "Sol Ring")
	require.True(t, ok)
}

func TestStore_SkipsBadEntries(t *testing.T) {
	dir := t.TempDir()
	content := `{
  "Sol Ring": {"price": 1.5, "timestamp": 1700000000},
  "Broken": "not an object",
  "Island": {"price": null, "timestamp": 1700000000, "reason": "no_prices_found", "unknown": true}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ligamagic_cache.json"), []byte(content), 0644))

	s, err := NewStore(dir)
	require.NoError(t, err)

	require.Equal(t, 2, s.Len("ligamagic"))
	_, ok := s.Get("ligamagic", "Broken")
	require.False(t, ok)

	island, ok := s.Get("ligamagic", "Island")
	require.True(t, ok)
	require.True(t, island.Negative())
	require.Equal(t, time.Unix(1700000000, 0), island.Timestamp)
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	s, dir := newTestStore(t)

	price := decimal.NewFromInt(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put("scryfall", "Sol Ring", &price, domain.CacheMeta{}))
	}

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "scryfall_cache.json", files[0].Name())
}

func TestStore_Stats(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	price := decimal.NewFromInt(1)
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put("ligamagic", "Old", &price, domain.CacheMeta{}))

	s.now = func() time.Time { return base.Add(10 * time.Hour) }
	require.NoError(t, s.Put("ligamagic", "New", &price, domain.CacheMeta{}))
	require.NoError(t, s.Put("ligamagic", "Gone", nil, domain.CacheMeta{Reason: domain.ReasonNotFound}))

	s.now = func() time.Time { return base.Add(13 * time.Hour) }
	st := s.Stats("ligamagic", 12*time.Hour)

	require.Equal(t, 3, st.Entries)
	require.Equal(t, 2, st.Positive)
	require.Equal(t, 1, st.Negative)
	require.Equal(t, 1, st.Stale)
	require.True(t, st.Oldest.Equal(base))
	require.Equal(t, []string{"Gone", "New", "Old"}, s.Keys("ligamagic"))
}

func TestStore_FailedWriteKeepsMemoryInSync(t *testing.T) {
	s, dir := newTestStore(t)

	price := decimal.NewFromInt(1)
	require.NoError(t, s.Put("ligamagic", "Sol Ring", &price, domain.CacheMeta{}))

	// A non-empty directory in place of the cache file makes the rename fail
	path := filepath.Join(dir, "ligamagic_cache.json")
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0755))

	require.Error(t, s.Put("ligamagic", "Island", &price, domain.CacheMeta{}))

	_, ok := s.Get("ligamagic", "Island")
	require.False(t, ok, "an entry that was not persisted must not be served")
	require.Equal(t, 1, s.Len("ligamagic"))

	_, ok = s.Get("ligamagic", "Sol Ring")
	require.True(t, ok)
}

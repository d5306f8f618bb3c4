package session

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptarch/store"
)

func openStore(t *testing.T) (store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := store.NewFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestHistoryAddNewestFirst(t *testing.T) {
	h := LoadHistory(nil, 0, nil)
	assert.Equal(t, DefaultHistoryLimit, h.Limit())

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.now = func() time.Time { return clock }

	first := h.Add("one", "refined one", ModeFast)
	h.Add("two", "refined two", ModePlan)

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Raw)
	assert.Equal(t, ModePlan, entries[0].Mode)
	assert.Equal(t, first, entries[1])
	assert.Equal(t, clock.UnixMilli(), first.Timestamp)
	assert.True(t, first.Time().Equal(clock))
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := LoadHistory(nil, DefaultHistoryLimit, nil)
	for i := 0; i < 51; i++ {
		h.Add(fmt.Sprintf("raw %02d", i), "refined", ModeFast)
	}

	entries := h.Entries()
	require.Len(t, entries, 50)
	assert.Equal(t, "raw 50", entries[0].Raw)
	assert.Equal(t, "raw 01", entries[49].Raw)
}

func TestHistoryEntriesIsACopy(t *testing.T) {
	h := LoadHistory(nil, 5, nil)
	h.Add("raw", "refined", ModeFast)

	entries := h.Entries()
	entries[0].Raw = "changed"

	assert.Equal(t, "raw", h.Entries()[0].Raw)
}

func TestHistoryPersistsAcrossLoads(t *testing.T) {
	s, path := openStore(t)

	h := LoadHistory(s, 10, nil)
	h.Add("first", "refined first", ModeFast)
	h.Add("second", "refined second", ModePlan)
	require.NoError(t, s.Close())

	reopened, err := store.NewFileStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded := LoadHistory(reopened, 10, nil)
	assert.Equal(t, h.Entries(), loaded.Entries())
}

func TestHistoryLoadTrimsToLimit(t *testing.T) {
	s, _ := openStore(t)

	var entries []Entry
	for i := 0; i < 8; i++ {
		entries = append(entries, Entry{ID: fmt.Sprint(i), Raw: fmt.Sprint(i), Mode: ModeFast})
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, s.Set(store.KeyHistory, string(data)))

	h := LoadHistory(s, 3, nil)
	got := h.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, "0", got[0].ID)
	assert.Equal(t, "2", got[2].ID)
}

func TestHistoryLoadFillsMissingIDs(t *testing.T) {
	s, _ := openStore(t)
	require.NoError(t, s.Set(store.KeyHistory, `[{"raw":"legacy","refined":"r","timestamp":1700000000000,"mode":"plan"}]`))

	entries := LoadHistory(s, 0, nil).Entries()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "legacy", entries[0].Raw)
	assert.Equal(t, ModePlan, entries[0].Mode)
}

func TestHistoryLoadMalformedStartsEmpty(t *testing.T) {
	s, _ := openStore(t)
	require.NoError(t, s.Set(store.KeyHistory, "{not json"))

	h := LoadHistory(s, 0, nil)
	assert.Zero(t, h.Len())

	h.Add("raw", "refined", ModeFast)
	raw, ok, err := s.Get(store.KeyHistory)
	require.NoError(t, err)
	require.True(t, ok)

	var stored []Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Len(t, stored, 1)
}

func TestHistoryClearRemovesKey(t *testing.T) {
	s, _ := openStore(t)
	h := LoadHistory(s, 0, nil)
	h.Add("raw", "refined", ModeFast)

	require.NoError(t, h.Clear())

	assert.Zero(t, h.Len())
	_, ok, err := s.Get(store.KeyHistory)
	require.NoError(t, err)
	assert.False(t, ok)
}

package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"promptarch/store"
)

// DefaultHistoryLimit is the number of entries kept when no limit is configured
const DefaultHistoryLimit = 50

// Entry is one completed refinement
type Entry struct {
	ID        string `json:"id"`
	Raw       string `json:"raw"`
	Refined   string `json:"refined"`
	Timestamp int64  `json:"timestamp"`
	Mode      Mode   `json:"mode"`
}

// Time returns the entry's creation time
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// History is a bounded log of refinements, newest first. Every change is
// written through to the store; write failures are logged and the in-memory
// log stays authoritative.
type History struct {
	mu      sync.Mutex
	entries []Entry
	limit   int
	store   store.Store
	logger  *zap.Logger
	now     func() time.Time
}

// LoadHistory reads the persisted log from s. A missing or malformed value
// starts an empty log. s may be nil for a log that is never persisted.
func LoadHistory(s store.Store, limit int, logger *zap.Logger) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &History{
		entries: []Entry{},
		limit:   limit,
		store:   s,
		logger:  logger.Named("history"),
		now:     time.Now,
	}
	if s == nil {
		return h
	}

	raw, ok, err := s.Get(store.KeyHistory)
	if err != nil {
		h.logger.Warn("failed to load prompt history", zap.Error(err))
		return h
	}
	if !ok {
		return h
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		h.logger.Warn("ignoring malformed prompt history", zap.Error(err))
		return h
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	h.entries = entries
	return h
}

// Add records a refinement at the front of the log, evicting the oldest
// entries beyond the limit
func (h *History) Add(raw, refined string, mode Mode) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := Entry{
		ID:        uuid.NewString(),
		Raw:       raw,
		Refined:   refined,
		Timestamp: h.now().UnixMilli(),
		Mode:      mode,
	}

	updated := make([]Entry, 0, min(len(h.entries)+1, h.limit))
	updated = append(updated, entry)
	updated = append(updated, h.entries...)
	if len(updated) > h.limit {
		updated = updated[:h.limit]
	}
	h.entries = updated

	h.persist()
	return entry
}

// Entries returns a copy of the log, newest first
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Limit returns the maximum number of entries kept
func (h *History) Limit() int {
	return h.limit
}

// Clear empties the log and removes its persisted value
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = []Entry{}
	if h.store == nil {
		return nil
	}
	return h.store.Delete(store.KeyHistory)
}

// persist writes the log; callers hold h.mu
func (h *History) persist() {
	if h.store == nil {
		return
	}
	data, err := json.Marshal(h.entries)
	if err != nil {
		h.logger.Warn("failed to encode prompt history", zap.Error(err))
		return
	}
	if err := h.store.Set(store.KeyHistory, string(data)); err != nil {
		h.logger.Warn("failed to save prompt history", zap.Error(err))
	}
}

package store

import (
	"slices"
	"sync"
)

// History is an in-memory log of finished cases for runs without a
// database. It is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{}
}

// Add records e, replacing an earlier entry with the same ID.
func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := slices.IndexFunc(h.entries, func(x HistoryEntry) bool { return x.ID == e.ID }); i >= 0 {
		h.entries[i] = e
		return
	}
	h.entries = append(h.entries, e)
}

// All returns entries newest first.
func (h *History) All() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := slices.Clone(h.entries)
	slices.Reverse(out)
	return out
}

// ByID returns the entry for a session.
func (h *History) ByID(id string) (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.entries {
		if e.ID == id {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// ByCondition returns entries for a condition key, newest first.
func (h *History) ByCondition(key string) []HistoryEntry {
	var out []HistoryEntry
	for _, e := range h.All() {
		if e.ConditionKey == key {
			out = append(out, e)
		}
	}
	return out
}

func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

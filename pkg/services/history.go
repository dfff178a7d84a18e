package services

import (
	"sync"

	"github.com/ekaya-inc/ekaya-sqlchat/pkg/models"
)

// DefaultHistorySize is used when a non-positive capacity is requested.
const DefaultHistorySize = 100

// History keeps the most recent successful runs in a fixed-size ring.
type History struct {
	mu      sync.Mutex
	entries []models.QueryHistoryEntry
	next    int
	full    bool
}

// NewHistory creates a History holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{entries: make([]models.QueryHistoryEntry, capacity)}
}

// Add stores entry, evicting the oldest one when full.
func (h *History) Add(entry models.QueryHistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = entry
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// List returns the stored entries, newest first.
func (h *History) List() []models.QueryHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.entries)
	}

	out := make([]models.QueryHistoryEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}

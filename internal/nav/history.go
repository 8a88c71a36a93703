// File: internal/nav/history.go
package nav

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity bounds per-tab history when no capacity is given.
const DefaultHistoryCapacity = 100

// HistoryEntry is one visited page. Immutable once pushed.
type HistoryEntry struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Favicon   string    `json:"favicon,omitempty"`
}

// History is a bounded back/forward stack. Pushing while positioned mid-stack
// truncates the forward branch; exceeding capacity drops the oldest entry.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	pos     int // -1 when empty
	cap     int
}

// NewHistory builds a history bounded to capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{pos: -1, cap: capacity}
}

// Push records a new entry at the current position, discarding any forward
// branch. Pushing the current URL again still creates a new entry so a reload
// remains a distinct visit.
func (h *History) Push(entry HistoryEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = h.entries[:h.pos+1]
	h.entries = append(h.entries, entry)
	h.pos++

	if len(h.entries) > h.cap {
		h.entries = h.entries[1:]
		h.pos--
	}
}

// Back moves one entry toward the oldest and returns it. ok is false at the
// start of history.
func (h *History) Back() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pos <= 0 {
		return HistoryEntry{}, false
	}
	h.pos--
	return h.entries[h.pos], true
}

// Forward moves one entry toward the newest and returns it. ok is false at
// the end of history.
func (h *History) Forward() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pos < 0 || h.pos >= len(h.entries)-1 {
		return HistoryEntry{}, false
	}
	h.pos++
	return h.entries[h.pos], true
}

// Current returns the entry at the current position.
func (h *History) Current() (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.pos < 0 {
		return HistoryEntry{}, false
	}
	return h.entries[h.pos], true
}

// CanGoBack reports whether Back would succeed.
func (h *History) CanGoBack() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pos > 0
}

// CanGoForward reports whether Forward would succeed.
func (h *History) CanGoForward() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pos >= 0 && h.pos < len(h.entries)-1
}

// Clear drops all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.pos = -1
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Position returns the 0-based current index, or -1 when empty.
func (h *History) Position() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pos
}

// Entries returns a copy of the stored entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

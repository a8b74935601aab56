// Package history keeps the bounded list of submitted command lines and the
// recall cursor that walks it.
package history

import (
	"context"
	"fmt"

	"github.com/nathoo/tabterm/store"
)

// DefaultSize is the number of commands kept when no size is configured.
const DefaultSize = 10

// History is a bounded list of command lines with cursor-based recall.
// Every submission is kept, including consecutive repeats.
type History struct {
	entries []string
	max     int
	cursor  int // len(entries) = past the end, a fresh blank line
}

// New creates a history holding at most max entries.
func New(max int) *History {
	if max < 1 {
		max = DefaultSize
	}
	return &History{
		entries: make([]string, 0, max),
		max:     max,
	}
}

// Push appends a line, drops the oldest entries beyond the limit and moves
// the cursor past the end.
func (h *History) Push(line string) {
	h.entries = append(h.entries, line)
	h.trim()
	h.cursor = len(h.entries)
}

func (h *History) trim() {
	if len(h.entries) > h.max {
		h.entries = append([]string(nil), h.entries[len(h.entries)-h.max:]...)
	}
}

// Prev steps to the previous (older) entry.
// Returns ("", false) if the cursor is already at the oldest entry.
func (h *History) Prev() (string, bool) {
	if h.cursor <= 0 {
		return "", false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Next steps to the next (newer) entry. Stepping onto the past-the-end slot
// returns ("", true). Returns ("", false) if the cursor is already there.
func (h *History) Next() (string, bool) {
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return "", true
	}
	return h.entries[h.cursor], true
}

// ResetCursor moves the cursor past the end.
func (h *History) ResetCursor() {
	h.cursor = len(h.entries)
}

// Cursor returns the current recall position.
func (h *History) Cursor() int { return h.cursor }

// Len returns the number of stored entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the stored lines, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Load restores entries from the store, keeping only the most recent ones.
// A missing key leaves the history empty.
func (h *History) Load(ctx context.Context, s store.Store) error {
	var entries []string
	if _, err := s.Get(ctx, store.KeyCommandHistory, &entries); err != nil {
		return fmt.Errorf("loading command history: %w", err)
	}
	h.entries = entries
	h.trim()
	h.cursor = len(h.entries)
	return nil
}

// Save persists the entries.
func (h *History) Save(ctx context.Context, s store.Store) error {
	if err := s.Set(ctx, store.KeyCommandHistory, h.Entries()); err != nil {
		return fmt.Errorf("saving command history: %w", err)
	}
	return nil
}

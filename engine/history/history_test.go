package history

import (
	"context"
	"testing"

	"github.com/nathoo/tabterm/store"
)

func TestPushTrimsToMax(t *testing.T) {
	h := New(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		h.Push(line)
	}
	got := h.Entries()
	want := []string{"c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if h.Cursor() != 3 {
		t.Errorf("cursor = %d, want past the end", h.Cursor())
	}
}

func TestPushKeepsRepeats(t *testing.T) {
	h := New(10)
	h.Push("tabs")
	h.Push("tabs")
	if h.Len() != 2 {
		t.Errorf("len = %d, want 2", h.Len())
	}
}

func TestRecallRoundTrip(t *testing.T) {
	h := New(10)
	lines := []string{"tabs", "cd 2", "info"}
	for _, l := range lines {
		h.Push(l)
	}

	for i := len(lines) - 1; i >= 0; i-- {
		got, ok := h.Prev()
		if !ok || got != lines[i] {
			t.Fatalf("Prev() = %q, %v, want %q", got, ok, lines[i])
		}
	}
	// Extra presses stay on the oldest entry.
	for i := 0; i < 3; i++ {
		if _, ok := h.Prev(); ok {
			t.Fatal("Prev() past the oldest entry should be a no-op")
		}
	}
	if h.Cursor() != 0 {
		t.Fatalf("cursor = %d, want 0", h.Cursor())
	}

	var last string
	for range lines {
		got, ok := h.Next()
		if !ok {
			t.Fatal("Next() reported unchanged too early")
		}
		last = got
	}
	if last != "" {
		t.Errorf("buffer after k Next() = %q, want empty", last)
	}
	if _, ok := h.Next(); ok {
		t.Error("Next() at the end should be a no-op")
	}
}

func TestRecallEmpty(t *testing.T) {
	h := New(10)
	if _, ok := h.Prev(); ok {
		t.Error("Prev() on empty history should be a no-op")
	}
	if _, ok := h.Next(); ok {
		t.Error("Next() on empty history should be a no-op")
	}
}

func TestResetCursor(t *testing.T) {
	h := New(10)
	h.Push("a")
	h.Push("b")
	h.Prev()
	h.Prev()
	h.ResetCursor()
	if got, _ := h.Prev(); got != "b" {
		t.Errorf("Prev() after reset = %q, want b", got)
	}
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	s.Set(ctx, store.KeyCommandHistory, []string{"1", "2", "3", "4", "5"})

	h := New(3)
	if err := h.Load(ctx, s); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := h.Entries(); len(got) != 3 || got[0] != "3" {
		t.Errorf("loaded = %v, want last 3", got)
	}
	if h.Cursor() != 3 {
		t.Errorf("cursor after load = %d, want 3", h.Cursor())
	}

	h.Push("6")
	if err := h.Save(ctx, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	var saved []string
	s.Get(ctx, store.KeyCommandHistory, &saved)
	if len(saved) != 3 || saved[2] != "6" {
		t.Errorf("saved = %v", saved)
	}
}

func TestLoadMissing(t *testing.T) {
	h := New(5)
	if err := h.Load(context.Background(), store.NewMemory()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if h.Len() != 0 || h.Cursor() != 0 {
		t.Errorf("expected empty history, got len %d cursor %d", h.Len(), h.Cursor())
	}
}

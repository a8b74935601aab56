package host

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nathoo/tabterm/types"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestMemory_ActiveTab(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := ActiveTab(ctx, m); !errors.Is(err, ErrNoActiveTab) {
		t.Fatalf("expected ErrNoActiveTab on empty window, got %v", err)
	}

	m.AddTab("Go", "https://go.dev")
	docs := m.AddTab("Docs", "https://pkg.go.dev")

	active, err := ActiveTab(ctx, m)
	if err != nil {
		t.Fatalf("ActiveTab failed: %v", err)
	}
	if active.ID != docs.ID {
		t.Errorf("active = %q, want newest tab %q", active.Title, docs.Title)
	}
	if active.Index != 1 {
		t.Errorf("index = %d, want 1", active.Index)
	}
}

func TestMemory_UpdateActivatesAndNavigates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	first := m.AddTab("Go", "https://go.dev")
	m.AddTab("Docs", "https://pkg.go.dev")

	if _, err := m.UpdateTab(ctx, first.ID, types.TabPatch{Active: boolPtr(true)}); err != nil {
		t.Fatalf("UpdateTab failed: %v", err)
	}
	active, _ := ActiveTab(ctx, m)
	if active.ID != first.ID {
		t.Errorf("expected first tab active, got %q", active.Title)
	}

	m.UpdateTab(ctx, first.ID, types.TabPatch{URL: strPtr("https://go.dev/doc")})
	if err := m.GoBack(ctx, first.ID); err != nil {
		t.Fatalf("GoBack failed: %v", err)
	}
	active, _ = ActiveTab(ctx, m)
	if active.URL != "https://go.dev" {
		t.Errorf("after back URL = %q", active.URL)
	}
	if err := m.GoForward(ctx, first.ID); err != nil {
		t.Fatalf("GoForward failed: %v", err)
	}
	if err := m.GoForward(ctx, first.ID); err == nil {
		t.Error("expected error with empty forward stack")
	}
}

func TestMemory_RemoveTabActivatesNeighbour(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddTab("A", "a")
	b := m.AddTab("B", "b")

	if err := m.RemoveTab(ctx, b.ID); err != nil {
		t.Fatalf("RemoveTab failed: %v", err)
	}
	active, err := ActiveTab(ctx, m)
	if err != nil || active.Title != "A" {
		t.Errorf("expected A active after close, got %q (%v)", active.Title, err)
	}
	if err := m.RemoveTab(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_MoveAndDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := m.AddTab("A", "a")
	m.AddTab("B", "b")

	dup, err := m.DuplicateTab(ctx, a.ID)
	if err != nil {
		t.Fatalf("DuplicateTab failed: %v", err)
	}
	if dup.Index != 1 || dup.Title != "A" {
		t.Errorf("duplicate = %+v, want index 1 title A", dup)
	}

	m.MoveTab(ctx, a.ID, 2)
	tabs, _ := m.QueryTabs(ctx, types.TabQuery{})
	if tabs[2].ID != a.ID {
		t.Errorf("expected A at index 2, got %q", tabs[2].Title)
	}
}

func TestMemory_Groups(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := m.AddTab("A", "a")

	gid, err := m.GroupTabs(ctx, []string{a.ID})
	if err != nil {
		t.Fatalf("GroupTabs failed: %v", err)
	}
	if err := m.UpdateTabGroup(ctx, gid, types.TabGroupPatch{Title: strPtr("work")}); err != nil {
		t.Fatalf("UpdateTabGroup failed: %v", err)
	}
	if title, _ := m.GroupTitle(gid); title != "work" {
		t.Errorf("group title = %q", title)
	}

	m.UngroupTab(ctx, a.ID)
	if _, ok := m.GroupTitle(gid); ok {
		t.Error("expected empty group to be dropped")
	}
}

func TestMemory_Windows(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddTab("A", "a")

	w, err := m.CreateWindow(ctx, types.WindowSpec{Incognito: true})
	if err != nil {
		t.Fatalf("CreateWindow failed: %v", err)
	}
	if !w.Incognito || len(w.Tabs) != 1 {
		t.Errorf("window = %+v", w)
	}
	cur, _ := m.CurrentWindow(ctx)
	if cur.ID != w.ID {
		t.Error("new window should be current")
	}

	all, _ := m.AllWindows(ctx, true)
	if len(all) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(all))
	}
	m.UpdateWindow(ctx, all[0].ID, types.WindowPatch{Focused: boolPtr(true), State: strPtr(types.WindowFullscreen)})
	cur, _ = m.CurrentWindow(ctx)
	if cur.ID != all[0].ID || cur.State != types.WindowFullscreen {
		t.Errorf("current = %+v", cur)
	}

	m.RemoveWindow(ctx, all[0].ID)
	cur, _ = m.CurrentWindow(ctx)
	if cur.ID != w.ID {
		t.Error("expected remaining window to become current")
	}
}

func TestMemory_BookmarksNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Now = fixedClock()
	m.CreateBookmark(ctx, types.Bookmark{Title: "one"})
	m.CreateBookmark(ctx, types.Bookmark{Title: "two"})
	m.CreateBookmark(ctx, types.Bookmark{Title: "three"})

	got, err := m.RecentBookmarks(ctx, 2)
	if err != nil {
		t.Fatalf("RecentBookmarks failed: %v", err)
	}
	if len(got) != 2 || got[0].Title != "three" || got[1].Title != "two" {
		t.Errorf("recent = %+v", got)
	}
}

func TestMemory_SearchHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Now = fixedClock()
	m.AddTab("Go", "https://go.dev")
	m.AddTab("Rust", "https://rust-lang.org")

	items, _ := m.SearchHistory(ctx, types.HistoryQuery{MaxResults: 10})
	if len(items) != 2 || items[0].URL != "https://rust-lang.org" {
		t.Errorf("history = %+v", items)
	}

	items, _ = m.SearchHistory(ctx, types.HistoryQuery{Text: "go.dev", MaxResults: 10})
	if len(items) != 1 {
		t.Errorf("filtered history = %+v", items)
	}
}

func TestMemory_CaptureAndDownload(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddTab("A", "a")

	img, err := m.CaptureVisibleTab(ctx, "")
	if err != nil {
		t.Fatalf("CaptureVisibleTab failed: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}

	if _, err := m.Download(ctx, types.DownloadSpec{Data: img, Filename: "shot.png"}); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	items, _ := m.SearchDownloads(ctx, types.DownloadQuery{Limit: 5})
	if len(items) != 1 || items[0].Filename != "shot.png" || items[0].TotalBytes != int64(len(img)) {
		t.Errorf("downloads = %+v", items)
	}
	if saved, ok := m.File("shot.png"); !ok || len(saved) != len(img) {
		t.Error("expected saved file bytes")
	}
}

func TestMemory_Failures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")
	m.Failures["QueryTabs"] = boom

	if _, err := m.QueryTabs(ctx, types.TabQuery{}); !errors.Is(err, boom) {
		t.Errorf("expected injected failure, got %v", err)
	}
}

// Package host defines the browser capabilities tabterm drives, grouped the
// way browser extension APIs group them, plus an in-memory implementation.
package host

import (
	"context"
	"errors"

	"github.com/nathoo/tabterm/types"
)

var (
	// ErrNotFound reports an unknown tab, window, or group ID.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported reports an operation the backend cannot perform.
	ErrUnsupported = errors.New("operation not supported by this host")
	// ErrNoActiveTab reports that no tab is active in the current window.
	ErrNoActiveTab = errors.New("no active tab found")
)

// Tabs enumerates and mutates tabs.
type Tabs interface {
	CreateTab(ctx context.Context, spec types.TabSpec) (types.Tab, error)
	QueryTabs(ctx context.Context, q types.TabQuery) ([]types.Tab, error)
	UpdateTab(ctx context.Context, id string, patch types.TabPatch) (types.Tab, error)
	RemoveTab(ctx context.Context, id string) error
	ReloadTab(ctx context.Context, id string) error
	DuplicateTab(ctx context.Context, id string) (types.Tab, error)
	MoveTab(ctx context.Context, id string, index int) error
	GoBack(ctx context.Context, id string) error
	GoForward(ctx context.Context, id string) error
	// GroupTabs puts the tabs in a new group and returns its ID.
	GroupTabs(ctx context.Context, ids []string) (string, error)
	UngroupTab(ctx context.Context, id string) error
	SetZoom(ctx context.Context, id string, factor float64) error
	GetZoom(ctx context.Context, id string) (float64, error)
	// CaptureVisibleTab returns a PNG of the active tab in the window.
	CaptureVisibleTab(ctx context.Context, windowID string) ([]byte, error)
}

// Windows enumerates and mutates windows.
type Windows interface {
	CreateWindow(ctx context.Context, spec types.WindowSpec) (types.Window, error)
	UpdateWindow(ctx context.Context, id string, patch types.WindowPatch) error
	RemoveWindow(ctx context.Context, id string) error
	CurrentWindow(ctx context.Context) (types.Window, error)
	// AllWindows lists windows; populate fills each Window.Tabs.
	AllWindows(ctx context.Context, populate bool) ([]types.Window, error)
}

// Bookmarks stores and lists bookmarks.
type Bookmarks interface {
	CreateBookmark(ctx context.Context, b types.Bookmark) (types.Bookmark, error)
	// RecentBookmarks returns up to n bookmarks, newest first.
	RecentBookmarks(ctx context.Context, n int) ([]types.Bookmark, error)
}

// History searches visited pages.
type History interface {
	SearchHistory(ctx context.Context, q types.HistoryQuery) ([]types.HistoryItem, error)
}

// Downloads saves files and lists past downloads.
type Downloads interface {
	Download(ctx context.Context, spec types.DownloadSpec) (string, error)
	SearchDownloads(ctx context.Context, q types.DownloadQuery) ([]types.DownloadItem, error)
}

// Management lists installed extensions.
type Management interface {
	Extensions(ctx context.Context) ([]types.Extension, error)
}

// TabGroups mutates tab groups.
type TabGroups interface {
	UpdateTabGroup(ctx context.Context, id string, patch types.TabGroupPatch) error
}

// Host is the complete control surface.
type Host interface {
	Tabs
	Windows
	Bookmarks
	History
	Downloads
	Management
	TabGroups
	Close() error
}

// ActiveTab returns the active tab of the current window.
func ActiveTab(ctx context.Context, t Tabs) (types.Tab, error) {
	tabs, err := t.QueryTabs(ctx, types.TabQuery{Active: true, CurrentWindow: true})
	if err != nil {
		return types.Tab{}, err
	}
	if len(tabs) == 0 {
		return types.Tab{}, ErrNoActiveTab
	}
	return tabs[0], nil
}

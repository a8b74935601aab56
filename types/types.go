// Package types defines the shared data structures for tabterm.
// It holds type definitions only.
package types

import "time"

// LineKind classifies a rendered output line.
type LineKind string

const (
	KindNormal  LineKind = "normal"
	KindCommand LineKind = "command"
	KindInfo    LineKind = "info"
	KindSuccess LineKind = "success"
	KindError   LineKind = "error"
	KindHistory LineKind = "history"
)

// OutputLine is one entry of the terminal log.
type OutputLine struct {
	Text string   `json:"text"`
	Kind LineKind `json:"type"`
}

// Tab is a browser tab as reported by the host.
type Tab struct {
	ID        string
	WindowID  string
	Index     int
	Title     string
	URL       string
	Active    bool
	Pinned    bool
	Muted     bool
	Incognito bool
	GroupID   string // empty when ungrouped
}

// TabQuery filters QueryTabs. The zero value matches every tab.
type TabQuery struct {
	Active        bool
	CurrentWindow bool
}

// TabSpec describes a tab to create.
type TabSpec struct {
	URL      string
	WindowID string // empty = current window
}

// TabPatch lists the tab fields to change; nil fields are left alone.
type TabPatch struct {
	Active *bool
	Pinned *bool
	Muted  *bool
	URL    *string
}

// TabGroupPatch lists the group fields to change.
type TabGroupPatch struct {
	Title *string
}

// Window is a browser window.
type Window struct {
	ID        string
	Focused   bool
	Type      string // "normal", "popup", ...
	State     string // "normal", "minimized", "maximized", "fullscreen"
	Incognito bool
	Tabs      []Tab // only filled when populated
}

// WindowSpec describes a window to create.
type WindowSpec struct {
	URL       string
	Incognito bool
}

// WindowPatch lists the window fields to change.
type WindowPatch struct {
	Focused *bool
	State   *string
}

// Window states.
const (
	WindowNormal     = "normal"
	WindowFullscreen = "fullscreen"
)

// Bookmark is a saved page.
type Bookmark struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	DateAdded time.Time `json:"date_added"`
}

// HistoryQuery filters SearchHistory.
type HistoryQuery struct {
	Text       string
	MaxResults int
	StartTime  time.Time
}

// HistoryItem is a visited page.
type HistoryItem struct {
	Title         string
	URL           string
	LastVisitTime time.Time
}

// DownloadSpec describes a download. Data, when set, is saved directly
// instead of fetching URL.
type DownloadSpec struct {
	URL      string
	Data     []byte
	Filename string
}

// DownloadQuery filters SearchDownloads. Results are newest first.
type DownloadQuery struct {
	Limit int
}

// DownloadItem is a recorded download.
type DownloadItem struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	URL           string    `json:"url"`
	State         string    `json:"state"` // "in_progress", "complete", "interrupted"
	BytesReceived int64     `json:"bytes_received"`
	TotalBytes    int64     `json:"total_bytes"`
	StartTime     time.Time `json:"start_time"`
}

// Extension is an installed browser extension or app.
type Extension struct {
	ID          string
	Name        string
	Version     string
	Description string
	Enabled     bool
	IsApp       bool
}

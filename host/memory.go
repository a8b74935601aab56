package host

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nathoo/tabterm/types"
)

const newTabURL = "chrome://newtab"

type memTab struct {
	tab     types.Tab
	back    []string
	forward []string
	zoom    float64
}

type memWindow struct {
	id        string
	typ       string
	state     string
	incognito bool
	tabs      []*memTab
}

type memGroup struct {
	title string
}

// Memory is an in-process browser. It backs the tests and --memory runs.
// Failures maps a method name (e.g. "QueryTabs") to an error that method
// returns instead of running.
type Memory struct {
	mu sync.Mutex

	Failures map[string]error
	Now      func() time.Time

	nextID     int
	windows    []*memWindow
	current    string
	groups     map[string]*memGroup
	bookmarks  []types.Bookmark
	history    []types.HistoryItem
	downloads  []types.DownloadItem
	files      map[string][]byte
	extensions []types.Extension
}

var _ Host = (*Memory)(nil)

// NewMemory creates a browser with one focused, empty window.
func NewMemory() *Memory {
	m := &Memory{
		Failures: map[string]error{},
		Now:      time.Now,
		groups:   map[string]*memGroup{},
		files:    map[string][]byte{},
	}
	w := &memWindow{id: m.newID(), typ: "normal", state: types.WindowNormal}
	m.windows = append(m.windows, w)
	m.current = w.id
	return m
}

// AddTab opens a tab with the given title in the current window and
// activates it.
func (m *Memory) AddTab(title, url string) types.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.window(m.current)
	t := m.openTab(w, url, len(w.tabs))
	t.tab.Title = title
	return m.snapshot(w, t)
}

// AddHistory records a visit.
func (m *Memory) AddHistory(item types.HistoryItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, item)
}

// AddExtension installs an extension.
func (m *Memory) AddExtension(ext types.Extension) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extensions = append(m.extensions, ext)
}

// File returns the bytes saved by a download with the given filename.
func (m *Memory) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[name]
	return b, ok
}

func (m *Memory) Close() error { return nil }

func (m *Memory) newID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func (m *Memory) fail(op string) error {
	if err, ok := m.Failures[op]; ok {
		return err
	}
	return nil
}

func (m *Memory) window(id string) *memWindow {
	for _, w := range m.windows {
		if w.id == id {
			return w
		}
	}
	return nil
}

func (m *Memory) findTab(id string) (*memWindow, *memTab, int) {
	for _, w := range m.windows {
		for i, t := range w.tabs {
			if t.tab.ID == id {
				return w, t, i
			}
		}
	}
	return nil, nil, -1
}

func (m *Memory) snapshot(w *memWindow, t *memTab) types.Tab {
	tab := t.tab
	tab.WindowID = w.id
	tab.Incognito = w.incognito
	for i, other := range w.tabs {
		if other == t {
			tab.Index = i
		}
	}
	return tab
}

func (m *Memory) activate(w *memWindow, t *memTab) {
	for _, other := range w.tabs {
		other.tab.Active = other == t
	}
}

// openTab inserts a new active tab at index. Caller holds m.mu.
func (m *Memory) openTab(w *memWindow, url string, index int) *memTab {
	if url == "" {
		url = newTabURL
	}
	t := &memTab{tab: types.Tab{ID: m.newID(), Title: url, URL: url}, zoom: 1}
	w.tabs = append(w.tabs, nil)
	copy(w.tabs[index+1:], w.tabs[index:])
	w.tabs[index] = t
	m.activate(w, t)
	m.visit(t.tab.Title, url)
	return t
}

func (m *Memory) visit(title, url string) {
	m.history = append(m.history, types.HistoryItem{Title: title, URL: url, LastVisitTime: m.Now()})
}

func (m *Memory) CreateTab(ctx context.Context, spec types.TabSpec) (types.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateTab"); err != nil {
		return types.Tab{}, err
	}
	winID := spec.WindowID
	if winID == "" {
		winID = m.current
	}
	w := m.window(winID)
	if w == nil {
		return types.Tab{}, fmt.Errorf("window %s: %w", winID, ErrNotFound)
	}
	t := m.openTab(w, spec.URL, len(w.tabs))
	return m.snapshot(w, t), nil
}

func (m *Memory) QueryTabs(ctx context.Context, q types.TabQuery) ([]types.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("QueryTabs"); err != nil {
		return nil, err
	}
	var out []types.Tab
	for _, w := range m.windows {
		if q.CurrentWindow && w.id != m.current {
			continue
		}
		for _, t := range w.tabs {
			if q.Active && !t.tab.Active {
				continue
			}
			out = append(out, m.snapshot(w, t))
		}
	}
	return out, nil
}

func (m *Memory) UpdateTab(ctx context.Context, id string, patch types.TabPatch) (types.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateTab"); err != nil {
		return types.Tab{}, err
	}
	w, t, _ := m.findTab(id)
	if t == nil {
		return types.Tab{}, fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	if patch.Active != nil && *patch.Active {
		m.activate(w, t)
	}
	if patch.Pinned != nil {
		t.tab.Pinned = *patch.Pinned
	}
	if patch.Muted != nil {
		t.tab.Muted = *patch.Muted
	}
	if patch.URL != nil {
		t.back = append(t.back, t.tab.URL)
		t.forward = nil
		t.tab.URL = *patch.URL
		t.tab.Title = *patch.URL
		m.visit(t.tab.Title, t.tab.URL)
	}
	return m.snapshot(w, t), nil
}

func (m *Memory) RemoveTab(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RemoveTab"); err != nil {
		return err
	}
	w, t, i := m.findTab(id)
	if t == nil {
		return fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
	if t.tab.Active && len(w.tabs) > 0 {
		if i >= len(w.tabs) {
			i = len(w.tabs) - 1
		}
		m.activate(w, w.tabs[i])
	}
	m.dropEmptyGroups()
	return nil
}

func (m *Memory) ReloadTab(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ReloadTab"); err != nil {
		return err
	}
	if _, t, _ := m.findTab(id); t == nil {
		return fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	return nil
}

func (m *Memory) DuplicateTab(ctx context.Context, id string) (types.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DuplicateTab"); err != nil {
		return types.Tab{}, err
	}
	w, t, i := m.findTab(id)
	if t == nil {
		return types.Tab{}, fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	dup := m.openTab(w, t.tab.URL, i+1)
	dup.tab.Title = t.tab.Title
	return m.snapshot(w, dup), nil
}

func (m *Memory) MoveTab(ctx context.Context, id string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MoveTab"); err != nil {
		return err
	}
	w, t, i := m.findTab(id)
	if t == nil {
		return fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
	if index < 0 || index > len(w.tabs) {
		index = len(w.tabs)
	}
	w.tabs = append(w.tabs, nil)
	copy(w.tabs[index+1:], w.tabs[index:])
	w.tabs[index] = t
	return nil
}

func (m *Memory) GoBack(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GoBack"); err != nil {
		return err
	}
	_, t, _ := m.findTab(id)
	if t == nil {
		return fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	if len(t.back) == 0 {
		return fmt.Errorf("cannot go back")
	}
	t.forward = append(t.forward, t.tab.URL)
	t.tab.URL = t.back[len(t.back)-1]
	t.tab.Title = t.tab.URL
	t.back = t.back[:len(t.back)-1]
	return nil
}

func (m *Memory) GoForward(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GoForward"); err != nil {
		return err
	}
	_, t, _ := m.findTab(id)
	if t == nil {
		return fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	if len(t.forward) == 0 {
		return fmt.Errorf("cannot go forward")
	}
	t.back = append(t.back, t.tab.URL)
	t.tab.URL = t.forward[len(t.forward)-1]
	t.tab.Title = t.tab.URL
	t.forward = t.forward[:len(t.forward)-1]
	return nil
}

func (m *Memory) GroupTabs(ctx context.Context, ids []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GroupTabs"); err != nil {
		return "", err
	}
	var tabs []*memTab
	for _, id := range ids {
		_, t, _ := m.findTab(id)
		if t == nil {
			return "", fmt.Errorf("tab %s: %w", id, ErrNotFound)
		}
		tabs = append(tabs, t)
	}
	gid := "g" + m.newID()
	m.groups[gid] = &memGroup{}
	for _, t := range tabs {
		t.tab.GroupID = gid
	}
	m.dropEmptyGroups()
	return gid, nil
}

func (m *Memory) UngroupTab(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UngroupTab"); err != nil {
		return err
	}
	_, t, _ := m.findTab(id)
	if t == nil {
		return fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	t.tab.GroupID = ""
	m.dropEmptyGroups()
	return nil
}

// dropEmptyGroups deletes groups with no tabs. Caller holds m.mu.
func (m *Memory) dropEmptyGroups() {
	used := map[string]bool{}
	for _, w := range m.windows {
		for _, t := range w.tabs {
			used[t.tab.GroupID] = true
		}
	}
	for id := range m.groups {
		if !used[id] {
			delete(m.groups, id)
		}
	}
}

// GroupTitle returns the title of a tab group.
func (m *Memory) GroupTitle(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return "", false
	}
	return g.title, true
}

func (m *Memory) UpdateTabGroup(ctx context.Context, id string, patch types.TabGroupPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateTabGroup"); err != nil {
		return err
	}
	g, ok := m.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	if patch.Title != nil {
		g.title = *patch.Title
	}
	return nil
}

func (m *Memory) SetZoom(ctx context.Context, id string, factor float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetZoom"); err != nil {
		return err
	}
	_, t, _ := m.findTab(id)
	if t == nil {
		return fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	if factor <= 0 {
		return fmt.Errorf("invalid zoom factor %v", factor)
	}
	t.zoom = factor
	return nil
}

func (m *Memory) GetZoom(ctx context.Context, id string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetZoom"); err != nil {
		return 0, err
	}
	_, t, _ := m.findTab(id)
	if t == nil {
		return 0, fmt.Errorf("tab %s: %w", id, ErrNotFound)
	}
	return t.zoom, nil
}

func (m *Memory) CaptureVisibleTab(ctx context.Context, windowID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CaptureVisibleTab"); err != nil {
		return nil, err
	}
	if windowID == "" {
		windowID = m.current
	}
	if m.window(windowID) == nil {
		return nil, fmt.Errorf("window %s: %w", windowID, ErrNotFound)
	}
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Memory) CreateWindow(ctx context.Context, spec types.WindowSpec) (types.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateWindow"); err != nil {
		return types.Window{}, err
	}
	w := &memWindow{id: m.newID(), typ: "normal", state: types.WindowNormal, incognito: spec.Incognito}
	m.windows = append(m.windows, w)
	m.current = w.id
	m.openTab(w, spec.URL, 0)
	return m.describe(w, true), nil
}

func (m *Memory) UpdateWindow(ctx context.Context, id string, patch types.WindowPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateWindow"); err != nil {
		return err
	}
	w := m.window(id)
	if w == nil {
		return fmt.Errorf("window %s: %w", id, ErrNotFound)
	}
	if patch.Focused != nil && *patch.Focused {
		m.current = w.id
	}
	if patch.State != nil {
		w.state = *patch.State
	}
	return nil
}

func (m *Memory) RemoveWindow(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RemoveWindow"); err != nil {
		return err
	}
	for i, w := range m.windows {
		if w.id != id {
			continue
		}
		m.windows = append(m.windows[:i], m.windows[i+1:]...)
		if m.current == id {
			m.current = ""
			if len(m.windows) > 0 {
				m.current = m.windows[0].id
			}
		}
		m.dropEmptyGroups()
		return nil
	}
	return fmt.Errorf("window %s: %w", id, ErrNotFound)
}

func (m *Memory) CurrentWindow(ctx context.Context) (types.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CurrentWindow"); err != nil {
		return types.Window{}, err
	}
	w := m.window(m.current)
	if w == nil {
		return types.Window{}, fmt.Errorf("current window: %w", ErrNotFound)
	}
	return m.describe(w, false), nil
}

func (m *Memory) AllWindows(ctx context.Context, populate bool) ([]types.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AllWindows"); err != nil {
		return nil, err
	}
	out := make([]types.Window, 0, len(m.windows))
	for _, w := range m.windows {
		out = append(out, m.describe(w, populate))
	}
	return out, nil
}

func (m *Memory) describe(w *memWindow, populate bool) types.Window {
	win := types.Window{
		ID:        w.id,
		Focused:   w.id == m.current,
		Type:      w.typ,
		State:     w.state,
		Incognito: w.incognito,
	}
	if populate {
		for _, t := range w.tabs {
			win.Tabs = append(win.Tabs, m.snapshot(w, t))
		}
	}
	return win
}

func (m *Memory) CreateBookmark(ctx context.Context, b types.Bookmark) (types.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateBookmark"); err != nil {
		return types.Bookmark{}, err
	}
	b.ID = m.newID()
	b.DateAdded = m.Now()
	m.bookmarks = append(m.bookmarks, b)
	return b, nil
}

func (m *Memory) RecentBookmarks(ctx context.Context, n int) ([]types.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RecentBookmarks"); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("invalid bookmark count %d", n)
	}
	var out []types.Bookmark
	for i := len(m.bookmarks) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.bookmarks[i])
	}
	return out, nil
}

func (m *Memory) SearchHistory(ctx context.Context, q types.HistoryQuery) ([]types.HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SearchHistory"); err != nil {
		return nil, err
	}
	text := strings.ToLower(q.Text)
	var out []types.HistoryItem
	for _, item := range m.history {
		if item.LastVisitTime.Before(q.StartTime) {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(item.Title+" "+item.URL), text) {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastVisitTime.After(out[j].LastVisitTime)
	})
	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}
	return out, nil
}

func (m *Memory) Download(ctx context.Context, spec types.DownloadSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Download"); err != nil {
		return "", err
	}
	name := spec.Filename
	if name == "" {
		name = path.Base(spec.URL)
	}
	item := types.DownloadItem{
		ID:            m.newID(),
		Filename:      name,
		URL:           spec.URL,
		State:         "complete",
		BytesReceived: int64(len(spec.Data)),
		TotalBytes:    int64(len(spec.Data)),
		StartTime:     m.Now(),
	}
	m.downloads = append(m.downloads, item)
	m.files[name] = append([]byte(nil), spec.Data...)
	return item.ID, nil
}

func (m *Memory) SearchDownloads(ctx context.Context, q types.DownloadQuery) ([]types.DownloadItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SearchDownloads"); err != nil {
		return nil, err
	}
	var out []types.DownloadItem
	for i := len(m.downloads) - 1; i >= 0; i-- {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		out = append(out, m.downloads[i])
	}
	return out, nil
}

func (m *Memory) Extensions(ctx context.Context) ([]types.Extension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Extensions"); err != nil {
		return nil, err
	}
	return append([]types.Extension(nil), m.extensions...), nil
}

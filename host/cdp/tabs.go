package cdp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/types"
)

// snapshot is one enumeration of the browser's targets.
type snapshot struct {
	tabs   []types.Tab
	states map[string]string // window ID -> window state
	infos  []*target.Info
}

func (s snapshot) find(id string) (types.Tab, bool) {
	for _, t := range s.tabs {
		if t.ID == id {
			return t, true
		}
	}
	return types.Tab{}, false
}

func (s snapshot) activeTab() (types.Tab, bool) {
	for _, t := range s.tabs {
		if t.Active {
			return t, true
		}
	}
	return types.Tab{}, false
}

// isPage reports whether a target is a user-visible tab.
func isPage(info *target.Info) bool {
	return info.Type == "page" && !strings.HasPrefix(info.URL, "devtools://")
}

// buildTabs turns page targets into tabs, grouped by window in order of
// first appearance. When active is not a page, the first page is active.
func buildTabs(infos []*target.Info, windows map[target.ID]browser.WindowID, active target.ID, incognito func(cdp.BrowserContextID) bool) []types.Tab {
	var order []browser.WindowID
	byWindow := map[browser.WindowID][]*target.Info{}
	found := false
	for _, info := range infos {
		if !isPage(info) {
			continue
		}
		wid := windows[info.TargetID]
		if _, seen := byWindow[wid]; !seen {
			order = append(order, wid)
		}
		byWindow[wid] = append(byWindow[wid], info)
		if info.TargetID == active {
			found = true
		}
	}
	if !found {
		active = ""
		if len(order) > 0 {
			active = byWindow[order[0]][0].TargetID
		}
	}

	var tabs []types.Tab
	for _, wid := range order {
		for i, info := range byWindow[wid] {
			tabs = append(tabs, types.Tab{
				ID:        string(info.TargetID),
				WindowID:  strconv.FormatInt(int64(wid), 10),
				Index:     i,
				Title:     info.Title,
				URL:       info.URL,
				Active:    info.TargetID == active,
				Incognito: incognito(info.BrowserContextID),
			})
		}
	}
	return tabs
}

func (h *Host) snapshot(ctx context.Context) (snapshot, error) {
	var infos []*target.Info
	windows := map[target.ID]browser.WindowID{}
	states := map[string]string{}

	err := h.browserDo(ctx, func(ctx context.Context) error {
		var err error
		infos, err = target.GetTargets().Do(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			if !isPage(info) {
				continue
			}
			wid, bounds, err := browser.GetWindowForTarget().WithTargetID(info.TargetID).Do(ctx)
			if err != nil {
				return fmt.Errorf("window for %s: %w", info.TargetID, err)
			}
			windows[info.TargetID] = wid
			if bounds != nil {
				states[strconv.FormatInt(int64(wid), 10)] = bounds.WindowState.String()
			}
		}
		return nil
	})
	if err != nil {
		return snapshot{}, err
	}

	tabs := buildTabs(infos, windows, h.activeID(), h.isIncognito)
	for _, t := range tabs {
		if t.Active {
			h.setActive(target.ID(t.ID))
		}
	}
	return snapshot{tabs: tabs, states: states, infos: infos}, nil
}

func (h *Host) CreateTab(ctx context.Context, spec types.TabSpec) (types.Tab, error) {
	url := spec.URL
	if url == "" {
		url = "about:blank"
	}
	var id target.ID
	err := h.browserDo(ctx, func(ctx context.Context) error {
		var err error
		id, err = target.CreateTarget(url).Do(ctx)
		return err
	})
	if err != nil {
		return types.Tab{}, err
	}
	h.setActive(id)
	return h.lookup(ctx, string(id))
}

func (h *Host) lookup(ctx context.Context, id string) (types.Tab, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return types.Tab{}, err
	}
	t, ok := snap.find(id)
	if !ok {
		return types.Tab{}, fmt.Errorf("tab %s: %w", id, host.ErrNotFound)
	}
	return t, nil
}

func (h *Host) QueryTabs(ctx context.Context, q types.TabQuery) ([]types.Tab, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	current := ""
	if t, ok := snap.activeTab(); ok {
		current = t.WindowID
	}
	var out []types.Tab
	for _, t := range snap.tabs {
		if q.Active && !t.Active {
			continue
		}
		if q.CurrentWindow && t.WindowID != current {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (h *Host) UpdateTab(ctx context.Context, id string, patch types.TabPatch) (types.Tab, error) {
	if patch.Pinned != nil {
		return types.Tab{}, fmt.Errorf("pin: %w", host.ErrUnsupported)
	}
	if patch.Muted != nil {
		return types.Tab{}, fmt.Errorf("mute: %w", host.ErrUnsupported)
	}
	if patch.URL != nil {
		if err := h.tabDo(ctx, target.ID(id), chromedp.Navigate(*patch.URL)); err != nil {
			return types.Tab{}, err
		}
	}
	if patch.Active != nil && *patch.Active {
		err := h.browserDo(ctx, func(ctx context.Context) error {
			return target.ActivateTarget(target.ID(id)).Do(ctx)
		})
		if err != nil {
			return types.Tab{}, err
		}
		h.setActive(target.ID(id))
	}
	return h.lookup(ctx, id)
}

func (h *Host) RemoveTab(ctx context.Context, id string) error {
	err := h.browserDo(ctx, func(ctx context.Context) error {
		return target.CloseTarget(target.ID(id)).Do(ctx)
	})
	if err != nil {
		return err
	}
	h.forget(target.ID(id))
	return nil
}

func (h *Host) ReloadTab(ctx context.Context, id string) error {
	return h.tabDo(ctx, target.ID(id), chromedp.Reload())
}

func (h *Host) DuplicateTab(ctx context.Context, id string) (types.Tab, error) {
	src, err := h.lookup(ctx, id)
	if err != nil {
		return types.Tab{}, err
	}
	return h.CreateTab(ctx, types.TabSpec{URL: src.URL})
}

func (h *Host) MoveTab(ctx context.Context, id string, index int) error {
	return fmt.Errorf("move: %w", host.ErrUnsupported)
}

func (h *Host) GoBack(ctx context.Context, id string) error {
	return h.navigateHistory(ctx, id, -1)
}

func (h *Host) GoForward(ctx context.Context, id string) error {
	return h.navigateHistory(ctx, id, 1)
}

func (h *Host) navigateHistory(ctx context.Context, id string, delta int64) error {
	return h.tabDo(ctx, target.ID(id), chromedp.ActionFunc(func(ctx context.Context) error {
		current, entries, err := page.GetNavigationHistory().Do(ctx)
		if err != nil {
			return fmt.Errorf("reading navigation history: %w", err)
		}
		next := current + delta
		if next < 0 || next >= int64(len(entries)) {
			if delta < 0 {
				return fmt.Errorf("cannot go back")
			}
			return fmt.Errorf("cannot go forward")
		}
		return page.NavigateToHistoryEntry(entries[next].ID).Do(ctx)
	}))
}

func (h *Host) GroupTabs(ctx context.Context, ids []string) (string, error) {
	return "", fmt.Errorf("group: %w", host.ErrUnsupported)
}

func (h *Host) UngroupTab(ctx context.Context, id string) error {
	return fmt.Errorf("ungroup: %w", host.ErrUnsupported)
}

func (h *Host) UpdateTabGroup(ctx context.Context, id string, patch types.TabGroupPatch) error {
	return fmt.Errorf("tab groups: %w", host.ErrUnsupported)
}

func (h *Host) SetZoom(ctx context.Context, id string, factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("invalid zoom factor %v", factor)
	}
	return h.tabDo(ctx, target.ID(id), chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetPageScaleFactor(factor).Do(ctx)
	}))
}

func (h *Host) GetZoom(ctx context.Context, id string) (float64, error) {
	var scale float64
	err := h.tabDo(ctx, target.ID(id),
		chromedp.Evaluate(`window.visualViewport ? window.visualViewport.scale : 1`, &scale))
	if err != nil {
		return 0, err
	}
	return scale, nil
}

func (h *Host) CaptureVisibleTab(ctx context.Context, windowID string) ([]byte, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var pick *types.Tab
	for i, t := range snap.tabs {
		if windowID != "" && t.WindowID != windowID {
			continue
		}
		if t.Active {
			pick = &snap.tabs[i]
			break
		}
		if pick == nil && windowID != "" {
			pick = &snap.tabs[i]
		}
	}
	if pick == nil {
		return nil, host.ErrNoActiveTab
	}

	var buf []byte
	if err := h.tabDo(ctx, target.ID(pick.ID), chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

func (h *Host) SearchHistory(ctx context.Context, q types.HistoryQuery) ([]types.HistoryItem, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	// Navigation entries carry no timestamps, so StartTime cannot filter.
	text := strings.ToLower(q.Text)
	seen := map[string]bool{}
	var out []types.HistoryItem
	for _, t := range snap.tabs {
		var entries []*page.NavigationEntry
		err := h.tabDo(ctx, target.ID(t.ID), chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			_, entries, err = page.GetNavigationHistory().Do(ctx)
			return err
		}))
		if err != nil {
			return nil, fmt.Errorf("history of tab %s: %w", t.ID, err)
		}
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if seen[e.URL] {
				continue
			}
			if text != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.URL), text) {
				continue
			}
			seen[e.URL] = true
			out = append(out, types.HistoryItem{Title: e.Title, URL: e.URL})
			if q.MaxResults > 0 && len(out) >= q.MaxResults {
				return out, nil
			}
		}
	}
	return out, nil
}

// extensionID returns the ID in a chrome-extension:// URL.
func extensionID(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, "chrome-extension://")
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, "/")
	return id, id != ""
}

// extensionsFrom lists one extension per ID among background targets.
func extensionsFrom(infos []*target.Info) []types.Extension {
	seen := map[string]bool{}
	var out []types.Extension
	for _, info := range infos {
		if info.Type != "service_worker" && info.Type != "background_page" {
			continue
		}
		id, ok := extensionID(info.URL)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		name := info.Title
		if name == "" || strings.HasPrefix(name, "chrome-extension://") {
			name = id
		}
		out = append(out, types.Extension{ID: id, Name: name, Enabled: true})
	}
	return out
}

func (h *Host) Extensions(ctx context.Context) ([]types.Extension, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return extensionsFrom(snap.infos), nil
}

package cdp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"

	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/types"
)

func parseWindowID(id string) (browser.WindowID, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q", id)
	}
	return browser.WindowID(n), nil
}

// buildWindows groups tabs into windows, keeping the tab order.
func buildWindows(tabs []types.Tab, states map[string]string, populate bool) []types.Window {
	var out []types.Window
	index := map[string]int{}
	for _, t := range tabs {
		i, ok := index[t.WindowID]
		if !ok {
			state := states[t.WindowID]
			if state == "" {
				state = types.WindowNormal
			}
			out = append(out, types.Window{
				ID:        t.WindowID,
				Type:      "normal",
				State:     state,
				Incognito: t.Incognito,
			})
			i = len(out) - 1
			index[t.WindowID] = i
		}
		if t.Active {
			out[i].Focused = true
		}
		if populate {
			out[i].Tabs = append(out[i].Tabs, t)
		}
	}
	return out
}

func (h *Host) CreateWindow(ctx context.Context, spec types.WindowSpec) (types.Window, error) {
	url := spec.URL
	if url == "" {
		url = "about:blank"
	}
	var id target.ID
	err := h.browserDo(ctx, func(ctx context.Context) error {
		params := target.CreateTarget(url).WithNewWindow(true)
		if spec.Incognito {
			bc, err := target.CreateBrowserContext().Do(ctx)
			if err != nil {
				return fmt.Errorf("creating browser context: %w", err)
			}
			h.mu.Lock()
			h.incognito[bc] = true
			h.mu.Unlock()
			params = params.WithBrowserContextID(bc)
		}
		var err error
		id, err = params.Do(ctx)
		return err
	})
	if err != nil {
		return types.Window{}, err
	}
	h.setActive(id)
	return h.CurrentWindow(ctx)
}

func (h *Host) UpdateWindow(ctx context.Context, id string, patch types.WindowPatch) error {
	wid, err := parseWindowID(id)
	if err != nil {
		return err
	}
	if patch.State != nil {
		err := h.browserDo(ctx, func(ctx context.Context) error {
			return browser.SetWindowBounds(wid, &browser.Bounds{
				WindowState: browser.WindowState(*patch.State),
			}).Do(ctx)
		})
		if err != nil {
			return err
		}
	}
	if patch.Focused != nil && *patch.Focused {
		snap, err := h.snapshot(ctx)
		if err != nil {
			return err
		}
		for _, t := range snap.tabs {
			if t.WindowID == id {
				_, err := h.UpdateTab(ctx, t.ID, types.TabPatch{Active: patch.Focused})
				return err
			}
		}
		return fmt.Errorf("window %s: %w", id, host.ErrNotFound)
	}
	return nil
}

func (h *Host) RemoveWindow(ctx context.Context, id string) error {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return err
	}
	var ids []target.ID
	var contexts []cdp.BrowserContextID
	for _, info := range snap.infos {
		if !isPage(info) {
			continue
		}
		if t, ok := snap.find(string(info.TargetID)); ok && t.WindowID == id {
			ids = append(ids, info.TargetID)
			if t.Incognito {
				contexts = append(contexts, info.BrowserContextID)
			}
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("window %s: %w", id, host.ErrNotFound)
	}
	err = h.browserDo(ctx, func(ctx context.Context) error {
		for _, tid := range ids {
			if err := target.CloseTarget(tid).Do(ctx); err != nil {
				return err
			}
		}
		for _, bc := range contexts {
			if err := target.DisposeBrowserContext(bc).Do(ctx); err != nil {
				return fmt.Errorf("disposing browser context: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, tid := range ids {
		h.forget(tid)
	}
	h.mu.Lock()
	for _, bc := range contexts {
		delete(h.incognito, bc)
	}
	h.mu.Unlock()
	return nil
}

func (h *Host) CurrentWindow(ctx context.Context) (types.Window, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return types.Window{}, err
	}
	active, ok := snap.activeTab()
	if !ok {
		return types.Window{}, host.ErrNoActiveTab
	}
	for _, w := range buildWindows(snap.tabs, snap.states, true) {
		if w.ID == active.WindowID {
			return w, nil
		}
	}
	return types.Window{}, fmt.Errorf("window %s: %w", active.WindowID, host.ErrNotFound)
}

func (h *Host) AllWindows(ctx context.Context, populate bool) ([]types.Window, error) {
	snap, err := h.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return buildWindows(snap.tabs, snap.states, populate), nil
}

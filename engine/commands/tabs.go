package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/types"
)

const newTabURL = "chrome://newtab"

var errTabNotFound = errors.New(`tab not found, use "tabs" to see available tabs`)

// TabCache holds the tab list from the last "tabs" command. "cd" and Tab
// completion read it, fetching once if it is empty.
type TabCache struct {
	host host.Tabs
	tabs []types.Tab
}

// NewTabCache returns an empty cache over h.
func NewTabCache(h host.Tabs) *TabCache {
	return &TabCache{host: h}
}

// Tabs returns the cached list, fetching it if the cache is empty.
func (c *TabCache) Tabs(ctx context.Context) ([]types.Tab, error) {
	if len(c.tabs) == 0 {
		if _, err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return c.tabs, nil
}

// Refresh replaces the cached list with every open tab.
func (c *TabCache) Refresh(ctx context.Context) ([]types.Tab, error) {
	tabs, err := c.host.QueryTabs(ctx, types.TabQuery{})
	if err != nil {
		return nil, err
	}
	c.tabs = tabs
	return tabs, nil
}

func listTabs(ctx context.Context, env *Env, args []string) (string, error) {
	tabs, err := env.Tabs.Refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tabs: %w", err)
	}
	lines := make([]string, len(tabs))
	for i, t := range tabs {
		lines[i] = fmt.Sprintf("%d. %s", i+1, truncate(t.Title, 70))
	}
	return strings.Join(lines, "\n"), nil
}

func cd(ctx context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: cd <tab number or tab name>", nil
	}
	want := strings.Join(args, " ")

	tabs, err := env.Tabs.Tabs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to switch tab: %w", err)
	}

	var target *types.Tab
	if n, err := strconv.Atoi(want); err == nil {
		if n >= 1 && n <= len(tabs) {
			target = &tabs[n-1]
		}
	} else {
		term := strings.ToLower(want)
		for i := range tabs {
			if strings.Contains(strings.ToLower(tabs[i].Title), term) {
				target = &tabs[i]
				break
			}
		}
	}
	if target == nil {
		return "", fmt.Errorf("failed to switch tab: %w", errTabNotFound)
	}

	active := true
	if _, err := env.Host.UpdateTab(ctx, target.ID, types.TabPatch{Active: &active}); err != nil {
		return "", fmt.Errorf("failed to switch tab: %w", err)
	}
	if err := env.Host.UpdateWindow(ctx, target.WindowID, types.WindowPatch{Focused: &active}); err != nil {
		return "", fmt.Errorf("failed to switch tab: %w", err)
	}
	return "Switched to tab: " + target.Title, nil
}

func newTab(ctx context.Context, env *Env, args []string) (string, error) {
	u := newTabURL
	if len(args) > 0 {
		u = args[0]
	}
	if _, err := env.Host.CreateTab(ctx, types.TabSpec{URL: u}); err != nil {
		return "", fmt.Errorf("failed to open new tab: %w", err)
	}
	return "New tab opened successfully", nil
}

func search(ctx context.Context, env *Env, args []string) (string, error) {
	query := strings.Join(args, " ")
	if query == "" {
		return "Usage: search <query>", nil
	}
	u := "https://www.google.com/search?q=" + url.QueryEscape(query)
	if _, err := env.Host.CreateTab(ctx, types.TabSpec{URL: u}); err != nil {
		return "", fmt.Errorf("failed to search: %w", err)
	}
	return "Search results opened in new tab", nil
}

func closeTab(ctx context.Context, env *Env, args []string) (string, error) {
	tab, err := activeTab(ctx, env)
	if err != nil {
		return "", fmt.Errorf("failed to close tab: %w", err)
	}
	if err := env.Host.RemoveTab(ctx, tab.ID); err != nil {
		return "", fmt.Errorf("failed to close tab: %w", err)
	}
	return "Tab closed successfully", nil
}

// onActive runs fn against the active tab, wrapping any failure with verb.
func onActive(ctx context.Context, env *Env, verb string, fn func(types.Tab) (string, error)) (string, error) {
	tab, err := activeTab(ctx, env)
	if err != nil {
		return "", fmt.Errorf("failed to %s: %w", verb, err)
	}
	out, err := fn(tab)
	if err != nil {
		return "", fmt.Errorf("failed to %s: %w", verb, err)
	}
	return out, nil
}

func reload(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "reload page", func(tab types.Tab) (string, error) {
		return "Page reloaded successfully", env.Host.ReloadTab(ctx, tab.ID)
	})
}

func duplicate(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "duplicate tab", func(tab types.Tab) (string, error) {
		_, err := env.Host.DuplicateTab(ctx, tab.ID)
		return "Tab duplicated successfully", err
	})
}

func pin(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "toggle pin state", func(tab types.Tab) (string, error) {
		pinned := !tab.Pinned
		if _, err := env.Host.UpdateTab(ctx, tab.ID, types.TabPatch{Pinned: &pinned}); err != nil {
			return "", err
		}
		if pinned {
			return "Tab pinned successfully", nil
		}
		return "Tab unpinned successfully", nil
	})
}

func mute(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "toggle mute state", func(tab types.Tab) (string, error) {
		muted := !tab.Muted
		if _, err := env.Host.UpdateTab(ctx, tab.ID, types.TabPatch{Muted: &muted}); err != nil {
			return "", err
		}
		if muted {
			return "Tab muted successfully", nil
		}
		return "Tab unmuted successfully", nil
	})
}

func back(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "navigate back", func(tab types.Tab) (string, error) {
		return "Navigated back successfully", env.Host.GoBack(ctx, tab.ID)
	})
}

func forward(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "navigate forward", func(tab types.Tab) (string, error) {
		return "Navigated forward successfully", env.Host.GoForward(ctx, tab.ID)
	})
}

func info(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "get tab info", func(tab types.Tab) (string, error) {
		return fmt.Sprintf(`Current tab information:
Title: %s
URL: %s
ID: %s
Index: %d
Pinned: %t
Muted: %t
Incognito: %t`, tab.Title, tab.URL, tab.ID, tab.Index, tab.Pinned, tab.Muted, tab.Incognito), nil
	})
}

func pageURL(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "get/set URL", func(tab types.Tab) (string, error) {
		if len(args) == 0 {
			return "Current URL: " + tab.URL, nil
		}
		u := args[0]
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			u = "http://" + u
		}
		if _, err := env.Host.UpdateTab(ctx, tab.ID, types.TabPatch{URL: &u}); err != nil {
			return "", err
		}
		return "URL updated to: " + u, nil
	})
}

func title(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "get title", func(tab types.Tab) (string, error) {
		return "Current title: " + tab.Title, nil
	})
}

func moveTo(ctx context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: moveto <index>", nil
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return "Usage: moveto <index>", nil
	}
	return onActive(ctx, env, "move tab", func(tab types.Tab) (string, error) {
		return fmt.Sprintf("Tab moved to index %d", index), env.Host.MoveTab(ctx, tab.ID, index)
	})
}

func count(ctx context.Context, env *Env, args []string) (string, error) {
	tabs, err := env.Host.QueryTabs(ctx, types.TabQuery{})
	if err != nil {
		return "", fmt.Errorf("failed to count tabs: %w", err)
	}
	wins, err := env.Host.AllWindows(ctx, false)
	if err != nil {
		return "", fmt.Errorf("failed to count tabs: %w", err)
	}
	return fmt.Sprintf("Total tabs: %d (across %d windows)", len(tabs), len(wins)), nil
}

func zoom(ctx context.Context, env *Env, args []string) (string, error) {
	var percent float64
	if len(args) > 0 {
		p, err := strconv.ParseFloat(args[0], 64)
		if err != nil || p <= 0 {
			return "Usage: zoom [percent]", nil
		}
		percent = p
	}
	return onActive(ctx, env, "get/set zoom", func(tab types.Tab) (string, error) {
		if percent > 0 {
			if err := env.Host.SetZoom(ctx, tab.ID, percent/100); err != nil {
				return "", err
			}
			return fmt.Sprintf("Zoom level set to %s%%", args[0]), nil
		}
		factor, err := env.Host.GetZoom(ctx, tab.ID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Current zoom level: %d%%", int(math.Round(factor*100))), nil
	})
}

func translate(ctx context.Context, env *Env, args []string) (string, error) {
	lang := "en"
	if len(args) > 0 {
		lang = args[0]
	}
	return onActive(ctx, env, "translate page", func(tab types.Tab) (string, error) {
		u := "https://translate.google.com/translate?sl=auto&tl=" + url.QueryEscape(lang) +
			"&u=" + url.QueryEscape(tab.URL)
		if _, err := env.Host.CreateTab(ctx, types.TabSpec{URL: u}); err != nil {
			return "", err
		}
		return fmt.Sprintf("Page opened in Google Translate (target language: %s)", lang), nil
	})
}

func group(ctx context.Context, env *Env, args []string) (string, error) {
	name := strings.Join(args, " ")
	return onActive(ctx, env, "group tab", func(tab types.Tab) (string, error) {
		gid, err := env.Host.GroupTabs(ctx, []string{tab.ID})
		if err != nil {
			return "", err
		}
		if name == "" {
			return "Tab grouped successfully", nil
		}
		if err := env.Host.UpdateTabGroup(ctx, gid, types.TabGroupPatch{Title: &name}); err != nil {
			return "", err
		}
		return fmt.Sprintf("Tab grouped as %q successfully", name), nil
	})
}

func ungroup(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "ungroup tab", func(tab types.Tab) (string, error) {
		return "Tab ungrouped successfully", env.Host.UngroupTab(ctx, tab.ID)
	})
}

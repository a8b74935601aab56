package cdp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"

	"github.com/nathoo/tabterm/types"
)

func noIncognito(cdp.BrowserContextID) bool { return false }

func pageInfo(id, title, url string) *target.Info {
	return &target.Info{TargetID: target.ID(id), Type: "page", Title: title, URL: url}
}

func TestBuildTabs(t *testing.T) {
	infos := []*target.Info{
		pageInfo("a", "A", "https://a"),
		{TargetID: "sw", Type: "service_worker", URL: "chrome-extension://abc/bg.js"},
		pageInfo("b", "B", "https://b"),
		pageInfo("dev", "DevTools", "devtools://devtools/bundled/inspector.html"),
		pageInfo("c", "C", "https://c"),
	}
	windows := map[target.ID]browser.WindowID{"a": 1, "b": 2, "c": 1}

	tabs := buildTabs(infos, windows, "b", noIncognito)
	if len(tabs) != 3 {
		t.Fatalf("expected 3 tabs, got %d: %+v", len(tabs), tabs)
	}

	want := []struct {
		id, window string
		index      int
		active     bool
	}{
		{"a", "1", 0, false},
		{"c", "1", 1, false},
		{"b", "2", 0, true},
	}
	for i, w := range want {
		got := tabs[i]
		if got.ID != w.id || got.WindowID != w.window || got.Index != w.index || got.Active != w.active {
			t.Errorf("tab %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestBuildTabs_FallbackActive(t *testing.T) {
	infos := []*target.Info{pageInfo("a", "A", "https://a"), pageInfo("b", "B", "https://b")}
	tabs := buildTabs(infos, map[target.ID]browser.WindowID{"a": 7, "b": 7}, "gone", noIncognito)
	if !tabs[0].Active || tabs[1].Active {
		t.Errorf("expected first tab active, got %+v", tabs)
	}
}

func TestBuildTabs_Incognito(t *testing.T) {
	info := pageInfo("a", "A", "https://a")
	info.BrowserContextID = "private"
	tabs := buildTabs([]*target.Info{info}, nil, "a", func(bc cdp.BrowserContextID) bool {
		return bc == "private"
	})
	if !tabs[0].Incognito {
		t.Error("expected incognito tab")
	}
}

func TestBuildWindows(t *testing.T) {
	tabs := []types.Tab{
		{ID: "a", WindowID: "1"},
		{ID: "b", WindowID: "1", Active: true},
		{ID: "c", WindowID: "2"},
	}
	wins := buildWindows(tabs, map[string]string{"2": "fullscreen"}, true)
	if len(wins) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(wins))
	}
	if !wins[0].Focused || len(wins[0].Tabs) != 2 || wins[0].State != types.WindowNormal {
		t.Errorf("window 1 = %+v", wins[0])
	}
	if wins[1].Focused || wins[1].State != "fullscreen" {
		t.Errorf("window 2 = %+v", wins[1])
	}

	if wins := buildWindows(tabs, nil, false); wins[0].Tabs != nil {
		t.Error("expected no tabs without populate")
	}
}

func TestExtensionsFrom(t *testing.T) {
	infos := []*target.Info{
		{Type: "service_worker", Title: "Dark Reader", URL: "chrome-extension://abc/background.js"},
		{Type: "background_page", Title: "", URL: "chrome-extension://def/bg.html"},
		{Type: "service_worker", Title: "Dark Reader", URL: "chrome-extension://abc/other.js"},
		{Type: "service_worker", URL: "https://site/sw.js"},
		pageInfo("p", "Options", "chrome-extension://abc/options.html"),
	}
	exts := extensionsFrom(infos)
	if len(exts) != 2 {
		t.Fatalf("expected 2 extensions, got %+v", exts)
	}
	if exts[0].ID != "abc" || exts[0].Name != "Dark Reader" {
		t.Errorf("first = %+v", exts[0])
	}
	if exts[1].Name != "def" {
		t.Errorf("untitled extension should use its ID, got %q", exts[1].Name)
	}
}

func TestParseWindowID(t *testing.T) {
	if id, err := parseWindowID("42"); err != nil || id != 42 {
		t.Errorf("parseWindowID(42) = %d, %v", id, err)
	}
	if _, err := parseWindowID("x"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestDiscovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/version":
			json.NewEncoder(w).Encode(map[string]string{"webSocketDebuggerUrl": "ws://x/devtools/browser/1"})
		case "/json/list":
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "d", "type": "page", "url": "devtools://devtools"},
				{"id": "w", "type": "service_worker", "url": "chrome-extension://a/b.js"},
				{"id": "p", "type": "page", "url": "https://go.dev"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	ws, err := getWSURL(ctx, srv.URL+"/")
	if err != nil || ws != "ws://x/devtools/browser/1" {
		t.Errorf("getWSURL = %q, %v", ws, err)
	}
	id, err := findPageTarget(ctx, srv.URL)
	if err != nil || id != "p" {
		t.Errorf("findPageTarget = %q, %v", id, err)
	}
}

func TestDiscovery_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := getWSURL(context.Background(), srv.URL); err == nil {
		t.Error("expected error when /json/version is missing")
	}
}

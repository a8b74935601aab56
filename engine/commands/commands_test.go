package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/tabterm/engine/alias"
	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/store"
	"github.com/nathoo/tabterm/types"
)

type fakeScreen struct {
	cleared, historyCleared bool
}

func (f *fakeScreen) Clear()        { f.cleared = true }
func (f *fakeScreen) ClearHistory() { f.historyCleared = true }

func newEnv(t *testing.T) (*Env, *host.Memory) {
	t.Helper()
	m := host.NewMemory()
	s := store.NewMemory()
	return &Env{
		Host:    m,
		Tabs:    NewTabCache(m),
		Aliases: alias.New(s),
		Screen:  &fakeScreen{},
		Store:   s,
		Now:     func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 123e6, time.UTC) },
	}, m
}

func run(t *testing.T, env *Env, name string, args ...string) (string, error) {
	t.Helper()
	c, ok := Builtins().Lookup(name)
	if !ok {
		t.Fatalf("command %q not registered", name)
	}
	return c.Run(context.Background(), env, args)
}

func mustRun(t *testing.T, env *Env, name string, args ...string) string {
	t.Helper()
	out, err := run(t, env, name, args...)
	if err != nil {
		t.Fatalf("%s %v failed: %v", name, args, err)
	}
	return out
}

func TestBuiltinsRegistered(t *testing.T) {
	r := Builtins()
	want := []string{
		"help", "search", "newtab", "tabs", "cd", "close", "bookmark", "bookmarks",
		"history", "clear", "clearhistory", "reload", "duplicate", "pin", "mute",
		"back", "forward", "info", "group", "ungroup", "screenshot", "downloads",
		"extensions", "windows", "focus", "incognito", "closewindow", "fullscreen",
		"url", "title", "moveto", "count", "zoom", "translate", "shortcuts", "alias",
	}
	for _, name := range want {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("missing command %q", name)
		}
	}
	if len(r.Names()) != len(want) {
		t.Errorf("registered %d commands, want %d", len(r.Names()), len(want))
	}
}

func TestKinds(t *testing.T) {
	r := Builtins()
	listing := map[string]bool{"tabs": true, "bookmarks": true, "history": true, "downloads": true, "extensions": true}
	for _, name := range r.Names() {
		c, _ := r.Lookup(name)
		want := types.KindSuccess
		if listing[name] {
			want = types.KindHistory
		}
		if c.Kind() != want {
			t.Errorf("%s kind = %q, want %q", name, c.Kind(), want)
		}
	}
}

func TestHelpListsEveryCommand(t *testing.T) {
	env, _ := newEnv(t)
	out := mustRun(t, env, "help")
	if !strings.HasPrefix(out, "Available commands:") {
		t.Errorf("help = %q", out)
	}
	for _, name := range Builtins().Names() {
		if !strings.Contains(out, "- "+name) {
			t.Errorf("help missing %q", name)
		}
	}
}

func TestUsageStrings(t *testing.T) {
	env, _ := newEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"cd", nil, "Usage: cd <tab number or tab name>"},
		{"search", nil, "Usage: search <query>"},
		{"focus", nil, "Usage: focus <window number>"},
		{"focus", []string{"x"}, "Usage: focus <window number>"},
		{"moveto", nil, "Usage: moveto <index>"},
		{"moveto", []string{"left"}, "Usage: moveto <index>"},
		{"zoom", []string{"huge"}, "Usage: zoom [percent]"},
		{"alias", []string{"x"}, "Usage: alias <name> <command>"},
	}
	for _, tt := range tests {
		got, err := run(t, env, tt.name, tt.args...)
		if err != nil {
			t.Errorf("%s %v: unexpected error %v", tt.name, tt.args, err)
		}
		if got != tt.want {
			t.Errorf("%s %v = %q, want %q", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestTabsTruncatesAndCaches(t *testing.T) {
	env, m := newEnv(t)
	long := strings.Repeat("x", 80)
	m.AddTab("Go", "https://go.dev")
	m.AddTab(long, "https://long")

	out := mustRun(t, env, "tabs")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || lines[0] != "1. Go" {
		t.Fatalf("tabs = %q", out)
	}
	if lines[1] != "2. "+strings.Repeat("x", 70)+"..." {
		t.Errorf("long title = %q", lines[1])
	}

	// The cache is not refreshed until "tabs" runs again.
	m.AddTab("Later", "https://later")
	cached, _ := env.Tabs.Tabs(context.Background())
	if len(cached) != 2 {
		t.Errorf("cache = %d tabs, want 2", len(cached))
	}
}

func TestCd(t *testing.T) {
	env, m := newEnv(t)
	goTab := m.AddTab("Go Docs", "https://go.dev")
	m.AddTab("Rust Book", "https://rust-lang.org")

	out := mustRun(t, env, "cd", "1")
	if out != "Switched to tab: Go Docs" {
		t.Errorf("cd 1 = %q", out)
	}
	if active, _ := host.ActiveTab(context.Background(), m); active.ID != goTab.ID {
		t.Errorf("active = %q", active.Title)
	}

	out = mustRun(t, env, "cd", "rust", "book")
	if out != "Switched to tab: Rust Book" {
		t.Errorf("cd rust book = %q", out)
	}

	for _, arg := range []string{"9", "0", "nothing"} {
		if _, err := run(t, env, "cd", arg); !errors.Is(err, errTabNotFound) {
			t.Errorf("cd %s: err = %v, want tab not found", arg, err)
		} else if !strings.HasPrefix(err.Error(), "failed to switch tab: ") {
			t.Errorf("cd %s: err = %q", arg, err)
		}
	}
}

func TestNewTabAndSearch(t *testing.T) {
	env, m := newEnv(t)
	mustRun(t, env, "newtab")
	mustRun(t, env, "newtab", "https://go.dev")
	if out := mustRun(t, env, "search", "go", "generics"); out != "Search results opened in new tab" {
		t.Errorf("search = %q", out)
	}

	tabs, _ := m.QueryTabs(context.Background(), types.TabQuery{})
	if len(tabs) != 3 {
		t.Fatalf("tabs = %+v", tabs)
	}
	if tabs[0].URL != "chrome://newtab" || tabs[1].URL != "https://go.dev" {
		t.Errorf("urls = %q, %q", tabs[0].URL, tabs[1].URL)
	}
	if tabs[2].URL != "https://www.google.com/search?q=go+generics" {
		t.Errorf("search url = %q", tabs[2].URL)
	}
}

func TestActiveTabCommands(t *testing.T) {
	env, m := newEnv(t)
	m.AddTab("Go", "https://go.dev")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"pin", nil, "Tab pinned successfully"},
		{"pin", nil, "Tab unpinned successfully"},
		{"mute", nil, "Tab muted successfully"},
		{"mute", nil, "Tab unmuted successfully"},
		{"reload", nil, "Page reloaded successfully"},
		{"title", nil, "Current title: Go"},
		{"url", nil, "Current URL: https://go.dev"},
		{"url", []string{"example.com"}, "URL updated to: http://example.com"},
		{"back", nil, "Navigated back successfully"},
		{"forward", nil, "Navigated forward successfully"},
		{"url", []string{"https://go.dev/doc"}, "URL updated to: https://go.dev/doc"},
		{"zoom", []string{"150"}, "Zoom level set to 150%"},
		{"zoom", nil, "Current zoom level: 150%"},
		{"bookmark", nil, "Bookmark added successfully"},
		{"group", nil, "Tab grouped successfully"},
		{"group", []string{"deep", "work"}, `Tab grouped as "deep work" successfully`},
		{"ungroup", nil, "Tab ungrouped successfully"},
		{"duplicate", nil, "Tab duplicated successfully"},
		{"moveto", []string{"0"}, "Tab moved to index 0"},
		{"translate", nil, "Page opened in Google Translate (target language: en)"},
		{"close", nil, "Tab closed successfully"},
	}
	for _, tt := range tests {
		got, err := run(t, env, tt.name, tt.args...)
		if err != nil {
			t.Fatalf("%s %v failed: %v", tt.name, tt.args, err)
		}
		if got != tt.want {
			t.Errorf("%s %v = %q, want %q", tt.name, tt.args, got, tt.want)
		}
	}
}

func TestInfo(t *testing.T) {
	env, m := newEnv(t)
	tab := m.AddTab("Go", "https://go.dev")
	want := "Current tab information:\nTitle: Go\nURL: https://go.dev\nID: " + tab.ID +
		"\nIndex: 0\nPinned: false\nMuted: false\nIncognito: false"
	if got := mustRun(t, env, "info"); got != want {
		t.Errorf("info = %q, want %q", got, want)
	}
}

func TestNoActiveTab(t *testing.T) {
	env, _ := newEnv(t)
	for _, name := range []string{"close", "bookmark", "reload", "info", "title", "screenshot"} {
		_, err := run(t, env, name)
		if !errors.Is(err, host.ErrNoActiveTab) {
			t.Errorf("%s: err = %v, want ErrNoActiveTab", name, err)
		}
	}
}

func TestHostFailureWrapped(t *testing.T) {
	env, m := newEnv(t)
	m.AddTab("Go", "https://go.dev")
	boom := errors.New("boom")
	m.Failures["ReloadTab"] = boom
	m.Failures["SearchHistory"] = boom

	_, err := run(t, env, "reload")
	if !errors.Is(err, boom) || err.Error() != "failed to reload page: boom" {
		t.Errorf("reload err = %v", err)
	}
	_, err = run(t, env, "history")
	if err == nil || err.Error() != "failed to fetch history: boom" {
		t.Errorf("history err = %v", err)
	}
}

func TestLimitArg(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{nil, 10},
		{[]string{"3"}, 3},
		{[]string{"abc"}, 10},
		{[]string{"0"}, 10},
		{[]string{"-2"}, 10},
	}
	for _, tt := range tests {
		if got := limit(tt.args); got != tt.want {
			t.Errorf("limit(%q) = %d, want %d", tt.args, got, tt.want)
		}
	}
}

func TestBookmarks(t *testing.T) {
	env, m := newEnv(t)
	m.AddTab("Go", "https://go.dev")
	mustRun(t, env, "bookmark")
	m.AddTab("Rust", "https://rust-lang.org")
	mustRun(t, env, "bookmark")

	got := mustRun(t, env, "bookmarks", "1")
	if got != "1. Rust\n   https://rust-lang.org" {
		t.Errorf("bookmarks 1 = %q", got)
	}
	got = mustRun(t, env, "bookmarks", "nope")
	if strings.Count(got, "\n") != 3 {
		t.Errorf("bookmarks nope = %q, want both", got)
	}
}

func TestHistoryFormat(t *testing.T) {
	env, m := newEnv(t)
	visited := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m.AddHistory(types.HistoryItem{URL: "https://untitled", LastVisitTime: visited})

	got := mustRun(t, env, "history", "1")
	want := "1. " + timestamp(visited) + "\n   No title\n   https://untitled"
	if got != want {
		t.Errorf("history = %q, want %q", got, want)
	}
}

func TestScreenshotAndDownloads(t *testing.T) {
	env, m := newEnv(t)
	m.AddTab("Go", "https://go.dev")

	if out := mustRun(t, env, "screenshot"); out != "Screenshot captured and saved successfully" {
		t.Errorf("screenshot = %q", out)
	}
	name := "screenshot_2024-05-01T12-30-45.123Z.png"
	if _, ok := m.File(name); !ok {
		t.Fatalf("expected download %s", name)
	}

	out := mustRun(t, env, "downloads")
	if !strings.HasPrefix(out, "1. "+name+"\n   URL: \n   Status: complete (0 KB / 0 KB)") {
		t.Errorf("downloads = %q", out)
	}
}

func TestExtensionsSkipsApps(t *testing.T) {
	env, m := newEnv(t)
	m.AddExtension(types.Extension{ID: "a", Name: "Reader", Version: "1.2", Enabled: true, Description: strings.Repeat("d", 120)})
	m.AddExtension(types.Extension{ID: "b", Name: "Docs App", IsApp: true})

	got := mustRun(t, env, "extensions")
	if strings.Contains(got, "Docs App") {
		t.Errorf("apps should be skipped: %q", got)
	}
	want := "1. Reader (1.2)\n   ID: a\n   Enabled: true\n   Description: " + strings.Repeat("d", 100) + "..."
	if got != want {
		t.Errorf("extensions = %q", got)
	}
}

func TestWindowCommands(t *testing.T) {
	env, m := newEnv(t)
	m.AddTab("Go", "https://go.dev")

	if out := mustRun(t, env, "incognito"); out != "New incognito window opened successfully" {
		t.Errorf("incognito = %q", out)
	}
	out := mustRun(t, env, "windows")
	want := "Window 1 (Not Focused)\n   Type: normal\n   State: normal\n   Incognito: false\n   Tab count: 1\n" +
		"Window 2 (Focused)\n   Type: normal\n   State: normal\n   Incognito: true\n   Tab count: 1"
	if out != want {
		t.Errorf("windows = %q", out)
	}

	if out := mustRun(t, env, "count"); out != "Total tabs: 2 (across 2 windows)" {
		t.Errorf("count = %q", out)
	}
	if out := mustRun(t, env, "focus", "1"); out != "Focused on window 1" {
		t.Errorf("focus = %q", out)
	}
	if _, err := run(t, env, "focus", "5"); !errors.Is(err, errWindowNotFound) {
		t.Errorf("focus 5 err = %v", err)
	}

	if out := mustRun(t, env, "fullscreen"); out != "Window entered fullscreen mode" {
		t.Errorf("fullscreen = %q", out)
	}
	if out := mustRun(t, env, "fullscreen"); out != "Window exited fullscreen mode" {
		t.Errorf("fullscreen = %q", out)
	}

	if out := mustRun(t, env, "closewindow"); out != "Window closed successfully" {
		t.Errorf("closewindow = %q", out)
	}
	wins, _ := m.AllWindows(context.Background(), false)
	if len(wins) != 1 || wins[0].Incognito != true {
		t.Errorf("remaining windows = %+v", wins)
	}
}

func TestClearCommands(t *testing.T) {
	env, _ := newEnv(t)
	screen := env.Screen.(*fakeScreen)

	if out := mustRun(t, env, "clear"); out != "" || !screen.cleared {
		t.Errorf("clear = %q, cleared %v", out, screen.cleared)
	}

	env.Store.Set(context.Background(), store.KeyTerminalHistory, []types.OutputLine{{Text: "old"}})
	if out := mustRun(t, env, "clearhistory"); out != "Terminal history cleared successfully" {
		t.Errorf("clearhistory = %q", out)
	}
	var saved []types.OutputLine
	found, _ := env.Store.Get(context.Background(), store.KeyTerminalHistory, &saved)
	if !found || len(saved) != 0 || !screen.historyCleared {
		t.Errorf("terminal history = %+v (found %v)", saved, found)
	}
}

func TestAliasCommand(t *testing.T) {
	env, _ := newEnv(t)
	if out := mustRun(t, env, "alias"); out != "No aliases defined" {
		t.Errorf("alias = %q", out)
	}
	if out := mustRun(t, env, "alias", "gs", "search", "golang"); out != "Alias created: gs -> search golang" {
		t.Errorf("alias gs = %q", out)
	}
	mustRun(t, env, "alias", "t", "tabs")
	if out := mustRun(t, env, "alias"); out != "gs -> search golang\nt -> tabs" {
		t.Errorf("alias list = %q", out)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(Command{Name: "x", Summary: "one"})
	r.Register(Command{Name: "x", Summary: "two"})
	c, _ := r.Lookup("x")
	if c.Summary != "two" || len(r.Names()) != 1 {
		t.Errorf("got %+v, names %v", c, r.Names())
	}
}

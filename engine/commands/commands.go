// Package commands holds the built-in command table and its handlers.
//
// Every handler makes its host calls, formats the result as one block of
// text and returns it. A missing or invalid required argument returns a
// "Usage: ..." string, not an error. Host failures come back wrapped as
// "failed to <verb>: <cause>".
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nathoo/tabterm/engine/alias"
	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/store"
	"github.com/nathoo/tabterm/types"
)

// DefaultLimit is used by the listing commands when no valid count is given.
const DefaultLimit = 10

// Screen is the part of the output log the clear commands act on.
type Screen interface {
	Clear()
	ClearHistory()
}

// Env is what a handler may touch.
type Env struct {
	Host    host.Host
	Tabs    *TabCache
	Aliases *alias.Resolver
	Screen  Screen
	Store   store.Store
	Now     func() time.Time
}

// Handler runs one command.
type Handler func(ctx context.Context, env *Env, args []string) (string, error)

// Command is one entry of the table.
type Command struct {
	Name    string
	Usage   string // as shown by help, e.g. "cd <tab number/name>"
	Summary string
	// Listing commands render with the history kind.
	Listing bool
	Run     Handler
}

// Kind returns how the command's output is rendered.
func (c Command) Kind() types.LineKind {
	if c.Listing {
		return types.KindHistory
	}
	return types.KindSuccess
}

// Registry is a flat name -> command table that remembers help order.
type Registry struct {
	cmds  map[string]Command
	order []string
}

// NewRegistry returns an empty table.
func NewRegistry() *Registry {
	return &Registry{cmds: map[string]Command{}}
}

// Register adds c, replacing any command with the same name.
func (r *Registry) Register(c Command) {
	if _, ok := r.cmds[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.cmds[c.Name] = c
}

// Lookup finds a command by exact name.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

// Names lists command names in help order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Builtins returns the table of every built-in command.
func Builtins() *Registry {
	r := NewRegistry()
	for _, c := range []Command{
		{Name: "cd", Usage: "cd <tab number/name>", Summary: "Switch to specified tab (use Tab key for completion)", Run: cd},
		{Name: "newtab", Usage: "newtab [url]", Summary: "Open new tab", Run: newTab},
		{Name: "tabs", Usage: "tabs", Summary: "List open tabs", Listing: true, Run: listTabs},
		{Name: "close", Usage: "close", Summary: "Close current tab", Run: closeTab},
		{Name: "search", Usage: "search <query>", Summary: "Search Google for the specified query", Run: search},
		{Name: "bookmark", Usage: "bookmark", Summary: "Bookmark current tab", Run: bookmark},
		{Name: "bookmarks", Usage: "bookmarks [n]", Summary: "Show last n bookmarks (default 10)", Listing: true, Run: bookmarks},
		{Name: "history", Usage: "history [n]", Summary: "Show last n visited pages (default 10)", Listing: true, Run: history},
		{Name: "reload", Usage: "reload", Summary: "Reload current tab", Run: reload},
		{Name: "duplicate", Usage: "duplicate", Summary: "Duplicate current tab", Run: duplicate},
		{Name: "pin", Usage: "pin", Summary: "Toggle pin state of current tab", Run: pin},
		{Name: "mute", Usage: "mute", Summary: "Toggle mute state of current tab", Run: mute},
		{Name: "back", Usage: "back", Summary: "Go back in current tab", Run: back},
		{Name: "forward", Usage: "forward", Summary: "Go forward in current tab", Run: forward},
		{Name: "info", Usage: "info", Summary: "Show detailed information about current tab", Run: info},
		{Name: "url", Usage: "url [new url]", Summary: "Show or change the current URL", Run: pageURL},
		{Name: "title", Usage: "title", Summary: "Get current tab title", Run: title},
		{Name: "moveto", Usage: "moveto <index>", Summary: "Move current tab to index", Run: moveTo},
		{Name: "count", Usage: "count", Summary: "Count tabs and windows", Run: count},
		{Name: "zoom", Usage: "zoom [percent]", Summary: "Show or set the zoom level", Run: zoom},
		{Name: "translate", Usage: "translate [lang]", Summary: "Open current page in Google Translate (default en)", Run: translate},
		{Name: "group", Usage: "group [name]", Summary: "Create a tab group with current tab", Run: group},
		{Name: "ungroup", Usage: "ungroup", Summary: "Remove current tab from its group", Run: ungroup},
		{Name: "screenshot", Usage: "screenshot", Summary: "Save a screenshot of the visible tab", Run: screenshot},
		{Name: "downloads", Usage: "downloads [n]", Summary: "Show last n downloads (default 10)", Listing: true, Run: downloads},
		{Name: "extensions", Usage: "extensions", Summary: "List installed extensions", Listing: true, Run: extensions},
		{Name: "windows", Usage: "windows", Summary: "List open windows", Run: windows},
		{Name: "focus", Usage: "focus <window number>", Summary: "Focus window n", Run: focus},
		{Name: "incognito", Usage: "incognito", Summary: "Open new incognito window", Run: incognito},
		{Name: "closewindow", Usage: "closewindow", Summary: "Close current window", Run: closeWindow},
		{Name: "fullscreen", Usage: "fullscreen", Summary: "Toggle fullscreen mode", Run: fullscreen},
		{Name: "clear", Usage: "clear", Summary: "Clear terminal display", Run: clearScreen},
		{Name: "clearhistory", Usage: "clearhistory", Summary: "Forget saved terminal output", Run: clearHistory},
		{Name: "alias", Usage: "alias [name command...]", Summary: "Define an alias, or list aliases", Run: defineAlias},
		{Name: "shortcuts", Usage: "shortcuts", Summary: "Show keyboard shortcuts", Run: shortcuts},
	} {
		r.Register(c)
	}
	r.Register(Command{Name: "help", Usage: "help", Summary: "Show commands", Run: r.help})
	return r
}

func (r *Registry) help(ctx context.Context, env *Env, args []string) (string, error) {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, name := range r.order {
		c := r.cmds[name]
		fmt.Fprintf(&b, "\n- %s: %s", c.Usage, c.Summary)
	}
	return b.String(), nil
}

func shortcuts(ctx context.Context, env *Env, args []string) (string, error) {
	return `Terminal Keyboard Shortcuts:
- Tab: Complete tab names for 'cd' command
- Enter: Execute command
- Up Arrow: Navigate command history (previous command)
- Down Arrow: Navigate command history (next command)
- PgUp/PgDn: Scroll terminal output
- Ctrl+C: Quit`, nil
}

// limit parses the optional count argument of the listing commands.
// Anything missing, non-numeric or below 1 falls back to DefaultLimit.
func limit(args []string) int {
	if len(args) == 0 {
		return DefaultLimit
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return DefaultLimit
	}
	return n
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// timestamp formats t like a browser's default locale string.
func timestamp(t time.Time) string {
	return t.Local().Format("1/2/2006, 3:04:05 PM")
}

func activeTab(ctx context.Context, env *Env) (types.Tab, error) {
	return host.ActiveTab(ctx, env.Host)
}

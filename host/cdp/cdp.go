// Package cdp implements host.Host over the Chrome DevTools Protocol.
//
// Tabs are page targets. Windows are resolved per target with
// Browser.getWindowForTarget. CDP has no bookmark or download API, so those
// capabilities are delegated to the store-backed implementations in
// host/local.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/host/local"
	"github.com/nathoo/tabterm/store"
)

// Options configures how the host reaches Chrome.
type Options struct {
	// Launch starts a local Chrome instead of attaching to URL.
	Launch   bool
	URL      string // e.g. http://localhost:9222
	Headless bool
	// Timeout bounds each host call; zero means none.
	Timeout     time.Duration
	DownloadDir string
}

type tabConn struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ host.Host = (*Host)(nil)

// Host drives Chrome through chromedp.
type Host struct {
	*local.Bookmarks
	*local.Downloads

	opts Options

	mu        sync.Mutex
	allocCtx  context.Context
	allocCanc context.CancelFunc
	ctx       context.Context // attached to the primary target
	ctxCanc   context.CancelFunc
	tabs      map[target.ID]*tabConn
	active    target.ID
	incognito map[cdp.BrowserContextID]bool
}

// New connects to Chrome. Bookmarks and download records persist in s.
func New(ctx context.Context, opts Options, s store.Store) (*Host, error) {
	h := &Host{
		Bookmarks: local.NewBookmarks(s),
		Downloads: local.NewDownloads(s, opts.DownloadDir),
		opts:      opts,
		tabs:      map[target.ID]*tabConn{},
		incognito: map[cdp.BrowserContextID]bool{},
	}
	if _, err := h.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// ensureConnected lazily connects (or reconnects) to Chrome.
func (h *Host) ensureConnected(ctx context.Context) (context.Context, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx != nil {
		err := chromedp.Run(h.ctx)
		if err == nil {
			return h.ctx, nil
		}
		if h.opts.Launch {
			return nil, fmt.Errorf("browser connection lost: %w", err)
		}
		log.Printf("[cdp] existing connection stale: %v, reconnecting", err)
		h.close()
	}

	if h.opts.Launch {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", h.opts.Headless),
		)
		h.allocCtx, h.allocCanc = chromedp.NewExecAllocator(context.Background(), opts...)
		h.ctx, h.ctxCanc = chromedp.NewContext(h.allocCtx)
	} else {
		wsURL, err := getWSURL(ctx, h.opts.URL)
		if err != nil {
			return nil, fmt.Errorf("Chrome CDP not available at %s: %w", h.opts.URL, err)
		}
		// Attach to an existing page so connecting never opens a tab.
		targetID, err := findPageTarget(ctx, h.opts.URL)
		if err != nil {
			return nil, fmt.Errorf("no page target found: %w", err)
		}
		h.allocCtx, h.allocCanc = chromedp.NewRemoteAllocator(context.Background(), wsURL)
		h.ctx, h.ctxCanc = chromedp.NewContext(h.allocCtx, chromedp.WithTargetID(targetID))
	}

	if err := chromedp.Run(h.ctx); err != nil {
		h.close()
		return nil, fmt.Errorf("failed to attach to browser: %w", err)
	}
	if c := chromedp.FromContext(h.ctx); c != nil && c.Target != nil {
		h.active = c.Target.TargetID
		log.Printf("[cdp] connected, target=%s", h.active)
	}
	return h.ctx, nil
}

func getWSURL(ctx context.Context, base string) (string, error) {
	var data struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := getJSON(ctx, strings.TrimRight(base, "/")+"/json/version", &data); err != nil {
		return "", err
	}
	if data.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return data.WebSocketDebuggerURL, nil
}

func findPageTarget(ctx context.Context, base string) (target.ID, error) {
	var targets []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		URL  string `json:"url"`
	}
	if err := getJSON(ctx, strings.TrimRight(base, "/")+"/json/list", &targets); err != nil {
		return "", err
	}
	for _, t := range targets {
		if t.Type == "page" && !strings.HasPrefix(t.URL, "devtools://") {
			return target.ID(t.ID), nil
		}
	}
	return "", fmt.Errorf("no targets available")
}

func getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// close tears down every chromedp context. Caller holds h.mu.
func (h *Host) close() {
	for id, tc := range h.tabs {
		tc.cancel()
		delete(h.tabs, id)
	}
	if h.ctxCanc != nil {
		h.ctxCanc()
		h.ctxCanc = nil
	}
	if h.allocCanc != nil {
		h.allocCanc()
		h.allocCanc = nil
	}
	h.ctx = nil
	h.allocCtx = nil
}

// Close disconnects from Chrome.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.close()
	return nil
}

// scope derives a context from base (a chromedp context) that also ends
// when the caller's ctx does, bounded by the configured timeout.
func (h *Host) scope(ctx, base context.Context) (context.Context, context.CancelFunc) {
	var c context.Context
	var cancel context.CancelFunc
	if h.opts.Timeout > 0 {
		c, cancel = context.WithTimeout(base, h.opts.Timeout)
	} else {
		c, cancel = context.WithCancel(base)
	}
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

// browserDo runs fn with the browser-level executor, for Target and Browser
// domain commands.
func (h *Host) browserDo(ctx context.Context, fn func(ctx context.Context) error) error {
	base, err := h.ensureConnected(ctx)
	if err != nil {
		return err
	}
	c, cancel := h.scope(ctx, base)
	defer cancel()
	return fn(cdp.WithExecutor(c, chromedp.FromContext(base).Browser))
}

// tabDo runs chromedp actions attached to the tab's target.
func (h *Host) tabDo(ctx context.Context, id target.ID, actions ...chromedp.Action) error {
	tc, err := h.tabCtx(ctx, id)
	if err != nil {
		return err
	}
	c, cancel := h.scope(ctx, tc)
	defer cancel()
	return chromedp.Run(c, actions...)
}

func (h *Host) tabCtx(ctx context.Context, id target.ID) (context.Context, error) {
	base, err := h.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	if c := chromedp.FromContext(base); c.Target != nil && c.Target.TargetID == id {
		return base, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if tc, ok := h.tabs[id]; ok {
		return tc.ctx, nil
	}
	tctx, cancel := chromedp.NewContext(base, chromedp.WithTargetID(id))
	if err := chromedp.Run(tctx); err != nil {
		cancel()
		return nil, fmt.Errorf("attaching to tab %s: %w", id, err)
	}
	h.tabs[id] = &tabConn{ctx: tctx, cancel: cancel}
	return tctx, nil
}

// forget drops the cached connection for a closed tab.
func (h *Host) forget(id target.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if tc, ok := h.tabs[id]; ok {
		tc.cancel()
		delete(h.tabs, id)
	}
	if h.active == id {
		h.active = ""
	}
}

func (h *Host) setActive(id target.ID) {
	h.mu.Lock()
	h.active = id
	h.mu.Unlock()
}

func (h *Host) activeID() target.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *Host) isIncognito(bc cdp.BrowserContextID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.incognito[bc]
}

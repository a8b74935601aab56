// Package local implements the bookmark and download capabilities on top of
// a store.Store, for hosts whose protocol has no equivalent API.
package local

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/tabterm/store"
	"github.com/nathoo/tabterm/types"
)

const (
	keyBookmarks = "bookmarks"
	keyDownloads = "downloads"
)

// Bookmarks keeps bookmarks in the store, oldest first.
type Bookmarks struct {
	Store store.Store
	Now   func() time.Time
}

// NewBookmarks returns store-backed bookmarks.
func NewBookmarks(s store.Store) *Bookmarks {
	return &Bookmarks{Store: s, Now: time.Now}
}

func (b *Bookmarks) load(ctx context.Context) ([]types.Bookmark, error) {
	var items []types.Bookmark
	if _, err := b.Store.Get(ctx, keyBookmarks, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (b *Bookmarks) CreateBookmark(ctx context.Context, bm types.Bookmark) (types.Bookmark, error) {
	items, err := b.load(ctx)
	if err != nil {
		return types.Bookmark{}, err
	}
	bm.DateAdded = b.Now()
	bm.ID = uuid.NewString()
	items = append(items, bm)
	if err := b.Store.Set(ctx, keyBookmarks, items); err != nil {
		return types.Bookmark{}, err
	}
	return bm, nil
}

func (b *Bookmarks) RecentBookmarks(ctx context.Context, n int) ([]types.Bookmark, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid bookmark count %d", n)
	}
	items, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.Bookmark
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out, nil
}

// Downloads writes files into Dir and records them in the store.
type Downloads struct {
	Store  store.Store
	Dir    string
	Client *http.Client
	Now    func() time.Time
}

// NewDownloads returns store-backed downloads saving into dir.
func NewDownloads(s store.Store, dir string) *Downloads {
	return &Downloads{
		Store:  s,
		Dir:    dir,
		Client: &http.Client{Timeout: 60 * time.Second},
		Now:    time.Now,
	}
}

func (d *Downloads) load(ctx context.Context) ([]types.DownloadItem, error) {
	var items []types.DownloadItem
	if _, err := d.Store.Get(ctx, keyDownloads, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (d *Downloads) Download(ctx context.Context, spec types.DownloadSpec) (string, error) {
	name := spec.Filename
	if name == "" {
		name = path.Base(spec.URL)
	}
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	// Never write outside Dir.
	name = filepath.Base(name)

	item := types.DownloadItem{
		Filename:  filepath.Join(d.Dir, name),
		URL:       spec.URL,
		State:     "in_progress",
		StartTime: d.Now(),
	}
	item.ID = uuid.NewString()

	n, total, err := d.write(ctx, item.Filename, spec)
	item.BytesReceived, item.TotalBytes = n, total
	if err != nil {
		item.State = "interrupted"
		log.Printf("[downloads] %s failed: %v", name, err)
	} else {
		item.State = "complete"
	}

	items, lerr := d.load(ctx)
	if lerr != nil {
		return "", lerr
	}
	items = append(items, item)
	if serr := d.Store.Set(ctx, keyDownloads, items); serr != nil {
		return "", serr
	}
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

func (d *Downloads) write(ctx context.Context, dest string, spec types.DownloadSpec) (int64, int64, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("creating download dir: %w", err)
	}
	if spec.Data != nil {
		if err := os.WriteFile(dest, spec.Data, 0o644); err != nil {
			return 0, int64(len(spec.Data)), err
		}
		return int64(len(spec.Data)), int64(len(spec.Data)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, resp.ContentLength, fmt.Errorf("GET %s: %s", spec.URL, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, resp.ContentLength, err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	total := resp.ContentLength
	if total < 0 {
		total = n
	}
	return n, total, err
}

func (d *Downloads) SearchDownloads(ctx context.Context, q types.DownloadQuery) ([]types.DownloadItem, error) {
	items, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.DownloadItem
	for i := len(items) - 1; i >= 0; i-- {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		out = append(out, items[i])
	}
	return out, nil
}

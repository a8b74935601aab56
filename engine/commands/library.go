package commands

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/nathoo/tabterm/types"
)

func bookmark(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "add bookmark", func(tab types.Tab) (string, error) {
		_, err := env.Host.CreateBookmark(ctx, types.Bookmark{Title: tab.Title, URL: tab.URL})
		return "Bookmark added successfully", err
	})
}

func bookmarks(ctx context.Context, env *Env, args []string) (string, error) {
	items, err := env.Host.RecentBookmarks(ctx, limit(args))
	if err != nil {
		return "", fmt.Errorf("failed to fetch bookmarks: %w", err)
	}
	lines := make([]string, len(items))
	for i, b := range items {
		lines[i] = fmt.Sprintf("%d. %s\n   %s", i+1, b.Title, b.URL)
	}
	return strings.Join(lines, "\n"), nil
}

func history(ctx context.Context, env *Env, args []string) (string, error) {
	items, err := env.Host.SearchHistory(ctx, types.HistoryQuery{MaxResults: limit(args)})
	if err != nil {
		return "", fmt.Errorf("failed to fetch history: %w", err)
	}
	lines := make([]string, len(items))
	for i, item := range items {
		t := "No title"
		if item.Title != "" {
			t = truncate(item.Title, 70)
		}
		lines[i] = fmt.Sprintf("%d. %s\n   %s\n   %s", i+1, timestamp(item.LastVisitTime), t, item.URL)
	}
	return strings.Join(lines, "\n"), nil
}

func kb(n int64) int64 {
	return int64(math.Round(float64(n) / 1024))
}

func downloads(ctx context.Context, env *Env, args []string) (string, error) {
	items, err := env.Host.SearchDownloads(ctx, types.DownloadQuery{Limit: limit(args)})
	if err != nil {
		return "", fmt.Errorf("failed to fetch downloads: %w", err)
	}
	lines := make([]string, len(items))
	for i, d := range items {
		name := filepath.Base(filepath.ToSlash(d.Filename))
		if name == "." || name == "/" || name == "" {
			name = "Unknown"
		}
		lines[i] = fmt.Sprintf("%d. %s\n   URL: %s\n   Status: %s (%d KB / %d KB)\n   Date: %s",
			i+1, name, truncate(d.URL, 70), d.State, kb(d.BytesReceived), kb(d.TotalBytes), timestamp(d.StartTime))
	}
	return strings.Join(lines, "\n"), nil
}

func extensions(ctx context.Context, env *Env, args []string) (string, error) {
	all, err := env.Host.Extensions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list extensions: %w", err)
	}
	var lines []string
	for _, ext := range all {
		if ext.IsApp {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s (%s)\n   ID: %s\n   Enabled: %t\n   Description: %s",
			len(lines)+1, ext.Name, ext.Version, ext.ID, ext.Enabled, truncate(ext.Description, 100)))
	}
	return strings.Join(lines, "\n"), nil
}

// screenshotName is the download filename for a capture taken at now.
func screenshotName(env *Env) string {
	stamp := env.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return "screenshot_" + strings.ReplaceAll(stamp, ":", "-") + ".png"
}

func screenshot(ctx context.Context, env *Env, args []string) (string, error) {
	return onActive(ctx, env, "capture screenshot", func(tab types.Tab) (string, error) {
		img, err := env.Host.CaptureVisibleTab(ctx, tab.WindowID)
		if err != nil {
			return "", err
		}
		if _, err := env.Host.Download(ctx, types.DownloadSpec{Data: img, Filename: screenshotName(env)}); err != nil {
			return "", err
		}
		return "Screenshot captured and saved successfully", nil
	})
}

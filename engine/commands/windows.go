package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/tabterm/types"
)

var errWindowNotFound = errors.New(`window not found, use "windows" to see available windows`)

func windows(ctx context.Context, env *Env, args []string) (string, error) {
	wins, err := env.Host.AllWindows(ctx, true)
	if err != nil {
		return "", fmt.Errorf("failed to list windows: %w", err)
	}
	lines := make([]string, len(wins))
	for i, w := range wins {
		label := "Not Focused"
		if w.Focused {
			label = "Focused"
		}
		lines[i] = fmt.Sprintf("Window %d (%s)\n   Type: %s\n   State: %s\n   Incognito: %t\n   Tab count: %d",
			i+1, label, w.Type, w.State, w.Incognito, len(w.Tabs))
	}
	return strings.Join(lines, "\n"), nil
}

func focus(ctx context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "Usage: focus <window number>", nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return "Usage: focus <window number>", nil
	}
	wins, err := env.Host.AllWindows(ctx, false)
	if err != nil {
		return "", fmt.Errorf("failed to focus window: %w", err)
	}
	if n < 1 || n > len(wins) {
		return "", fmt.Errorf("failed to focus window: %w", errWindowNotFound)
	}
	focused := true
	if err := env.Host.UpdateWindow(ctx, wins[n-1].ID, types.WindowPatch{Focused: &focused}); err != nil {
		return "", fmt.Errorf("failed to focus window: %w", err)
	}
	return fmt.Sprintf("Focused on window %d", n), nil
}

func incognito(ctx context.Context, env *Env, args []string) (string, error) {
	if _, err := env.Host.CreateWindow(ctx, types.WindowSpec{Incognito: true}); err != nil {
		return "", fmt.Errorf("failed to open incognito window: %w", err)
	}
	return "New incognito window opened successfully", nil
}

func closeWindow(ctx context.Context, env *Env, args []string) (string, error) {
	w, err := env.Host.CurrentWindow(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to close window: %w", err)
	}
	if err := env.Host.RemoveWindow(ctx, w.ID); err != nil {
		return "", fmt.Errorf("failed to close window: %w", err)
	}
	return "Window closed successfully", nil
}

func fullscreen(ctx context.Context, env *Env, args []string) (string, error) {
	w, err := env.Host.CurrentWindow(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to toggle fullscreen: %w", err)
	}
	state := types.WindowFullscreen
	if w.State == types.WindowFullscreen {
		state = types.WindowNormal
	}
	if err := env.Host.UpdateWindow(ctx, w.ID, types.WindowPatch{State: &state}); err != nil {
		return "", fmt.Errorf("failed to toggle fullscreen: %w", err)
	}
	if state == types.WindowFullscreen {
		return "Window entered fullscreen mode", nil
	}
	return "Window exited fullscreen mode", nil
}

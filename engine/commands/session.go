package commands

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nathoo/tabterm/store"
	"github.com/nathoo/tabterm/types"
)

func clearScreen(ctx context.Context, env *Env, args []string) (string, error) {
	env.Screen.Clear()
	return "", nil
}

func clearHistory(ctx context.Context, env *Env, args []string) (string, error) {
	env.Screen.ClearHistory()
	if err := env.Store.Set(ctx, store.KeyTerminalHistory, []types.OutputLine{}); err != nil {
		log.Printf("[session] clearing terminal history: %v", err)
	}
	return "Terminal history cleared successfully", nil
}

func defineAlias(ctx context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		list, err := env.Aliases.List(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list aliases: %w", err)
		}
		if len(list) == 0 {
			return "No aliases defined", nil
		}
		lines := make([]string, len(list))
		for i, a := range list {
			lines[i] = a.Name + " -> " + a.Expansion
		}
		return strings.Join(lines, "\n"), nil
	}
	if len(args) == 1 {
		return "Usage: alias <name> <command>", nil
	}

	name, expansion := args[0], strings.Join(args[1:], " ")
	if err := env.Aliases.Define(ctx, name, expansion); err != nil {
		return "", fmt.Errorf("failed to create alias: %w", err)
	}
	return fmt.Sprintf("Alias created: %s -> %s", name, expansion), nil
}

// Package alias substitutes user-defined command names before dispatch.
package alias

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/nathoo/tabterm/store"
)

// Alias is one entry of the alias table.
type Alias struct {
	Name      string
	Expansion string
}

// Resolver reads and writes the alias table under store.KeyAliases. The
// table is read on every call.
type Resolver struct {
	Store store.Store
}

// New returns a resolver backed by s.
func New(s store.Store) *Resolver {
	return &Resolver{Store: s}
}

func (r *Resolver) table(ctx context.Context) (map[string]string, error) {
	table := map[string]string{}
	if _, err := r.Store.Get(ctx, store.KeyAliases, &table); err != nil {
		return nil, err
	}
	if table == nil {
		table = map[string]string{}
	}
	return table, nil
}

// Resolve splits raw on whitespace and expands the first token if it names
// an alias. The expansion's first token becomes the command and the rest
// are prepended to the typed arguments. Expansion is one level only.
// An unreadable table counts as empty.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, []string) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := fields[0], fields[1:]

	table, err := r.table(ctx)
	if err != nil {
		log.Printf("[alias] reading alias table: %v", err)
		return cmd, args
	}
	expansion := strings.Fields(table[cmd])
	if len(expansion) == 0 {
		return cmd, args
	}
	return expansion[0], append(expansion[1:len(expansion):len(expansion)], args...)
}

// Define stores name -> expansion, replacing any existing entry.
func (r *Resolver) Define(ctx context.Context, name, expansion string) error {
	if name == "" || strings.TrimSpace(expansion) == "" {
		return fmt.Errorf("alias needs a name and a command")
	}
	table, err := r.table(ctx)
	if err != nil {
		return err
	}
	table[name] = expansion
	return r.Store.Set(ctx, store.KeyAliases, table)
}

// List returns the table sorted by name.
func (r *Resolver) List(ctx context.Context) ([]Alias, error) {
	table, err := r.table(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Alias, 0, len(table))
	for name, exp := range table {
		out = append(out, Alias{Name: name, Expansion: exp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

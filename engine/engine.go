// Package engine provides the Session that ties alias resolution, the
// command table, history, completion and the output log into one terminal.
package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nathoo/tabterm/engine/alias"
	"github.com/nathoo/tabterm/engine/commands"
	"github.com/nathoo/tabterm/engine/complete"
	"github.com/nathoo/tabterm/engine/history"
	"github.com/nathoo/tabterm/engine/output"
	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/store"
	"github.com/nathoo/tabterm/types"
)

// Options configures a Session.
type Options struct {
	Host  host.Host
	Store store.Store
	// HistorySize is N: commands kept, with the output log capped at 3N.
	HistorySize int
	// Commands defaults to commands.Builtins().
	Commands *commands.Registry
	Now      func() time.Time
}

// Session is one terminal. Its methods are serialised, so each front-end
// event runs to completion before the next starts.
type Session struct {
	mu sync.Mutex

	store     store.Store
	registry  *commands.Registry
	aliases   *alias.Resolver
	history   *history.History
	log       *output.Log
	completer *complete.Completer
	env       *commands.Env
}

// New creates a session, restoring command history from the store.
// Terminal history is not restored; the log starts from the banner.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Host == nil || opts.Store == nil {
		return nil, errors.New("session needs a host and a store")
	}
	if opts.HistorySize < 1 {
		opts.HistorySize = history.DefaultSize
	}
	if opts.Commands == nil {
		opts.Commands = commands.Builtins()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		store:    opts.Store,
		registry: opts.Commands,
		aliases:  alias.New(opts.Store),
		history:  history.New(opts.HistorySize),
		log:      output.New(opts.HistorySize),
	}
	if err := s.history.Load(ctx, opts.Store); err != nil {
		log.Printf("[session] %v", err)
	}
	s.log.Take()

	tabs := commands.NewTabCache(opts.Host)
	s.completer = complete.New(tabs, s.log)
	s.env = &commands.Env{
		Host:    opts.Host,
		Tabs:    tabs,
		Aliases: s.aliases,
		Screen:  s.log,
		Store:   opts.Store,
		Now:     opts.Now,
	}
	return s, nil
}

// Submit runs one input line and returns the lines it rendered.
func (s *Session) Submit(ctx context.Context, raw string) []types.OutputLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.completer.Reset()

	if strings.TrimSpace(raw) == "" {
		return nil
	}

	name, args := s.aliases.Resolve(ctx, raw)

	s.history.Push(raw)
	if err := s.history.Save(ctx, s.store); err != nil {
		log.Printf("[session] %v", err)
	}

	s.log.Append(raw, types.KindCommand)

	cmd, ok := s.registry.Lookup(name)
	if !ok {
		s.log.Append("command not found: "+name, types.KindError)
		return s.log.Take()
	}

	out, err := cmd.Run(ctx, s.env, args)
	if err != nil {
		log.Printf("[session] %s: %v", name, err)
		s.log.Append("Error: "+err.Error(), types.KindError)
		return s.log.Take()
	}
	if out != "" {
		s.log.Append(out, cmd.Kind())
	}
	return s.log.Take()
}

// Complete handles a Tab press and returns the new buffer along with any
// lines it rendered.
func (s *Session) Complete(ctx context.Context, buffer string) (string, []types.OutputLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.completer.Complete(ctx, buffer)
	if err != nil {
		log.Printf("[session] completion: %v", err)
	}
	return out, s.log.Take()
}

// RecallPrevious steps back through command history. It reports false
// when the buffer should stay as it is.
func (s *Session) RecallPrevious() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completer.Reset()
	return s.history.Prev()
}

// RecallNext steps forward through command history.
func (s *Session) RecallNext() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completer.Reset()
	return s.history.Next()
}

// Edit records a non-Tab change to the input, ending any completion cycle.
func (s *Session) Edit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completer.Reset()
}

// Lines returns what the screen shows.
func (s *Session) Lines() []types.OutputLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Lines()
}

// Completion returns the current completion cycle.
func (s *Session) Completion() complete.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completer.State()
}

// History returns the stored command lines, oldest first.
func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Aliases returns the session's alias resolver.
func (s *Session) Aliases() *alias.Resolver {
	return s.aliases
}

// Close saves the log history as terminal history.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Set(ctx, store.KeyTerminalHistory, s.log.History())
}

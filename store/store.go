// Package store implements the persistent key-value blobs tabterm keeps
// between sessions: command history, terminal history, aliases, and the
// local bookmark and download records.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Keys used by the terminal core.
const (
	KeyCommandHistory  = "commandHistory"
	KeyTerminalHistory = "terminalHistory"
	KeyAliases         = "aliases"
)

// Store is an asynchronous get/set of named JSON blobs. Each call is atomic
// per key; nothing relies on atomicity across keys.
type Store interface {
	// Get decodes the value stored under key into v. It reports false when
	// the key is absent.
	Get(ctx context.Context, key string, v any) (bool, error)
	// Set encodes v as JSON and stores it under key.
	Set(ctx context.Context, key string, v any) error
	Close() error
}

// Memory is an in-process Store. Values are round-tripped through JSON so
// callers never share memory with the store.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Get(ctx context.Context, key string, v any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(ctx context.Context, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

// Open returns the Store for a configured backend name.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemory(), nil
	case "file":
		return OpenFile(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

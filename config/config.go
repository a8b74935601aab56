// Package config loads tabterm's TOML configuration.
//
// The file lives at ~/.tabterm/config.toml unless a path is given. A missing
// file means defaults. Environment overrides are applied after the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Browser modes.
const (
	ModeRemote = "remote" // attach to a running Chrome over CDP
	ModeLaunch = "launch" // start Chrome with chromedp's exec allocator
	ModeMemory = "memory" // in-process fake browser
)

// Config is the complete tabterm configuration.
type Config struct {
	HistorySize int           `toml:"history_size"`
	Browser     BrowserConfig `toml:"browser"`
	Store       StoreConfig   `toml:"store"`
	Log         LogConfig     `toml:"log"`
	InitScript  string        `toml:"init_script"`
}

// BrowserConfig selects and tunes the host.
type BrowserConfig struct {
	Mode     string `toml:"mode"`
	CDPURL   string `toml:"cdp_url"`
	Headless bool   `toml:"headless"`
	// Timeout bounds each CDP call, e.g. "30s". "0s" means none.
	Timeout     string `toml:"timeout"`
	DownloadDir string `toml:"download_dir"`
}

// StoreConfig selects the persistent store.
type StoreConfig struct {
	Backend string `toml:"backend"` // sqlite | file | memory
	Path    string `toml:"path"`
}

// LogConfig sets where diagnostics go.
type LogConfig struct {
	File string `toml:"file"`
}

// Dir returns ~/.tabterm.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tabterm"), nil
}

// DefaultPath returns ~/.tabterm/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the built-in configuration. Paths that depend on the
// home directory are filled in by Load.
func Default() *Config {
	return &Config{
		HistorySize: 10,
		Browser: BrowserConfig{
			Mode:        ModeRemote,
			CDPURL:      "http://localhost:9222",
			Timeout:     "0s",
			DownloadDir: "~/Downloads",
		},
		Store: StoreConfig{Backend: "sqlite"},
	}
}

// Load reads the file at path (or the default path when empty), applies
// environment overrides, fills derived defaults and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies TABTERM_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("TABTERM_CDP_URL"); u != "" {
		c.Browser.CDPURL = u
	}
	if backend := os.Getenv("TABTERM_STORE"); backend != "" {
		c.Store.Backend = backend
	}
}

// SetDefaults fills empty paths under ~/.tabterm and expands "~".
func (c *Config) SetDefaults() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if c.Store.Path == "" {
		switch c.Store.Backend {
		case "file":
			c.Store.Path = filepath.Join(dir, "state.json")
		default:
			c.Store.Path = filepath.Join(dir, "state.db")
		}
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dir, "tabterm.log")
	}
	if c.InitScript == "" {
		c.InitScript = filepath.Join(dir, "init.lua")
	}
	if c.Browser.Timeout == "" {
		c.Browser.Timeout = "0s"
	}

	for _, p := range []*string{&c.Store.Path, &c.Log.File, &c.InitScript, &c.Browser.DownloadDir} {
		if *p, err = ExpandHome(*p); err != nil {
			return err
		}
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every failed check.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.HistorySize < 1 {
		errs = append(errs, ValidationError{
			Field:   "history_size",
			Message: fmt.Sprintf("must be at least 1, got %d", c.HistorySize),
		})
	}

	switch c.Browser.Mode {
	case ModeRemote, ModeLaunch, ModeMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "browser.mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: remote, launch, memory", c.Browser.Mode),
		})
	}

	if c.Browser.Mode == ModeRemote && c.Browser.CDPURL == "" {
		errs = append(errs, ValidationError{Field: "browser.cdp_url", Message: "required in remote mode"})
	}

	if d, err := time.ParseDuration(c.Browser.Timeout); err != nil {
		errs = append(errs, ValidationError{Field: "browser.timeout", Message: err.Error()})
	} else if d < 0 {
		errs = append(errs, ValidationError{Field: "browser.timeout", Message: "cannot be negative"})
	}

	switch c.Store.Backend {
	case "sqlite", "file", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: sqlite, file, memory", c.Store.Backend),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BrowserTimeout returns the parsed per-call timeout.
func (c *Config) BrowserTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Browser.Timeout)
	return d
}

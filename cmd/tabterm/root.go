package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nathoo/tabterm/cli"
	"github.com/nathoo/tabterm/config"
	"github.com/nathoo/tabterm/engine"
	"github.com/nathoo/tabterm/host"
	"github.com/nathoo/tabterm/host/cdp"
	"github.com/nathoo/tabterm/loader"
	"github.com/nathoo/tabterm/store"
	"github.com/nathoo/tabterm/tui"
)

type rootFlags struct {
	config string
	plain  bool
	script string
	memory bool
	cdpURL string
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:   "tabterm",
		Short: "A command terminal for your browser",
		Long: `tabterm drives Chrome from a terminal.

Quick start:
  chrome --remote-debugging-port=9222   # start Chrome with CDP enabled
  tabterm                               # attach and open the terminal
  tabterm --memory                      # try it against a fake browser
  tabterm --script session.txt          # replay commands, one per line`,
		Args: cobra.NoArgs,
		// Silence usage and errors - main prints its own error
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	root.Flags().StringVar(&f.config, "config", "", "config file (default ~/.tabterm/config.toml)")
	root.Flags().BoolVar(&f.plain, "plain", false, "line mode instead of the full-screen UI")
	root.Flags().StringVar(&f.script, "script", "", "run commands from a file and exit")
	root.Flags().BoolVar(&f.memory, "memory", false, "use an in-memory browser and store")
	root.Flags().StringVar(&f.cdpURL, "cdp-url", "", "Chrome DevTools endpoint, e.g. http://localhost:9222")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tabterm %s (commit %s, built %s)\n", version, commit, date)
		},
	})
	return root
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(f rootFlags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.cdpURL != "" {
		cfg.Browser.Mode = config.ModeRemote
		cfg.Browser.CDPURL = f.cdpURL
	}
	if f.memory {
		cfg.Browser.Mode = config.ModeMemory
		cfg.Store.Backend = "memory"
	}
	return cfg, nil
}

// setupLog sends the standard logger to path.
func setupLog(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	lf, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(lf)
	log.SetFlags(log.LstdFlags)
	return lf, nil
}

// openHost returns the browser selected by cfg and a label for the status bar.
func openHost(ctx context.Context, cfg *config.Config, s store.Store) (host.Host, string, error) {
	switch cfg.Browser.Mode {
	case config.ModeMemory:
		return host.NewMemory(), "memory", nil
	case config.ModeLaunch:
		h, err := cdp.New(ctx, cdp.Options{
			Launch:      true,
			Headless:    cfg.Browser.Headless,
			Timeout:     cfg.BrowserTimeout(),
			DownloadDir: cfg.Browser.DownloadDir,
		}, s)
		if err != nil {
			return nil, "", err
		}
		return h, "chrome (launched)", nil
	default:
		h, err := cdp.New(ctx, cdp.Options{
			URL:         cfg.Browser.CDPURL,
			Timeout:     cfg.BrowserTimeout(),
			DownloadDir: cfg.Browser.DownloadDir,
		}, s)
		if err != nil {
			return nil, "", err
		}
		return h, cfg.Browser.CDPURL, nil
	}
}

func run(ctx context.Context, f rootFlags, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	lf, err := setupLog(cfg.Log.File)
	if err != nil {
		return err
	}
	defer lf.Close()

	st, err := store.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	h, label, err := openHost(ctx, cfg, st)
	if err != nil {
		return err
	}
	defer h.Close()
	log.Printf("[session] host=%s store=%s", label, cfg.Store.Backend)

	script, err := loader.Load(cfg.InitScript)
	if err != nil {
		return err
	}

	sess, err := engine.New(ctx, engine.Options{
		Host:        h,
		Store:       st,
		HistorySize: cfg.HistorySize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			log.Printf("[session] saving terminal history: %v", err)
		}
	}()

	if err := script.Apply(ctx, sess.Aliases()); err != nil {
		return err
	}

	// Script mode: read the file, force line mode, echo commands.
	if f.script != "" {
		sf, err := os.Open(f.script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer sf.Close()
		c := cli.New(sess)
		c.In = sf
		c.Out = out
		c.EchoInput = true
		c.Queued = script.Commands
		return c.Run(ctx)
	}

	if f.plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		c := cli.New(sess)
		c.In = in
		c.Out = out
		c.Queued = script.Commands
		return c.Run(ctx)
	}

	return tui.Run(ctx, sess, tui.Options{Label: label, Queued: script.Commands})
}

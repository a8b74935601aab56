// Package cli provides line-mode terminal I/O for a tabterm session, for
// pipes, scripts and terminals without a TTY.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/tabterm/engine"
	"github.com/nathoo/tabterm/types"
)

// Prompt precedes every command line, typed or printed.
const Prompt = "$ "

// CLI handles line-mode interaction with the user.
type CLI struct {
	Session   *engine.Session
	In        io.Reader
	Out       io.Writer
	EchoInput bool     // echo each input line after the prompt (for script playback)
	Queued    []string // submitted before reading input
}

// New creates a CLI wired to the given session.
func New(sess *engine.Session) *CLI {
	return &CLI{
		Session: sess,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run prints the banner, runs queued commands, then loops:
// prompt → input → submit → output. It returns at EOF or on exit/quit.
func (c *CLI) Run(ctx context.Context) error {
	c.printLines(c.Session.Lines(), true)

	for _, line := range c.Queued {
		c.printLines(c.Session.Submit(ctx, line), true)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print(Prompt)
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if input == "exit" || input == "quit" {
			c.printSystem("Goodbye.")
			return nil
		}

		// The typed line is already on screen after the prompt.
		c.printLines(c.Session.Submit(ctx, scanner.Text()), false)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	c.printLine("")
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// printLines writes rendered lines. Command lines are shown with the
// prompt when withCommands is set and skipped otherwise.
func (c *CLI) printLines(lines []types.OutputLine, withCommands bool) {
	for _, l := range lines {
		if l.Kind == types.KindCommand {
			if withCommands {
				c.printLine(Prompt + l.Text)
			}
			continue
		}
		c.printLine(l.Text)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}

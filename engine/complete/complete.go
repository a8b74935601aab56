// Package complete implements Tab completion of tab titles for "cd".
package complete

import (
	"context"
	"fmt"
	"strings"

	"github.com/nathoo/tabterm/types"
)

// Source supplies the candidate tabs, in host order.
type Source interface {
	Tabs(ctx context.Context) ([]types.Tab, error)
}

// Printer receives the hint and error lines completion renders.
type Printer interface {
	Append(text string, kind types.LineKind)
}

// State is the completion cycle in progress.
type State struct {
	Active        bool
	Candidates    []types.Tab
	Cursor        int
	OriginalInput string
}

// Completer cycles the input buffer through matching tab titles.
type Completer struct {
	Source Source
	Out    Printer
	state  State
}

// New returns a completer drawing candidates from src.
func New(src Source, out Printer) *Completer {
	return &Completer{Source: src, Out: out}
}

// Complete returns the buffer after one Tab press. Input whose first token
// is not "cd" is returned unchanged. The first press collects the tabs whose
// title contains the second token (case-insensitive) and, when there is
// more than one, lists them. Later presses cycle through them.
func (c *Completer) Complete(ctx context.Context, buffer string) (string, error) {
	fields := strings.Fields(buffer)
	if len(fields) == 0 || fields[0] != "cd" {
		return buffer, nil
	}

	first := !c.state.Active
	if first {
		tabs, err := c.Source.Tabs(ctx)
		if err != nil {
			c.Out.Append("Error during tab completion", types.KindError)
			return buffer, fmt.Errorf("fetching tabs: %w", err)
		}
		term := ""
		if len(fields) > 1 {
			term = strings.ToLower(fields[1])
		}
		var matches []types.Tab
		for _, t := range tabs {
			if strings.Contains(strings.ToLower(t.Title), term) {
				matches = append(matches, t)
			}
		}
		c.state = State{
			Active:        true,
			Candidates:    matches,
			OriginalInput: buffer,
		}
	} else {
		if len(c.state.Candidates) == 0 {
			return buffer, nil
		}
		c.state.Cursor = (c.state.Cursor + 1) % len(c.state.Candidates)
	}

	if len(c.state.Candidates) == 0 {
		return buffer, nil
	}
	if first && len(c.state.Candidates) > 1 {
		c.Out.Append("Possible completions:", types.KindInfo)
		for i, t := range c.state.Candidates {
			c.Out.Append(fmt.Sprintf("%d. %s", i+1, t.Title), types.KindInfo)
		}
	}
	return "cd " + c.state.Candidates[c.state.Cursor].Title, nil
}

// Reset ends the cycle. Any edit other than Tab calls it.
func (c *Completer) Reset() {
	c.state = State{}
}

// State returns the current cycle.
func (c *Completer) State() State {
	return c.state
}

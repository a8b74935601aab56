// Package output holds the terminal's rendered log.
//
// Two sequences are kept. The screen is what the front end draws; "clear"
// empties it. The log history is what overflow is measured against and what
// gets persisted as terminal history; "clearhistory" empties it. Every
// append goes to both.
package output

import "github.com/nathoo/tabterm/types"

// Banner is shown after every reset.
var Banner = []types.OutputLine{
	{Text: "tabterm v1.0 [Enhanced with Tab Completion]", Kind: types.KindInfo},
	{Text: `Type "help" for available commands`, Kind: types.KindInfo},
}

// Log is the bounded output log.
type Log struct {
	screen  []types.OutputLine
	history []types.OutputLine
	fresh   []types.OutputLine
	keep    int // N; history is capped at 3N
}

// New creates a log for a command history of size n, showing the banner.
func New(n int) *Log {
	if n < 1 {
		n = 1
	}
	l := &Log{keep: n}
	l.Reset()
	return l
}

// Reset empties both sequences and shows the banner.
func (l *Log) Reset() {
	l.screen = nil
	l.history = nil
	for _, b := range Banner {
		l.push(b)
	}
	l.fresh = append(l.fresh, Banner...)
}

// Append renders one line. When the log history exceeds 3N lines the log is
// reset and the most recent N lines are replayed after the banner.
func (l *Log) Append(text string, kind types.LineKind) {
	line := types.OutputLine{Text: text, Kind: kind}
	l.push(line)
	l.fresh = append(l.fresh, line)
	if len(l.fresh) > 3*l.keep {
		l.fresh = l.fresh[len(l.fresh)-3*l.keep:]
	}

	if len(l.history) > 3*l.keep {
		tail := append([]types.OutputLine(nil), l.history[len(l.history)-l.keep:]...)
		l.screen = nil
		l.history = nil
		for _, b := range Banner {
			l.push(b)
		}
		for _, t := range tail {
			l.push(t)
		}
	}
}

func (l *Log) push(line types.OutputLine) {
	l.screen = append(l.screen, line)
	l.history = append(l.history, line)
}

// Clear empties the screen. The log history is kept.
func (l *Log) Clear() {
	l.screen = nil
}

// ClearHistory empties the log history. The screen is kept.
func (l *Log) ClearHistory() {
	l.history = nil
}

// Lines returns a copy of the screen.
func (l *Log) Lines() []types.OutputLine {
	return append([]types.OutputLine(nil), l.screen...)
}

// History returns a copy of the log history.
func (l *Log) History() []types.OutputLine {
	out := make([]types.OutputLine, len(l.history))
	copy(out, l.history)
	return out
}

// Take returns the lines rendered since the previous call. Lines replayed
// by an overflow reset are not included.
func (l *Log) Take() []types.OutputLine {
	out := l.fresh
	l.fresh = nil
	return out
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line showing the
// host, the completion cycle and the history size.
func (m Model) renderStatusBar() string {
	left := " tabterm"
	if m.label != "" {
		left += " | " + m.label
	}

	var right string
	switch {
	case m.busy:
		right = m.spinner.View() + " working "
	default:
		if c := m.view.completion; c.Active && len(c.Candidates) > 1 {
			right = fmt.Sprintf("completion %d/%d | ", c.Cursor+1, len(c.Candidates))
		}
		right += fmt.Sprintf("history: %d ", m.view.history)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

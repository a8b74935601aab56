package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/tabterm/types"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNormal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleCommand = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleInfo = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	styleSuccess = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleHistory = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	styleSpinner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))
)

// commandPrefix marks echoed input on screen.
const commandPrefix = "$ "

// renderLine applies the style for a line's kind. Command lines get the
// prompt prefix.
func renderLine(text string, kind types.LineKind) string {
	switch kind {
	case types.KindCommand:
		return styleCommand.Render(text)
	case types.KindInfo:
		return styleInfo.Render(text)
	case types.KindSuccess:
		return styleSuccess.Render(text)
	case types.KindError:
		return styleError.Render(text)
	case types.KindHistory:
		return styleHistory.Render(text)
	default:
		return styleNormal.Render(text)
	}
}

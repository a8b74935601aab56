// Package tui provides a Bubble Tea terminal UI for a tabterm session.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/tabterm/engine"
	"github.com/nathoo/tabterm/engine/complete"
	"github.com/nathoo/tabterm/types"
)

// Options configures the TUI.
type Options struct {
	// Label names the host in the status bar.
	Label string
	// Queued lines are submitted in order before the user types.
	Queued []string
}

// snapshot is the session state the view needs. It is taken right after a
// session call so View never waits on the session lock.
type snapshot struct {
	lines      []types.OutputLine
	completion complete.State
	history    int
}

// Model is the Bubble Tea model for the tabterm TUI.
type Model struct {
	ctx     context.Context
	session *engine.Session
	label   string
	queued  []string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	view     snapshot

	width    int
	height   int
	ready    bool
	quitting bool

	// busy is set while Submit or Complete runs in a tea.Cmd.
	busy bool
	// pendingEdit records typing that happened while busy.
	pendingEdit bool
}

// submitDoneMsg reports a finished Submit.
type submitDoneMsg struct {
	view snapshot
}

// completeDoneMsg reports a finished Complete.
type completeDoneMsg struct {
	buffer string
	view   snapshot
}

// New creates a TUI model wired to the given session.
func New(ctx context.Context, sess *engine.Session, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = commandPrefix
	ti.Focus()
	ti.CharLimit = 1024
	ti.PromptStyle = styleInputPrompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleSpinner

	m := Model{
		ctx:     ctx,
		session: sess,
		label:   opts.Label,
		queued:  opts.Queued,
		input:   ti,
		spinner: sp,
		busy:    len(opts.Queued) > 0,
	}
	m.view = m.snapshot()
	return m
}

// Run starts the Bubble Tea program.
func Run(ctx context.Context, sess *engine.Session, opts Options) error {
	m := New(ctx, sess, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init starts the cursor blink and runs any queued commands.
func (m Model) Init() tea.Cmd {
	if len(m.queued) == 0 {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.runQueued(m.queued))
}

func (m Model) snapshot() snapshot {
	return snapshot{
		lines:      m.session.Lines(),
		completion: m.session.Completion(),
		history:    len(m.session.History()),
	}
}

func (m Model) runQueued(lines []string) tea.Cmd {
	return func() tea.Msg {
		for _, line := range lines {
			m.session.Submit(m.ctx, line)
		}
		return submitDoneMsg{view: m.snapshot()}
	}
}

func (m Model) submit(raw string) tea.Cmd {
	return func() tea.Msg {
		m.session.Submit(m.ctx, raw)
		return submitDoneMsg{view: m.snapshot()}
	}
}

func (m Model) complete(buffer string) tea.Cmd {
	return func() tea.Msg {
		out, _ := m.session.Complete(m.ctx, buffer)
		return completeDoneMsg{buffer: out, view: m.snapshot()}
	}
}

// Update handles messages (key presses, window resize, session results).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.input.Width = m.width - len(commandPrefix) - 1

		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case submitDoneMsg:
		m.busy = false
		m.view = msg.view
		m.flushEdit()
		m.refreshViewport()
		return m, nil

	case completeDoneMsg:
		m.busy = false
		m.view = msg.view
		// Typing during the call wins over the completed buffer.
		if !m.flushEdit() {
			m.input.SetValue(msg.buffer)
			m.input.CursorEnd()
		}
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, inputCmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "pgup", "pgdown":
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, vpCmd

	case "enter", "tab", "up", "down":
		if m.busy {
			return m, nil
		}
	}

	switch msg.String() {
	case "enter":
		return m.handleEnter()

	case "tab":
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.complete(m.input.Value()))

	case "up":
		if prev, ok := m.session.RecallPrevious(); ok {
			m.input.SetValue(prev)
			m.input.CursorEnd()
		}
		m.view.completion = complete.State{}
		return m, nil

	case "down":
		if next, ok := m.session.RecallNext(); ok {
			m.input.SetValue(next)
			m.input.CursorEnd()
		}
		m.view.completion = complete.State{}
		return m, nil
	}

	before := m.input.Value()
	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	if m.input.Value() != before {
		if m.busy {
			m.pendingEdit = true
		} else {
			m.session.Edit()
			m.view.completion = complete.State{}
		}
	}
	return m, inputCmd
}

// handleEnter submits the input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	raw := m.input.Value()
	m.input.SetValue("")

	switch strings.TrimSpace(raw) {
	case "":
		return m, nil
	case "exit", "quit":
		m.quitting = true
		return m, tea.Quit
	}

	m.busy = true
	return m, tea.Batch(m.spinner.Tick, m.submit(raw))
}

// flushEdit applies an edit typed while busy. It reports whether there was one.
func (m *Model) flushEdit() bool {
	if !m.pendingEdit {
		return false
	}
	m.pendingEdit = false
	m.session.Edit()
	m.view.completion = complete.State{}
	return true
}

// refreshViewport re-wraps and re-styles all lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	styled := make([]string, 0, len(m.view.lines))
	for _, l := range m.view.lines {
		text := l.Text
		if l.Kind == types.KindCommand {
			text = commandPrefix + text
		}
		var parts []string
		for _, seg := range strings.Split(text, "\n") {
			parts = append(parts, wordWrap(seg, width))
		}
		styled = append(styled, renderLine(strings.Join(parts, "\n"), l.Kind))
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Words longer than width are left whole.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for command history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}

package statusbar

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"askdb/internal/tui/theme"
)

const hints = "Tab: pane │ Ctrl+E: run SQL │ Enter: ask │ Ctrl+R: reset │ ?: help"

// Model is the status bar: active store, pane, busy spinner and a message.
type Model struct {
	width      int
	source     string
	activePane string
	message    string
	busy       bool
	spinner    spinner.Model
}

// New creates a status bar with no store.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorPrimary)
	return Model{spinner: s}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetSource shows the loaded store; empty means none.
func (m *Model) SetSource(name string) {
	m.source = name
}

// SetActivePane updates the displayed pane name.
func (m *Model) SetActivePane(pane string) {
	m.activePane = pane
}

// SetMessage sets the message shown instead of the key hints.
func (m *Model) SetMessage(msg string) {
	m.message = msg
}

// Message returns the current message.
func (m Model) Message() string {
	return m.message
}

// Busy reports whether the spinner is running.
func (m Model) Busy() bool {
	return m.busy
}

// StartBusy shows msg next to a spinner. The returned command drives the
// spinner and must be handed to the program.
func (m *Model) StartBusy(msg string) tea.Cmd {
	m.message = msg
	if m.busy {
		return nil
	}
	m.busy = true
	return m.spinner.Tick
}

// StopBusy stops the spinner and shows msg.
func (m *Model) StopBusy(msg string) {
	m.busy = false
	m.message = msg
}

// Update advances the spinner while busy.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok || !m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	var left string
	if m.source != "" {
		left = lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●") + " " + m.source
	} else {
		left = lipgloss.NewStyle().Foreground(theme.ColorError).Render("●") + " no data"
	}
	if m.activePane != "" {
		left += theme.StyleMuted.Render(" │ " + m.activePane)
	}

	right := hints
	if m.message != "" {
		right = m.message
	}
	if m.busy {
		right = m.spinner.View() + " " + right
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if padding < 1 {
		padding = 1
	}
	return style.Render(left + strings.Repeat(" ", padding) + right)
}

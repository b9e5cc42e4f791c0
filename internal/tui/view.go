package tui

import (
	"github.com/charmbracelet/lipgloss"

	"askdb/internal/tui/theme"
)

const (
	promptHeight = 1
	minEditor    = 4
)

func (m Model) explorerWidth() int {
	return min(max(m.width/4, 22), 35)
}

// paneHeights splits the right column between editor, prompt and results.
func (m Model) paneHeights() (editorH, resultsH int) {
	avail := m.height - 1 // status bar
	// three bordered boxes on the right
	inner := avail - 6 - promptHeight - 1
	editorH = max(inner*30/100, minEditor)
	resultsH = max(inner-editorH, 3)
	return editorH, resultsH
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	rightWidth := m.width - m.explorerWidth() - 1
	editorH, resultsH := m.paneHeights()

	m.explorer.SetSize(m.explorerWidth(), m.height-3)
	m.editor.SetSize(rightWidth, editorH)
	m.prompt.Width = max(10, rightWidth-8)
	m.results.SetSize(rightWidth, resultsH)
	m.statusbar.SetWidth(m.width)
}

// View renders the whole screen.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if m.mode == ModeUpload {
		return m.viewUpload()
	}
	return m.viewMain()
}

func border(active bool) lipgloss.Style {
	if active {
		return theme.StyleActiveBorder
	}
	return theme.StyleBorder
}

func (m Model) viewUpload() string {
	title := lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true).Padding(1, 0).Render("askdb")
	subtitle := theme.StyleMuted.Render("Ask questions about your data in plain language.")

	prompt := lipgloss.NewStyle().Foreground(theme.ColorPrimary).Render("Open a file or a database:")

	var errMsg string
	if m.err != nil {
		errMsg = theme.StyleError.Render("  Error: " + m.err.Error())
	}

	status := ""
	if m.statusbar.Busy() || m.statusbar.Message() != "" {
		status = "  " + m.statusbar.View()
	}

	hint := "  Enter: open │ Ctrl+D: demo database │ Ctrl+C: quit"
	if m.source != "" {
		hint = "  Enter: open │ Ctrl+D: demo database │ Esc: back │ Ctrl+C: quit"
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		"",
		title,
		subtitle,
		"",
		prompt,
		"  "+m.pathInput.View(),
		theme.StyleMuted.Render("  "+UploadHint()),
		errMsg,
		status,
		"",
		theme.StyleMuted.Render(hint),
	)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) viewMain() string {
	explorerWidth := m.explorerWidth()
	rightWidth := m.width - explorerWidth - 1
	editorH, resultsH := m.paneHeights()

	explorerView := border(m.activePane == PaneExplorer).
		Width(max(1, explorerWidth-2)).
		Height(max(1, m.height-3)).
		Render(m.explorer.View())

	editorView := border(m.activePane == PaneEditor).
		Width(max(1, rightWidth-2)).
		Height(editorH).
		Render(m.editor.View())

	promptView := border(m.activePane == PanePrompt).
		Width(max(1, rightWidth-2)).
		Height(promptHeight).
		Render(m.prompt.View())

	resultsView := border(m.activePane == PaneResults).
		Width(max(1, rightWidth-2)).
		Height(resultsH).
		Render(m.results.View())

	right := lipgloss.JoinVertical(lipgloss.Left, editorView, promptView, resultsView)
	body := lipgloss.JoinHorizontal(lipgloss.Top, explorerView, right)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusbar.View())
}

func (m Model) viewHelp() string {
	section := lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true)
	key := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(16)
	line := func(k, desc string) string {
		return key.Render("  "+k) + theme.StyleMuted.Render(desc)
	}

	help := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true).Render("askdb - Keyboard Shortcuts"),
		"",
		section.Render("Global"),
		line("Tab/Shift+Tab", "Switch pane"),
		line("Ctrl+O", "Open another file"),
		line("Ctrl+R", "Reset session"),
		line("q / Ctrl+C", "Quit"),
		"",
		section.Render("Tables"),
		line("↑/k ↓/j", "Navigate"),
		line("Enter/→ ←", "Expand / collapse"),
		line("s", "SELECT * LIMIT 100"),
		line("d", "Count rows"),
		"",
		section.Render("SQL"),
		line("Ctrl+E / F5", "Run query"),
		line("Ctrl+L", "Uppercase keywords"),
		line("Ctrl+K", "Clear query and result"),
		line("Ctrl+Y", "Copy SQL"),
		"",
		section.Render("Ask"),
		line("Enter", "Ask the assistant"),
		"",
		section.Render("Results"),
		line("↑/↓ PgUp/PgDn", "Scroll"),
		line("v", "Table / bar / line / scatter"),
		line("x / y", "Next x / y column"),
		line("e", "Export CSV"),
		line("c", "Copy row"),
		"",
		theme.StyleMuted.Render("Press any key to close"),
	)
	if m.width == 0 || m.height == 0 {
		return help
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, help)
}

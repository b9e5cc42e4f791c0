// Package editor is the SQL pane.
package editor

import (
	"strings"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"askdb/internal/tui/theme"
)

// ExecuteQueryMsg is sent when the user runs the editor content.
type ExecuteQueryMsg struct {
	Query string
}

// ClearQueryMsg is sent when the user clears the editor or runs it empty,
// which drops the current query and its result.
type ClearQueryMsg struct{}

// NotifyMsg carries a status line message for the app.
type NotifyMsg struct {
	Message string
}

var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"insert": true, "into": true, "update": true, "delete": true,
	"create": true, "drop": true, "alter": true, "table": true,
	"join": true, "inner": true, "outer": true, "left": true, "right": true,
	"cross": true, "on": true, "not": true, "in": true, "is": true,
	"null": true, "like": true, "order": true, "by": true, "group": true,
	"having": true, "limit": true, "offset": true, "as": true,
	"distinct": true, "count": true, "sum": true, "avg": true, "min": true,
	"max": true, "between": true, "exists": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "values": true, "set": true,
	"union": true, "all": true, "asc": true, "desc": true, "with": true,
	"cast": true, "round": true, "coalesce": true,
}

// Model wraps a textarea holding one SQL query.
type Model struct {
	textarea textarea.Model
	width    int
	height   int
	focused  bool
}

// New creates an empty editor.
func New() Model {
	ta := textarea.New()
	ta.Placeholder = "Write SQL here, or ask a question below..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = "│ "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = theme.StyleMuted
	ta.BlurredStyle.Placeholder = theme.StyleMuted
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorPrimary)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorBorder)
	return Model{textarea: ta}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.textarea.SetWidth(max(1, w-2))
	m.textarea.SetHeight(max(1, h-2))
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// Value returns the editor content.
func (m Model) Value() string {
	return m.textarea.Value()
}

// SetQuery replaces the editor content.
func (m *Model) SetQuery(query string) {
	m.textarea.SetValue(query)
}

// Clear empties the editor.
func (m *Model) Clear() {
	m.textarea.Reset()
}

// Update handles keys while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+e", "f5":
			query := strings.TrimSpace(m.textarea.Value())
			if query == "" {
				m.Clear()
				return m, clearCmd
			}
			return m, func() tea.Msg { return ExecuteQueryMsg{Query: query} }
		case "ctrl+k":
			m.Clear()
			return m, clearCmd
		case "ctrl+l":
			m.textarea.SetValue(FormatKeywords(m.textarea.Value()))
			return m, nil
		case "ctrl+y":
			return m, copyCmd(m.textarea.Value())
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func clearCmd() tea.Msg {
	return ClearQueryMsg{}
}

func copyCmd(sql string) tea.Cmd {
	sql = strings.TrimSpace(sql)
	return func() tea.Msg {
		if sql == "" {
			return NotifyMsg{Message: "Nothing to copy"}
		}
		if err := clipboard.WriteAll(sql); err != nil {
			return NotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		return NotifyMsg{Message: "SQL copied to clipboard"}
	}
}

// FormatKeywords uppercases SQL keywords outside quoted text.
func FormatKeywords(sql string) string {
	var out, word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		if sqlKeywords[strings.ToLower(w)] {
			w = strings.ToUpper(w)
		}
		out.WriteString(w)
		word.Reset()
	}

	var quote rune
	for _, ch := range sql {
		switch {
		case quote != 0:
			out.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			flush()
			quote = ch
			out.WriteRune(ch)
		case unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_':
			word.WriteRune(ch)
		default:
			flush()
			out.WriteRune(ch)
		}
	}
	flush()
	return out.String()
}

// View renders the editor.
func (m Model) View() string {
	return theme.StyleTitle.Render("SQL") + "\n" + m.textarea.View()
}

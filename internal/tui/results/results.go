// Package results is the pane showing the agent answer and the query result
// as a table or a chart.
package results

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"askdb/internal/adapter"
	"askdb/internal/tui/theme"
	"askdb/internal/viz"
)

// QueryErrorText is shown for any failed query; the diagnostic goes to the log.
const QueryErrorText = "Query error, please try again"

// Model is the results component.
type Model struct {
	result  *adapter.QueryResult
	answer  string
	err     error
	width   int
	height  int
	focused bool
	loading bool
	scrollY int

	kind    viz.Kind
	x, y    string
	spec    viz.Spec
	specErr error
}

// New creates an empty results pane.
func New() Model {
	return Model{kind: viz.KindTable, spec: viz.Spec{Kind: viz.KindTable}}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
}

func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetResult shows r, keeping the chart kind and axes where they still apply.
func (m *Model) SetResult(r *adapter.QueryResult) {
	m.result = r
	m.err = nil
	m.scrollY = 0
	m.loading = false
	if r != nil && !contains(r.Columns, m.x) {
		m.x = ""
	}
	if r != nil && !contains(r.Columns, m.y) {
		m.y = ""
	}
	m.resolve()
}

// SetAnswer shows the agent's text above the result.
func (m *Model) SetAnswer(text string) {
	m.answer = strings.TrimSpace(text)
}

// SetError replaces the result with an error.
func (m *Model) SetError(err error) {
	m.err = err
	m.result = nil
	m.scrollY = 0
	m.loading = false
}

// Clear forgets everything shown.
func (m *Model) Clear() {
	*m = Model{width: m.width, height: m.height, focused: m.focused, kind: viz.KindTable, spec: viz.Spec{Kind: viz.KindTable}}
}

// Result returns the result on display.
func (m Model) Result() *adapter.QueryResult {
	return m.result
}

// Spec returns the resolved chart spec.
func (m Model) Spec() viz.Spec {
	return m.spec
}

// SetKind switches representation.
func (m *Model) SetKind(k viz.Kind) {
	m.kind = k
	m.resolve()
}

func (m *Model) resolve() {
	m.spec, m.specErr = viz.NewSpec(m.result, m.kind, m.x, m.y)
}

func (m *Model) cycleAxis(axis *string, current string) {
	if m.result == nil || len(m.result.Columns) == 0 {
		return
	}
	next := m.result.Columns[0]
	for i, c := range m.result.Columns {
		if c == current {
			next = m.result.Columns[(i+1)%len(m.result.Columns)]
			break
		}
	}
	*axis = next
	m.resolve()
}

// Update handles keys while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.scrollY > 0 {
			m.scrollY--
		}
	case "down", "j":
		if m.result != nil && m.scrollY < len(m.result.Rows)-1 {
			m.scrollY++
		}
	case "pgup":
		m.scrollY = max(0, m.scrollY-m.height/2)
	case "pgdown":
		if m.result != nil {
			m.scrollY = max(0, min(m.scrollY+m.height/2, len(m.result.Rows)-1))
		}
	case "v":
		m.SetKind(m.kind.Next())
	case "x":
		m.cycleAxis(&m.x, m.spec.X)
	case "y":
		m.cycleAxis(&m.y, m.spec.Y)
	case "e":
		return m, m.exportCSVCmd()
	case "c":
		return m, m.copyRowCmd()
	}
	return m, nil
}

// View renders the pane.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Results")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Working...")
	}

	var b strings.Builder
	b.WriteString(title)
	if m.result != nil {
		b.WriteString("  ")
		b.WriteString(theme.StyleMuted.Render(m.stats()))
	}
	used := 1

	if m.answer != "" {
		wrapped := lipgloss.NewStyle().Width(max(10, m.width-4)).PaddingLeft(2).Render(m.answer)
		b.WriteString("\n")
		b.WriteString(wrapped)
		used += lipgloss.Height(wrapped)
	}

	switch {
	case m.err != nil:
		b.WriteString("\n")
		b.WriteString(theme.StyleError.Render("  " + errorText(m.err)))
		return b.String()
	case m.result == nil:
		if m.answer == "" {
			b.WriteString("\n")
			b.WriteString(theme.StyleMuted.Render("  Run a query or ask a question to see results"))
		}
		return b.String()
	case len(m.result.Columns) == 0:
		b.WriteString("\n")
		b.WriteString(theme.StyleSuccess.Render("  Query executed successfully"))
		return b.String()
	}

	body := max(1, m.height-used-1)
	b.WriteString("\n")
	if m.specErr != nil {
		b.WriteString(theme.StyleError.Render("  Cannot draw " + string(m.kind) + ": " + m.specErr.Error()))
		return b.String()
	}
	if m.spec.Kind == viz.KindTable {
		b.WriteString(viz.RenderTable(m.result, m.scrollY, max(1, body-2)))
	} else {
		b.WriteString(viz.Render(m.result, m.spec, max(10, m.width-4), body))
	}
	return b.String()
}

func (m Model) stats() string {
	s := fmt.Sprintf("%d row(s) | %s | %s", m.result.RowCount, m.result.ExecutionTime.Round(1000), m.kind)
	if m.spec.Kind != viz.KindTable && m.specErr == nil {
		s += fmt.Sprintf(" x=%s y=%s", m.spec.X, m.spec.Y)
	}
	return s
}

func errorText(err error) string {
	if adapter.IsQueryError(err) {
		return QueryErrorText
	}
	return "Error: " + err.Error()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

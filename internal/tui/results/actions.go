package results

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"askdb/internal/adapter"
	"askdb/internal/viz"
)

// StatusNotifyMsg tells the app to show a message in the status bar.
type StatusNotifyMsg struct {
	Message string
}

func (m Model) exportCSVCmd() tea.Cmd {
	result := m.result
	if result == nil {
		return notify("Nothing to export")
	}
	return func() tea.Msg {
		path, err := viz.ExportCSV("", result)
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(result.Rows), path)}
	}
}

// copyRowCmd copies the top visible row as tab separated text.
func (m Model) copyRowCmd() tea.Cmd {
	if m.result == nil || m.scrollY >= len(m.result.Rows) {
		return notify("No row to copy")
	}
	row := m.result.Rows[m.scrollY]
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = adapter.FormatValue(v)
	}
	text := strings.Join(cells, "\t")
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return StatusNotifyMsg{Message: "Copy failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: "Copied row " + fmt.Sprint(m.scrollY+1)}
	}
}

func notify(msg string) tea.Cmd {
	return func() tea.Msg { return StatusNotifyMsg{Message: msg} }
}

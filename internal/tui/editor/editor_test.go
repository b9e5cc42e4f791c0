package editor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"select name from data where age > 30", "SELECT name FROM data WHERE age > 30"},
		{"select 'select from' as x", "SELECT 'select from' AS x"},
		{`select "order" from t`, `SELECT "order" FROM t`},
		{"select count(*) from t group by region", "SELECT COUNT(*) FROM t GROUP BY region"},
		{"select from_date from t", "SELECT from_date FROM t"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatKeywords(tt.in), tt.in)
	}
}

func TestEditor_Execute(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetSize(60, 10)
	m.SetFocused(true)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	assert.Equal(t, ClearQueryMsg{}, cmd(), "running an empty editor clears the query")

	m.SetQuery("   ")
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyF5})
	require.NotNil(t, cmd)
	assert.Equal(t, ClearQueryMsg{}, cmd())
	assert.Empty(t, m.Value())

	m.SetQuery("  select 1  ")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	assert.Equal(t, ExecuteQueryMsg{Query: "select 1"}, cmd())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, "  SELECT 1  ", m.Value())

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlK})
	assert.Empty(t, m.Value())
	require.NotNil(t, cmd)
	assert.Equal(t, ClearQueryMsg{}, cmd())
}

func TestEditor_Blurred(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetQuery("select 1")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Nil(t, cmd)
}

func TestEditor_CopyEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, NotifyMsg{Message: "Nothing to copy"}, copyCmd("  ")())
}

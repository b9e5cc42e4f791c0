package results

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdb/internal/adapter"
	"askdb/internal/viz"
)

func sales() *adapter.QueryResult {
	return &adapter.QueryResult{
		Columns:  []string{"region", "units", "price"},
		Rows:     [][]any{{"north", int64(5), 2.5}, {"south", int64(8), 1.0}, {"east", int64(3), 4.0}},
		RowCount: 3,
	}
}

func press(m Model, k string) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func focused() Model {
	m := New()
	m.SetSize(80, 20)
	m.SetFocused(true)
	return m
}

func TestResults_ChartCycling(t *testing.T) {
	t.Parallel()
	m := focused()
	m.SetResult(sales())
	assert.Equal(t, viz.KindTable, m.Spec().Kind)

	m, _ = press(m, "v")
	assert.Equal(t, viz.Spec{Kind: viz.KindBar, X: "region", Y: "units"}, m.Spec())
	assert.Contains(t, m.View(), "x=region y=units")

	m, _ = press(m, "y")
	assert.Equal(t, "price", m.Spec().Y)
	m, _ = press(m, "y")
	assert.Equal(t, "region", m.Spec().Y)
	assert.Contains(t, m.View(), "Cannot draw bar", "a text column cannot be the y axis")

	m, _ = press(m, "y")
	assert.Equal(t, "units", m.Spec().Y)

	m, _ = press(m, "v")
	assert.Equal(t, viz.KindLine, m.Spec().Kind)
	m, _ = press(m, "v")
	assert.Equal(t, viz.KindScatter, m.Spec().Kind)
	assert.Contains(t, m.View(), "Cannot draw scatter", "region is not numeric")

	m, _ = press(m, "x")
	assert.Equal(t, "units", m.Spec().X)
	m, _ = press(m, "x")
	assert.Equal(t, "price", m.Spec().X)
	assert.NotContains(t, m.View(), "Cannot draw")

	m, _ = press(m, "v")
	assert.Equal(t, viz.KindTable, m.Spec().Kind)
}

func TestResults_NewResultKeepsValidAxes(t *testing.T) {
	t.Parallel()
	m := focused()
	m.SetResult(sales())
	m, _ = press(m, "v")
	m, _ = press(m, "y")
	require.Equal(t, "price", m.Spec().Y)

	m.SetResult(&adapter.QueryResult{
		Columns:  []string{"day", "total"},
		Rows:     [][]any{{"mon", 1.0}, {"tue", 2.0}},
		RowCount: 2,
	})
	assert.Equal(t, viz.Spec{Kind: viz.KindBar, X: "day", Y: "total"}, m.Spec())
}

func TestResults_Scroll(t *testing.T) {
	t.Parallel()
	m := focused()
	m.SetResult(sales())

	m, _ = press(m, "j")
	m, _ = press(m, "j")
	m, _ = press(m, "j")
	assert.Equal(t, 2, m.scrollY, "stops at the last row")
	m, _ = press(m, "k")
	assert.Equal(t, 1, m.scrollY)
	assert.NotContains(t, m.View(), "north")
}

func TestResults_Errors(t *testing.T) {
	t.Parallel()
	m := focused()

	m.SetError(&adapter.QueryError{Message: "near \"SELEC\": syntax error"})
	assert.Contains(t, m.View(), QueryErrorText)
	assert.NotContains(t, m.View(), "syntax error")

	m.SetError(errors.New("store unavailable"))
	assert.Contains(t, m.View(), "Error: store unavailable")
}

func TestResults_AnswerAndEmpty(t *testing.T) {
	t.Parallel()
	m := focused()
	assert.Contains(t, m.View(), "Run a query or ask a question")

	m.SetAnswer("  Sales peaked in March. ")
	assert.Contains(t, m.View(), "Sales peaked in March.")
	assert.NotContains(t, m.View(), "Run a query")

	m.SetResult(&adapter.QueryResult{})
	assert.Contains(t, m.View(), "Query executed successfully")

	m.Clear()
	assert.Nil(t, m.Result())
	assert.Contains(t, m.View(), "Run a query or ask a question")
}

func TestResults_Export(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	m := focused()
	_, cmd := press(m, "e")
	assert.Equal(t, StatusNotifyMsg{Message: "Nothing to export"}, cmd())

	m.SetResult(sales())
	_, cmd = press(m, "e")
	msg, ok := cmd().(StatusNotifyMsg)
	require.True(t, ok)
	assert.Contains(t, msg.Message, "Exported 3 rows to askdb_export_")

	files, err := filepath.Glob(filepath.Join(dir, "askdb_export_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "region,units,price\nnorth,5,2.5\nsouth,8,1\neast,3,4\n", string(data))
}

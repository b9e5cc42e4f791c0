package explorer

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdb/internal/adapter"
)

func schema() []*adapter.TableDescriptor {
	return []*adapter.TableDescriptor{
		{
			Name:        "customers",
			Columns:     []adapter.ColumnInfo{{Name: "id", Type: "INTEGER", PrimaryKey: true}, {Name: "name", Type: "TEXT"}},
			ForeignKeys: []adapter.ForeignKey{},
		},
		{
			Name:        "order items",
			Columns:     []adapter.ColumnInfo{{Name: "customer_id", Type: "INTEGER"}},
			ForeignKeys: []adapter.ForeignKey{{Column: "customer_id", RefTable: "customers", RefColumn: "id"}},
		},
	}
}

func press(m Model, k string) (Model, tea.Msg) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	m, cmd := m.Update(msg)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestExplorer_Tree(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetSize(40, 20)
	m.SetFocused(true)
	m.SetSchema(schema())

	assert.Equal(t, []string{"customers", "order items"}, m.TableNames())
	require.Len(t, m.items, 2)

	m, _ = press(m, "j")
	m, _ = press(m, "enter")
	require.Len(t, m.items, 4, "column and foreign key nodes are shown")
	view := m.View()
	assert.Contains(t, view, "customer_id")
	assert.Contains(t, view, "customers.id")

	m, _ = press(m, "j")
	table, ok := m.SelectedTable()
	require.True(t, ok)
	assert.Equal(t, "order items", table)

	// left on a child collapses its table
	m, _ = press(m, "left")
	assert.Len(t, m.items, 2)
	assert.Equal(t, 1, m.cursor)
}

func TestExplorer_QuickQueries(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetFocused(true)
	m.SetSchema(schema())

	_, msg := press(m, "s")
	assert.Equal(t, QuickQueryMsg{Query: "SELECT * FROM customers LIMIT 100"}, msg)

	m, _ = press(m, "j")
	_, msg = press(m, "d")
	assert.Equal(t, QuickQueryMsg{Query: `SELECT COUNT(*) AS row_count FROM "order items"`}, msg)
}

func TestExplorer_IgnoresKeysWhenBlurred(t *testing.T) {
	t.Parallel()
	m := New()
	m.SetSchema(schema())
	m, msg := press(m, "s")
	assert.Nil(t, msg)
	assert.Equal(t, 0, m.cursor)
}

func TestExplorer_Empty(t *testing.T) {
	t.Parallel()
	m := New()
	assert.Contains(t, m.View(), "No tables")
	m.SetLoading(true)
	assert.Contains(t, m.View(), "Loading")
	_, ok := m.SelectedTable()
	assert.False(t, ok)
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "data", quoteIdent("data"))
	assert.Equal(t, `"my table"`, quoteIdent("my table"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}

package inference

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"

	"askdb/internal/adapter"
)

func newTestAdapter(t *testing.T) adapter.DBAdapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			customer_id INTEGER REFERENCES customers(id),
			total REAL
		);
		INSERT INTO customers (name) VALUES ('ann'), ('bob'), ('cid'), ('dee');
		INSERT INTO orders (customer_id, total) VALUES (1, 9.5), (1, 3), (2, 12.25);
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	a, err := adapter.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestListTablesTool(t *testing.T) {
	t.Parallel()
	tool := NewListTablesTool(newTestAdapter(t), nil)

	out, err := tool.Call(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "customers, orders", out)
	assert.Equal(t, ToolListTables, tool.Name())
}

func TestSchemaTool(t *testing.T) {
	t.Parallel()
	tool := NewSchemaTool(newTestAdapter(t), nil)
	ctx := context.Background()

	out, err := tool.Call(ctx, "orders, customers")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE orders (")
	assert.Contains(t, out, "FOREIGN KEY (customer_id) REFERENCES customers (id)")
	assert.Contains(t, out, "name TEXT NOT NULL")
	assert.Contains(t, out, "3 rows from customers table:")
	assert.Contains(t, out, "cid")
	assert.NotContains(t, out, "dee", "only three sample rows")

	out, err = tool.Call(ctx, "`missing`")
	require.NoError(t, err)
	assert.Contains(t, out, `table "missing" does not exist`)

	out, err = tool.Call(ctx, "  ")
	require.NoError(t, err)
	assert.Contains(t, out, ToolListTables)
}

func TestVerifySQLTool(t *testing.T) {
	t.Parallel()
	tool := NewVerifySQLTool(newTestAdapter(t), nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		valid bool
		want  string
	}{
		{"valid", "SELECT name FROM customers", true, ""},
		{"fenced", "```sql\nSELECT count(*) AS n FROM orders\n```", true, ""},
		{"illegal alias", "SELECT count(*) AS count(*) FROM orders", false, "illegal alias"},
		{"unbalanced", "SELECT (1 + 2 FROM orders", false, "unmatched opening parenthesis"},
		{"paren in string", "SELECT name FROM customers WHERE name = ')'", true, ""},
		{"unknown table", "SELECT * FROM nope", false, "database check"},
		{"empty", "", false, "empty query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := tool.Call(ctx, tt.input)
			require.NoError(t, err)
			if tt.valid {
				assert.True(t, strings.HasPrefix(out, "✓"), out)
				return
			}
			assert.True(t, strings.HasPrefix(out, "❌"), out)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestVerifySQLTool_DoesNotExecute(t *testing.T) {
	t.Parallel()
	db := newTestAdapter(t)
	ctx := context.Background()

	out, err := NewVerifySQLTool(db, nil).Call(ctx, "DELETE FROM orders")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓"), out)

	res, err := db.ExecuteQuery(ctx, "SELECT count(*) FROM orders")
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Rows[0][0])
}

func TestSQLTool(t *testing.T) {
	t.Parallel()
	tool := NewSQLTool(newTestAdapter(t), nil)
	ctx := context.Background()

	out, err := tool.Call(ctx, `"SELECT name, total FROM customers JOIN orders ON orders.customer_id = customers.id ORDER BY total DESC"`)
	require.NoError(t, err)
	assert.Contains(t, out, "Columns: name, total")
	assert.Contains(t, out, "Rows: 3")
	assert.Contains(t, out, "(bob, 12.25)")

	out, err = tool.Call(ctx, "SELEC broken")
	require.NoError(t, err, "tool failures are observations")
	assert.True(t, strings.HasPrefix(out, "SQL execution failed"), out)

	out, err = tool.Call(ctx, "WITH RECURSIVE n(i) AS (SELECT 1 UNION ALL SELECT i+1 FROM n WHERE i < 2000) SELECT i FROM n")
	require.NoError(t, err)
	assert.Contains(t, out, "truncated")
}

func TestCleanToolInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT 1", cleanToolInput("  SELECT 1 \n"))
	assert.Equal(t, "SELECT 1", cleanToolInput("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", cleanToolInput("```\nSELECT 1```"))
	assert.Equal(t, "SELECT 1", cleanToolInput(`"SELECT 1"`))
	assert.Equal(t, "SELECT 'a' || 'b'", cleanToolInput("SELECT 'a' || 'b'"))
	assert.Equal(t, "'a' || 'b'", cleanToolInput("'a' || 'b'"))
}

func TestToolObserver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	events := make(chan ToolInvoked, 4)
	h := NewToolObserver(events, nil)

	h.HandleChainStart(ctx, nil)
	h.HandleAgentAction(ctx, schema.AgentAction{Tool: ToolQueryChecker, ToolInput: "```sql\nSELECT 1\n```"})
	h.HandleAgentAction(ctx, schema.AgentAction{Tool: ToolSchema, ToolInput: " data "})
	h.HandleChainEnd(ctx, map[string]any{"text": "Thought: done\nFinal Answer: 1"})
	close(events)

	got := collect(events)
	assert.Equal(t, Transcript{{Tool: ToolQueryChecker, SQL: "SELECT 1"}}, got)

	// a nil channel only logs
	NewToolObserver(nil, nil).HandleAgentAction(ctx, schema.AgentAction{Tool: ToolQuery, ToolInput: "SELECT 1"})
}

func TestExtractThought(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "look at tables", extractThought("Thought: look at tables\nAction: sql_db_list_tables"))
	assert.Equal(t, "I know", extractThought("Thought: I know\nFinal Answer: 3"))
	assert.Equal(t, "", extractThought("no marker"))
}

func TestLangchainAgent_Prompt(t *testing.T) {
	t.Parallel()
	a := NewLangchainAgent(nil, newTestAdapter(t), WithMaxIterations(4))

	assert.Equal(t, 4, a.maxIterations)
	prefix := a.promptPrefix()
	assert.Contains(t, prefix, "syntactically correct SQLite query")
	assert.NotContains(t, prefix, "{{", "prefix is embedded in a template")

	names := make([]string, 0, 4)
	for _, tool := range a.Tools() {
		names = append(names, tool.Name())
	}
	assert.ElementsMatch(t, []string{ToolQuery, ToolQueryChecker, ToolListTables, ToolSchema}, names)
}

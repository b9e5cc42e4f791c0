package viz

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdb/internal/adapter"
)

func salesResult() *adapter.QueryResult {
	return &adapter.QueryResult{
		Columns: []string{"region", "units", "price"},
		Rows: [][]any{
			{"north", int64(10), 2.5},
			{"south", int64(3), nil},
			{"east", nil, 1.25},
			{"west", int64(7), 4.0},
		},
		RowCount: 4,
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"table", "BAR", " line ", "Scatter"} {
		_, err := ParseKind(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseKind("pie")
	assert.Error(t, err)

	assert.Equal(t, KindBar, KindTable.Next())
	assert.Equal(t, KindTable, KindScatter.Next())
	assert.Equal(t, KindTable, Kind("pie").Next())
}

func TestNewSpec(t *testing.T) {
	t.Parallel()
	res := salesResult()

	spec, err := NewSpec(res, KindBar, "", "")
	require.NoError(t, err)
	assert.Equal(t, Spec{Kind: KindBar, X: "region", Y: "units"}, spec)

	spec, err = NewSpec(res, KindLine, "region", "price")
	require.NoError(t, err)
	assert.Equal(t, "price", spec.Y)

	spec, err = NewSpec(nil, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, KindTable, spec.Kind)

	tests := []struct {
		name   string
		result *adapter.QueryResult
		kind   Kind
		x, y   string
		want   string
	}{
		{"unknown y", res, KindBar, "", "nope", `unknown column "nope"`},
		{"unknown x", res, KindBar, "nope", "units", `unknown column "nope"`},
		{"text y", res, KindBar, "units", "region", "no numeric values"},
		{"text x scatter", res, KindScatter, "region", "units", "numeric x column"},
		{"empty", &adapter.QueryResult{Columns: []string{"a", "b"}}, KindLine, "", "", "no rows"},
		{"one column", &adapter.QueryResult{Columns: []string{"a"}, Rows: [][]any{{int64(1)}}}, KindBar, "", "", "two columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewSpec(tt.result, tt.kind, tt.x, tt.y)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSpec_Points(t *testing.T) {
	t.Parallel()
	res := salesResult()

	bar := Spec{Kind: KindBar, X: "region", Y: "units"}
	assert.Equal(t, []Point{
		{Label: "north", X: 0, Y: 10},
		{Label: "south", X: 1, Y: 3},
		{Label: "west", X: 2, Y: 7},
	}, bar.Points(res))

	scatter := Spec{Kind: KindScatter, X: "units", Y: "price"}
	assert.Equal(t, []Point{
		{Label: "10", X: 10, Y: 2.5},
		{Label: "7", X: 7, Y: 4},
	}, scatter.Points(res))
}

func TestRender(t *testing.T) {
	t.Parallel()
	res := salesResult()

	table := Render(res, Spec{Kind: KindTable}, 80, 10)
	assert.Contains(t, table, "region")
	assert.Contains(t, table, "NULL")
	assert.Len(t, strings.Split(table, "\n"), 6)

	bar := Render(res, Spec{Kind: KindBar, X: "region", Y: "units"}, 60, 10)
	lines := strings.Split(bar, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "north")
	assert.Contains(t, lines[1], "10")
	assert.Greater(t, strings.Count(lines[1], "█"), strings.Count(lines[2], "█"))

	line := Render(res, Spec{Kind: KindLine, X: "region", Y: "units"}, 40, 12)
	assert.Contains(t, line, "•")
	assert.Contains(t, line, "north")
	assert.Contains(t, line, "west")
	for _, l := range strings.Split(line, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(l), 40)
	}

	scatter := Render(res, Spec{Kind: KindScatter, X: "units", Y: "price"}, 40, 12)
	assert.Equal(t, 2, strings.Count(scatter, "●"))

	assert.Empty(t, Render(nil, Spec{}, 10, 10))
}

func TestRenderTable_Window(t *testing.T) {
	t.Parallel()
	res := salesResult()

	out := RenderTable(res, 2, 1)
	assert.Contains(t, out, "east")
	assert.NotContains(t, out, "north")
	assert.NotContains(t, out, "west")
}

func TestFit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ab  ", fit("ab", 4))
	assert.Equal(t, "abc…", fit("abcdefgh", 4))
	assert.Equal(t, 4, lipgloss.Width(fit("日本語テキスト", 4)))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	res := &adapter.QueryResult{
		Columns: []string{"name", "note"},
		Rows: [][]any{
			{"ann", "likes, commas"},
			{"bob", nil},
		},
	}
	require.NoError(t, WriteCSV(&buf, res))
	assert.Equal(t, "name,note\nann,\"likes, commas\"\nbob,\n", buf.String())

	assert.ErrorIs(t, WriteCSV(&buf, nil), ErrNoData)
}

func TestExportCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	got, err := ExportCSV(path, salesResult())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "region,units,price\nnorth,10,2.5\n"))
}

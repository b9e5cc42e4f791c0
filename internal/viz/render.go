package viz

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"askdb/internal/adapter"
)

const (
	maxColWidth   = 40
	maxLabelWidth = 20
	minPlotWidth  = 10
	minPlotHeight = 4
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	styleBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	styleMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleAxis   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Render draws result the way spec says, fitting width x height cells.
func Render(result *adapter.QueryResult, spec Spec, width, height int) string {
	if result == nil {
		return ""
	}
	switch spec.Kind {
	case KindBar:
		return renderBar(spec, spec.Points(result), width, height)
	case KindLine, KindScatter:
		return renderPlot(spec, spec.Points(result), width, height)
	default:
		return RenderTable(result, 0, height)
	}
}

// ColumnWidths measures display widths, capped per column.
func ColumnWidths(result *adapter.QueryResult) []int {
	widths := make([]int, len(result.Columns))
	for i, col := range result.Columns {
		widths[i] = lipgloss.Width(col)
	}
	for _, row := range result.StringRows() {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] = max(1, min(widths[i], maxColWidth))
	}
	return widths
}

// RenderTable draws rows [offset, offset+height) under a header. A
// non-positive height draws every row.
func RenderTable(result *adapter.QueryResult, offset, height int) string {
	if len(result.Columns) == 0 {
		return ""
	}
	widths := ColumnWidths(result)
	rows := result.StringRows()

	var b strings.Builder
	b.WriteString(renderRow(result.Columns, widths, true))
	b.WriteString("\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	b.WriteString(styleBorder.Render(strings.Join(sep, "─┼─")))

	end := len(rows)
	if height > 0 && offset+height < end {
		end = offset + height
	}
	for i := max(0, offset); i < end; i++ {
		b.WriteString("\n")
		b.WriteString(renderRow(rows[i], widths, false))
	}
	return b.String()
}

func renderRow(cells []string, widths []int, header bool) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		cell = fit(cell, w)
		if header {
			cell = styleHeader.Render(cell)
		}
		parts[i] = cell
	}
	return strings.Join(parts, " │ ")
}

// fit truncates or pads s to exactly w display cells.
func fit(s string, w int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if lipgloss.Width(s) > w {
		runes := []rune(s)
		for len(runes) > 0 && lipgloss.Width(string(runes)) >= w {
			runes = runes[:len(runes)-1]
		}
		s = string(runes) + "…"
	}
	if pad := w - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func renderBar(spec Spec, points []Point, width, height int) string {
	if len(points) == 0 {
		return styleAxis.Render("no numeric values in " + spec.Y)
	}
	if height > 1 && len(points) > height-1 {
		points = points[:height-1]
	}

	labelW := 1
	maxAbs := 0.0
	valueW := 1
	for _, p := range points {
		labelW = max(labelW, lipgloss.Width(p.Label))
		maxAbs = math.Max(maxAbs, math.Abs(p.Y))
		valueW = max(valueW, len(formatNumber(p.Y)))
	}
	labelW = min(labelW, maxLabelWidth)
	barW := max(minPlotWidth, width-labelW-valueW-4)

	var b strings.Builder
	b.WriteString(styleHeader.Render(fmt.Sprintf("%s by %s", spec.Y, spec.X)))
	for _, p := range points {
		n := 0
		if maxAbs > 0 {
			n = int(math.Round(math.Abs(p.Y) / maxAbs * float64(barW)))
		}
		bar := strings.Repeat("█", n)
		if p.Y < 0 {
			bar = strings.Repeat("░", n)
		}
		fmt.Fprintf(&b, "\n%s │%s %s", fit(p.Label, labelW), styleMark.Render(bar), formatNumber(p.Y))
	}
	return b.String()
}

func renderPlot(spec Spec, points []Point, width, height int) string {
	if len(points) == 0 {
		return styleAxis.Render("no numeric values in " + spec.Y)
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	yLabelW := max(len(formatNumber(minY)), len(formatNumber(maxY)))
	plotW := max(minPlotWidth, width-yLabelW-2)
	plotH := max(minPlotHeight, height-3)

	grid := make([][]rune, plotH)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", plotW))
	}

	col := func(x float64) int { return scale(x, minX, maxX, plotW) }
	row := func(y float64) int { return plotH - 1 - scale(y, minY, maxY, plotH) }

	mark := '●'
	if spec.Kind == KindLine {
		mark = '•'
		for i := 1; i < len(points); i++ {
			drawSegment(grid, col(points[i-1].X), row(points[i-1].Y), col(points[i].X), row(points[i].Y))
		}
	}
	for _, p := range points {
		grid[row(p.Y)][col(p.X)] = mark
	}

	var b strings.Builder
	b.WriteString(styleHeader.Render(fmt.Sprintf("%s vs %s", spec.Y, spec.X)))
	for i, line := range grid {
		label := ""
		switch i {
		case 0:
			label = formatNumber(maxY)
		case plotH - 1:
			label = formatNumber(minY)
		}
		fmt.Fprintf(&b, "\n%*s %s%s", yLabelW, label, styleAxis.Render("│"), styleMark.Render(string(line)))
	}
	fmt.Fprintf(&b, "\n%*s %s", yLabelW, "", styleAxis.Render("└"+strings.Repeat("─", plotW)))

	first, last := points[0].Label, points[len(points)-1].Label
	if spec.Kind == KindScatter {
		first, last = formatNumber(minX), formatNumber(maxX)
	}
	gap := max(1, plotW-lipgloss.Width(first)-lipgloss.Width(last))
	fmt.Fprintf(&b, "\n%*s  %s%s%s", yLabelW, "", styleAxis.Render(first), strings.Repeat(" ", gap), styleAxis.Render(last))
	return b.String()
}

// scale maps v in [lo, hi] onto [0, n).
func scale(v, lo, hi float64, n int) int {
	if hi == lo {
		return n / 2
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(n-1)))
	return max(0, min(n-1, i))
}

// drawSegment connects two grid cells with dots, one per column.
func drawSegment(grid [][]rune, x0, y0, x1, y1 int) {
	steps := max(abs(x1-x0), abs(y1-y0))
	for s := 1; s < steps; s++ {
		x := x0 + (x1-x0)*s/steps
		y := y0 + (y1-y0)*s/steps
		if grid[y][x] == ' ' {
			grid[y][x] = '·'
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

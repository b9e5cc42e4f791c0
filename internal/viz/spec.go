// Package viz turns query results into tables, text charts and CSV.
package viz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"askdb/internal/adapter"
)

// Kind is a representation of a result.
type Kind string

const (
	KindTable   Kind = "table"
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
)

// Kinds lists every representation, in the order the UI cycles through them.
var Kinds = []Kind{KindTable, KindBar, KindLine, KindScatter}

var (
	// ErrNoData is returned when a chart is requested for an empty result.
	ErrNoData = errors.New("viz: result has no rows")

	// ErrNotEnoughColumns is returned when a chart needs two columns and the result has one.
	ErrNotEnoughColumns = errors.New("viz: chart needs at least two columns")
)

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("viz: unknown chart kind %q (want table, bar, line or scatter)", s)
}

// Next returns the kind after k in Kinds, wrapping around.
func (k Kind) Next() Kind {
	for i, known := range Kinds {
		if known == k {
			return Kinds[(i+1)%len(Kinds)]
		}
	}
	return KindTable
}

// Spec selects how a result is shown. X and Y are column names.
type Spec struct {
	Kind Kind
	X    string
	Y    string
}

// NewSpec resolves a spec against a result. Empty X and Y default to the
// first and second column. Charts require a numeric Y column; scatter also
// requires a numeric X column.
func NewSpec(result *adapter.QueryResult, kind Kind, x, y string) (Spec, error) {
	spec := Spec{Kind: kind}
	if kind == "" {
		spec.Kind = KindTable
	}
	if spec.Kind == KindTable {
		return spec, nil
	}

	if result == nil || len(result.Rows) == 0 {
		return spec, ErrNoData
	}
	if len(result.Columns) < 2 && (x == "" || y == "") {
		return spec, ErrNotEnoughColumns
	}

	spec.X, spec.Y = x, y
	if spec.X == "" {
		spec.X = result.Columns[0]
	}
	if spec.Y == "" {
		spec.Y = result.Columns[1]
	}

	ys, ok := result.Column(spec.Y)
	if !ok {
		return spec, fmt.Errorf("viz: unknown column %q", spec.Y)
	}
	xs, ok := result.Column(spec.X)
	if !ok {
		return spec, fmt.Errorf("viz: unknown column %q", spec.X)
	}
	if !anyNumeric(ys) {
		return spec, fmt.Errorf("viz: column %q has no numeric values", spec.Y)
	}
	if spec.Kind == KindScatter && !anyNumeric(xs) {
		return spec, fmt.Errorf("viz: scatter needs a numeric x column, %q is not", spec.X)
	}
	return spec, nil
}

// Point is one charted value. Label is the x value as text.
type Point struct {
	Label string
	X     float64
	Y     float64
}

// Points extracts chartable points; rows whose y (or, for scatter, x) is not
// numeric are skipped. For bar and line charts X is the row position.
func (s Spec) Points(result *adapter.QueryResult) []Point {
	xs, _ := result.Column(s.X)
	ys, _ := result.Column(s.Y)

	points := make([]Point, 0, len(ys))
	for i := range ys {
		y, ok := toFloat(ys[i])
		if !ok {
			continue
		}
		p := Point{Label: adapter.FormatValue(xs[i]), X: float64(len(points)), Y: y}
		if s.Kind == KindScatter {
			x, ok := toFloat(xs[i])
			if !ok {
				continue
			}
			p.X = x
		}
		points = append(points, p)
	}
	return points
}

func anyNumeric(values []any) bool {
	for _, v := range values {
		if _, ok := toFloat(v); ok {
			return true
		}
	}
	return false
}

// toFloat converts numeric cells, including numeric text and timestamps.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case time.Time:
		return float64(n.Unix()), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

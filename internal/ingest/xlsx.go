package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the workbook's active sheet. Other sheets are ignored.
// Numbers are read unformatted ("#,##0" would otherwise turn 1234567 into
// text); cells with a date format keep their displayed value.
func parseXLSX(r io.Reader) (*table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyData
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	dates := dateStyles{f: f, known: map[int]bool{}}
	for i, row := range rows {
		for j, raw := range row {
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if !dates.isDate(sheet, cell) {
				continue
			}
			if shown, err := f.GetCellValue(sheet, cell); err == nil {
				rows[i][j] = shown
			}
		}
	}
	return newTable(rows)
}

// dateStyles caches which cell styles display numbers as dates or times.
type dateStyles struct {
	f     *excelize.File
	known map[int]bool
}

func (d dateStyles) isDate(sheet, cell string) bool {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if date, ok := d.known[id]; ok {
		return date
	}
	date := false
	if style, err := d.f.GetStyle(id); err == nil {
		date = isDateFormat(style)
	}
	d.known[id] = date
	return date
}

// isDateFormat reports whether a number format renders a date or time:
// built-in formats 14-22 and 45-47, or a custom format with date tokens.
func isDateFormat(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		code := strings.ToLower(*style.CustomNumFmt)
		// drop quoted literals and colors like [Red]
		var b strings.Builder
		quoted, bracket := false, false
		for _, r := range code {
			switch {
			case r == '"':
				quoted = !quoted
			case quoted:
			case r == '[':
				bracket = true
			case r == ']':
				bracket = false
			case bracket:
			default:
				b.WriteRune(r)
			}
		}
		return strings.ContainsAny(b.String(), "ymdhs")
	}
	n := style.NumFmt
	return (n >= 14 && n <= 22) || (n >= 45 && n <= 47)
}

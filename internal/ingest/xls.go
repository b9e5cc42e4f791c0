package ingest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// parseXLS reads the first sheet of a legacy BIFF workbook.
func parseXLS(r io.Reader) (*table, error) {
	// the BIFF reader needs random access
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrEmptyData
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyData
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}

	// the header is the first non-empty row
	for len(rows) > 0 && len(rows[0]) == 0 {
		rows = rows[1:]
	}
	return newTable(rows)
}

// sheetRow returns row i, or nil when the sheet has no record for it. The
// reader dereferences missing rows, so the panic is recovered here.
func sheetRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// table is one parsed tabular upload. Records are padded to len(header).
type table struct {
	header  []string
	records [][]string
}

// newTable normalizes the header and pads short records.
func newTable(rows [][]string) (*table, error) {
	if len(rows) == 0 || isBlankRow(rows[0]) {
		return nil, ErrEmptyData
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	t := &table{header: normalizeHeader(rows[0], width)}
	for _, row := range rows[1:] {
		// spreadsheet readers report interior empty rows as zero-length
		if len(row) == 0 {
			continue
		}
		record := make([]string, width)
		copy(record, row)
		t.records = append(t.records, record)
	}
	return t, nil
}

// normalizeHeader names blank cells column_N and de-duplicates names.
func normalizeHeader(raw []string, width int) []string {
	header := make([]string, width)
	seen := make(map[string]int, width)
	for i := range header {
		name := ""
		if i < len(raw) {
			name = strings.TrimSpace(raw[i])
		}
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		key := strings.ToLower(name)
		if n, dup := seen[key]; dup {
			seen[key] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
			key = strings.ToLower(name)
		}
		seen[key] = 1
		header[i] = name
	}
	return header
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// loadTable parses a table and writes it into a new SQLite file at path.
func loadTable(ctx context.Context, path string, parse func() (*table, error)) error {
	t, err := parse()
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	types := make([]columnType, len(t.header))
	for i := range t.header {
		types[i] = inferColumnType(columnValues(t.records, i))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, createTableSQL(TableName, t.header, types)); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(TableName, len(t.header)))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.header))
	for n, record := range t.records {
		for i, cell := range record {
			args[i] = convertValue(cell, types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", n+1, err)
		}
	}

	return tx.Commit()
}

func columnValues(records [][]string, col int) []string {
	values := make([]string, len(records))
	for i, r := range records {
		values[i] = r[col]
	}
	return values
}

func createTableSQL(name string, header []string, types []columnType) string {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = quoteIdent(h) + " " + types[i].String()
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))
}

func insertSQL(name string, n int) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), placeholders)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

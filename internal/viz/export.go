package viz

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"askdb/internal/adapter"
)

// WriteCSV writes the tabular form of result, header first. NULL cells are
// written as empty fields.
func WriteCSV(w io.Writer, result *adapter.QueryResult) error {
	if result == nil {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return err
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) && row[i] != nil {
				record[i] = adapter.FormatValue(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes result to path, or to askdb_export_<timestamp>.csv in the
// working directory when path is empty. It returns the path written.
func ExportCSV(path string, result *adapter.QueryResult) (string, error) {
	if path == "" {
		path = fmt.Sprintf("askdb_export_%s.csv", time.Now().Format("20060102_150405"))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteCSV(f, result); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

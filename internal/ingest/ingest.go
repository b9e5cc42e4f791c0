// Package ingest converts an uploaded artifact (SQLite file, CSV or
// spreadsheet) into a fresh SQLite database file.
//
// The file extension is the only format signal; content is never sniffed.
// Tabular inputs become a single table named "data".
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TableName is the table every tabular upload is loaded into.
const TableName = "data"

var (
	// ErrUnsupportedFormat indicates an extension no reader handles.
	ErrUnsupportedFormat = errors.New("ingest: unsupported file format")

	// ErrEmptyData indicates a tabular input without a header row.
	ErrEmptyData = errors.New("ingest: empty data source")

	// ErrInvalidDatabase indicates a .db upload that SQLite cannot read.
	ErrInvalidDatabase = errors.New("ingest: not a readable SQLite database")
)

// Format is the declared format of an upload.
type Format string

const (
	FormatDatabase Format = "db"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatXLS      Format = "xls"
)

// Extensions lists the accepted upload extensions, for file pickers.
var Extensions = []string{".db", ".sqlite", ".sqlite3", ".csv", ".xlsx", ".xls"}

// Detect returns the format and compression declared by a file name,
// e.g. "sales.csv.gz" is (FormatCSV, CompressionGZ).
func Detect(name string) (Format, Compression, error) {
	base := strings.ToLower(filepath.Base(name))

	comp := CompressionNone
	for _, c := range compressions {
		if strings.HasSuffix(base, c.ext) {
			comp = c.kind
			base = strings.TrimSuffix(base, c.ext)
			break
		}
	}

	switch filepath.Ext(base) {
	case ".db", ".sqlite", ".sqlite3":
		return FormatDatabase, comp, nil
	case ".csv":
		return FormatCSV, comp, nil
	case ".xlsx":
		return FormatXLSX, comp, nil
	case ".xls":
		return FormatXLS, comp, nil
	}
	return "", CompressionNone, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Ingest reads an upload named name from r and writes a new SQLite file in dir
// (the OS temp dir when empty). It returns the path of the new file.
func Ingest(ctx context.Context, name string, r io.Reader, dir string) (string, error) {
	format, comp, err := Detect(name)
	if err != nil {
		return "", err
	}

	reader, closer, err := decompress(r, comp)
	if err != nil {
		return "", fmt.Errorf("decompressing %s: %w", name, err)
	}
	defer closer()

	out, err := newTargetPath(dir)
	if err != nil {
		return "", err
	}

	switch format {
	case FormatDatabase:
		err = copyDatabase(ctx, reader, out)
	case FormatCSV:
		err = loadTable(ctx, out, func() (*table, error) { return parseCSV(reader) })
	case FormatXLSX:
		err = loadTable(ctx, out, func() (*table, error) { return parseXLSX(reader) })
	case FormatXLS:
		err = loadTable(ctx, out, func() (*table, error) { return parseXLS(reader) })
	}
	if err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("ingesting %s: %w", name, err)
	}
	return out, nil
}

// IngestFile is Ingest for a file on disk.
func IngestFile(ctx context.Context, path, dir string) (string, error) {
	if _, _, err := Detect(path); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Ingest(ctx, filepath.Base(path), f, dir)
}

func newTargetPath(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating ingest directory: %w", err)
	}
	return filepath.Join(dir, "askdb-"+uuid.NewString()+".db"), nil
}

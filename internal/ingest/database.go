package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"askdb/internal/adapter"
)

// copyDatabase writes the upload byte-for-byte and checks SQLite can read it.
func copyDatabase(ctx context.Context, r io.Reader, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating database file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("copying database: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	a, err := adapter.OpenSQLite(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}
	return a.Close()
}

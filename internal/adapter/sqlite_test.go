package adapter

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB creates a small artists/albums database with one foreign key.
func newTestDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "music.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	stmts := []string{
		`CREATE TABLE artists (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE albums (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			artist_id INTEGER REFERENCES artists(id),
			price REAL DEFAULT 9.99
		)`,
		`INSERT INTO artists (id, name) VALUES (1, 'AC/DC'), (2, 'Accept')`,
		`INSERT INTO albums (id, title, artist_id, price) VALUES
			(1, 'Highway to Hell', 1, 12.5),
			(2, 'Balls to the Wall', 2, NULL),
			(3, 'Back in Black', 1, 10)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func openTestAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	a, err := OpenSQLite(context.Background(), newTestDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLiteAdapter_Connect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing file is not created", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "missing.db")
		_, err := OpenSQLite(ctx, path)
		require.Error(t, err)
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("non-database file is rejected", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "notes.db")
		require.NoError(t, os.WriteFile(path, []byte("this is definitely not a sqlite database file, just text"), 0o600))
		_, err := OpenSQLite(ctx, path)
		require.Error(t, err)
	})

	t.Run("version", func(t *testing.T) {
		t.Parallel()
		a := openTestAdapter(t)
		v, err := a.GetDatabaseVersion(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, v)
		assert.Equal(t, "SQLite", a.GetDatabaseType())
	})
}

func TestSQLiteAdapter_ListTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sorted user tables", func(t *testing.T) {
		t.Parallel()
		a := openTestAdapter(t)
		tables, err := a.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"albums", "artists"}, tables)
	})

	t.Run("store unavailable before connect", func(t *testing.T) {
		t.Parallel()
		a := NewSQLiteAdapter(&SQLiteConfig{FilePath: "unused.db"})
		_, err := a.ListTables(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("store unavailable after close", func(t *testing.T) {
		t.Parallel()
		a, err := OpenSQLite(ctx, newTestDB(t))
		require.NoError(t, err)
		require.NoError(t, a.Close())
		_, err = a.ListTables(ctx)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestSQLiteAdapter_DescribeTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := openTestAdapter(t)

	t.Run("columns and foreign keys", func(t *testing.T) {
		desc, err := a.DescribeTable(ctx, "albums")
		require.NoError(t, err)

		require.Len(t, desc.Columns, 4)
		assert.Equal(t, ColumnInfo{Position: 1, Name: "id", Type: "INTEGER", PrimaryKey: true}, desc.Columns[0])
		assert.Equal(t, "title", desc.Columns[1].Name)
		assert.True(t, desc.Columns[1].NotNull)
		assert.Equal(t, "9.99", desc.Columns[3].Default)

		assert.Equal(t, []ForeignKey{{Column: "artist_id", RefTable: "artists", RefColumn: "id"}}, desc.ForeignKeys)
	})

	t.Run("no foreign keys is empty not nil", func(t *testing.T) {
		desc, err := a.DescribeTable(ctx, "artists")
		require.NoError(t, err)
		assert.NotNil(t, desc.ForeignKeys)
		assert.Empty(t, desc.ForeignKeys)
	})

	t.Run("unknown table", func(t *testing.T) {
		desc, err := a.DescribeTable(ctx, "nope")
		assert.Nil(t, desc)
		assert.ErrorIs(t, err, ErrTableNotFound)
	})
}

func TestSQLiteAdapter_ExecuteQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := openTestAdapter(t)

	t.Run("ordered rows", func(t *testing.T) {
		res, err := a.ExecuteQuery(ctx, "SELECT title, price FROM albums ORDER BY id")
		require.NoError(t, err)
		assert.Equal(t, []string{"title", "price"}, res.Columns)
		assert.Equal(t, 3, res.RowCount)
		for _, row := range res.Rows {
			assert.Len(t, row, len(res.Columns))
		}
		assert.Equal(t, "Highway to Hell", res.Rows[0][0])
		assert.Nil(t, res.Rows[1][1])
		assert.Equal(t, []string{"Balls to the Wall", "NULL"}, res.StringRows()[1])
	})

	t.Run("column lookup", func(t *testing.T) {
		res, err := a.ExecuteQuery(ctx, "SELECT name FROM artists ORDER BY id")
		require.NoError(t, err)
		values, ok := res.Column("name")
		require.True(t, ok)
		assert.Equal(t, []any{"AC/DC", "Accept"}, values)
		_, ok = res.Column("missing")
		assert.False(t, ok)
	})

	tests := []struct {
		name  string
		query string
	}{
		{name: "syntax error", query: "SELEC * FRM albums"},
		{name: "missing table", query: "SELECT * FROM nowhere"},
		{name: "empty", query: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res *QueryResult
			var err error
			require.NotPanics(t, func() {
				res, err = a.ExecuteQuery(ctx, tt.query)
			})
			assert.Nil(t, res)

			var qe *QueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.query, qe.Query)
			assert.NotEmpty(t, qe.Message)
		})
	}

	t.Run("closed store is a query error", func(t *testing.T) {
		closed := NewSQLiteAdapter(&SQLiteConfig{FilePath: "unused.db"})
		_, err := closed.ExecuteQuery(ctx, "SELECT 1")
		assert.True(t, IsQueryError(err))
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})
}

func TestSQLiteAdapter_CloseDuringQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a, err := OpenSQLite(ctx, newTestDB(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := a.ExecuteQuery(ctx, "SELECT * FROM albums"); err != nil {
					assert.True(t, IsQueryError(err), err)
					return
				}
			}
		}()
	}
	require.NoError(t, a.Close())
	wg.Wait()

	_, err = a.ExecuteQuery(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = a.ListTables(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NoError(t, a.Close(), "closing twice is a no-op")
}

func TestSQLiteAdapter_DryRunSQL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := openTestAdapter(t)

	assert.NoError(t, a.DryRunSQL(ctx, "SELECT * FROM albums WHERE artist_id = 1;"))

	err := a.DryRunSQL(ctx, "SELECT * FROM nowhere")
	var qe *QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "SELECT * FROM nowhere", qe.Query)

	// dry run must not modify data
	require.NoError(t, a.DryRunSQL(ctx, "DELETE FROM albums"))
	res, err := a.ExecuteQuery(ctx, "SELECT count(*) FROM albums")
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Rows[0][0])
}

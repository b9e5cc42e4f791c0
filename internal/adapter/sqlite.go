package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter SQLite adapter
type SQLiteAdapter struct {
	sqlBase
	config *SQLiteConfig
}

// SQLiteConfig SQLite connection config
type SQLiteConfig struct {
	FilePath string // DB file path, ":memory:" for in-memory
}

// NewSQLiteAdapter creates SQLite adapter
func NewSQLiteAdapter(config *SQLiteConfig) *SQLiteAdapter {
	return &SQLiteAdapter{
		config: config,
	}
}

// OpenSQLite creates and connects an adapter for an existing database file.
func OpenSQLite(ctx context.Context, path string) (*SQLiteAdapter, error) {
	a := NewSQLiteAdapter(&SQLiteConfig{FilePath: path})
	if err := a.Connect(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Path returns the database file path.
func (a *SQLiteAdapter) Path() string {
	return a.config.FilePath
}

// Connect connects to database
func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	path := a.config.FilePath
	if path != ":memory:" {
		// sql.Open would silently create an empty database
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// one session, one private file
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// a non-database file only fails once a page is read
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return fmt.Errorf("not a readable SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	a.setConn(db)
	return nil
}

// ListTables lists user tables
func (a *SQLiteAdapter) ListTables(ctx context.Context) ([]string, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeTable reads PRAGMA table_info and PRAGMA foreign_key_list
func (a *SQLiteAdapter) DescribeTable(ctx context.Context, table string) (*TableDescriptor, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}

	var name string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name = ?", table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}

	desc := &TableDescriptor{
		Name:        name,
		Columns:     []ColumnInfo{},
		ForeignKeys: []ForeignKey{},
	}

	cols, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name, `"`)))
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}
	defer cols.Close()

	for cols.Next() {
		var (
			cid     int
			col     ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := cols.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("describing %s: %w", table, err)
		}
		col.Position = cid + 1
		col.NotNull = notNull != 0
		col.PrimaryKey = pk > 0
		col.Default = dflt.String
		desc.Columns = append(desc.Columns, col)
	}
	if err := cols.Err(); err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}

	fks, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(name, `"`)))
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	defer fks.Close()

	for fks.Next() {
		var (
			id, seq                   int
			refTable, from            string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)
		if err := fks.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
		}
		desc.ForeignKeys = append(desc.ForeignKeys, ForeignKey{
			Column:    from,
			RefTable:  refTable,
			RefColumn: to.String,
		})
	}
	if err := fks.Err(); err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}

	return desc, nil
}

// DryRunSQL SQLite 的 Dry Run
func (a *SQLiteAdapter) DryRunSQL(ctx context.Context, query string) error {
	// SQLite: 使用 EXPLAIN QUERY PLAN 验证语法
	return a.explain(ctx, "EXPLAIN QUERY PLAN", query)
}

// GetDatabaseType gets database type
func (a *SQLiteAdapter) GetDatabaseType() string {
	return "SQLite"
}

// GetDatabaseVersion gets database version
func (a *SQLiteAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return a.version(ctx, "SELECT sqlite_version() AS version")
}

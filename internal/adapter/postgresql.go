package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
)

// PostgreSQLAdapter PostgreSQL adapter
type PostgreSQLAdapter struct {
	sqlBase
	config *PostgreSQLConfig
}

// PostgreSQLConfig PostgreSQL connection config
type PostgreSQLConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // disable, require, verify-ca, verify-full
}

// NewPostgreSQLAdapter creates PostgreSQL adapter
func NewPostgreSQLAdapter(config *PostgreSQLConfig) *PostgreSQLAdapter {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	return &PostgreSQLAdapter{
		config: config,
	}
}

// dsn builds a postgres:// URL so that spaces, quotes and '=' in any field
// are escaped instead of splitting key=value pairs.
func (a *PostgreSQLAdapter) dsn() string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(a.config.Host, strconv.Itoa(a.config.Port)),
		Path:     "/" + a.config.Database,
		RawQuery: url.Values{"sslmode": {a.config.SSLMode}}.Encode(),
	}
	if a.config.User != "" {
		if a.config.Password != "" {
			u.User = url.UserPassword(a.config.User, a.config.Password)
		} else {
			u.User = url.User(a.config.User)
		}
	}
	return u.String()
}

// Connect connects to database
func (a *PostgreSQLAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open("postgres", a.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.setConn(db)
	return nil
}

// ListTables lists tables of the public schema
func (a *PostgreSQLAdapter) ListTables(ctx context.Context) ([]string, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}
	return queryStrings(ctx, db,
		"SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename")
}

// DescribeTable reads information_schema
func (a *PostgreSQLAdapter) DescribeTable(ctx context.Context, table string) (*TableDescriptor, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name, c.data_type, c.is_nullable, COALESCE(c.column_default, ''), c.ordinal_position,
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kcu
		             ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_schema = c.table_schema
		             AND tc.table_name = c.table_name
		             AND kcu.column_name = c.column_name
		       )
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}
	defer rows.Close()

	desc := &TableDescriptor{Name: table, Columns: []ColumnInfo{}, ForeignKeys: []ForeignKey{}}
	for rows.Next() {
		var col ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Default, &col.Position, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("describing %s: %w", table, err)
		}
		col.NotNull = nullable == "NO"
		desc.Columns = append(desc.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}
	if len(desc.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	fks, err := db.QueryContext(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public' AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	defer fks.Close()

	for fks.Next() {
		var fk ForeignKey
		if err := fks.Scan(&fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
		}
		desc.ForeignKeys = append(desc.ForeignKeys, fk)
	}
	if err := fks.Err(); err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	return desc, nil
}

// DryRunSQL PostgreSQL 的 Dry Run
func (a *PostgreSQLAdapter) DryRunSQL(ctx context.Context, query string) error {
	// PostgreSQL: 使用 EXPLAIN 验证语法
	return a.explain(ctx, "EXPLAIN", query)
}

// GetDatabaseType gets database type
func (a *PostgreSQLAdapter) GetDatabaseType() string {
	return "PostgreSQL"
}

// GetDatabaseVersion gets database version
func (a *PostgreSQLAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return a.version(ctx, "SELECT version() AS version")
}

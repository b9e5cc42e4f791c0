package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// MySQLAdapter MySQL adapter
type MySQLAdapter struct {
	sqlBase
	config *MySQLConfig
}

// MySQLConfig MySQL connection config
type MySQLConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// NewMySQLAdapter creates MySQL adapter
func NewMySQLAdapter(config *MySQLConfig) *MySQLAdapter {
	if config.Port == 0 {
		config.Port = 3306
	}
	return &MySQLAdapter{
		config: config,
	}
}

func (a *MySQLAdapter) dsn() string {
	cfg := mysql.NewConfig()
	cfg.User = a.config.User
	cfg.Passwd = a.config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(a.config.Host, strconv.Itoa(a.config.Port))
	cfg.DBName = a.config.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Connect connects to database
func (a *MySQLAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", a.dsn())
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

// ListTables lists base tables of the current schema
func (a *MySQLAdapter) ListTables(ctx context.Context) ([]string, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}
	return queryStrings(ctx, db,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name")
}

// DescribeTable reads information_schema
func (a *MySQLAdapter) DescribeTable(ctx context.Context, table string) (*TableDescriptor, error) {
	db, err := a.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT column_name, column_type, is_nullable, column_key, COALESCE(column_default, ''), ordinal_position
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}
	defer rows.Close()

	desc := &TableDescriptor{Name: table, Columns: []ColumnInfo{}, ForeignKeys: []ForeignKey{}}
	for rows.Next() {
		var col ColumnInfo
		var nullable, key string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &key, &col.Default, &col.Position); err != nil {
			return nil, fmt.Errorf("describing %s: %w", table, err)
		}
		col.NotNull = nullable == "NO"
		col.PrimaryKey = key == "PRI"
		desc.Columns = append(desc.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describing %s: %w", table, err)
	}
	if len(desc.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	fks, err := db.QueryContext(ctx, `
		SELECT column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND referenced_table_name IS NOT NULL
		ORDER BY ordinal_position`, table)
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

// DryRunSQL 验证语法
func (a *MySQLAdapter) DryRunSQL(ctx context.Context, query string) error {
	// MySQL: 使用 EXPLAIN 验证语法
	return a.explain(ctx, "EXPLAIN", query)
}

// GetDatabaseType gets database type
func (a *MySQLAdapter) GetDatabaseType() string {
	return "MySQL"
}

// GetDatabaseVersion gets database version
func (a *MySQLAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return a.version(ctx, "SELECT VERSION() AS version")
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// sqlBase holds the connection shared by the engine adapters. Close may run
// while other goroutines use the adapter, so db is only read through conn.
type sqlBase struct {
	mu sync.RWMutex
	db *sql.DB
}

// conn returns the open connection, or ErrStoreUnavailable after Close.
func (b *sqlBase) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, ErrStoreUnavailable
	}
	return b.db, nil
}

func (b *sqlBase) setConn(db *sql.DB) {
	b.mu.Lock()
	b.db = db
	b.mu.Unlock()
}

// ExecuteQuery 执行查询
func (b *sqlBase) ExecuteQuery(ctx context.Context, query string) (result *QueryResult, err error) {
	db, err := b.conn()
	if err != nil {
		return nil, &QueryError{Query: query, Message: err.Error(), Err: err}
	}
	if strings.TrimSpace(query) == "" {
		return nil, &QueryError{Query: query, Message: "empty query"}
	}

	// driver panics must not escape the adapter boundary
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &QueryError{Query: query, Message: fmt.Sprintf("driver panic: %v", r)}
		}
	}()

	start := time.Now()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, newQueryError(query, err)
	}
	defer rows.Close()

	columns, data, err := scanRows(rows)
	if err != nil {
		return nil, newQueryError(query, err)
	}

	return &QueryResult{
		Columns:       columns,
		Rows:          data,
		RowCount:      len(data),
		ExecutionTime: time.Since(start),
	}, nil
}

// Close 关闭连接
func (b *sqlBase) Close() error {
	b.mu.Lock()
	db := b.db
	b.db = nil
	b.mu.Unlock()

	if db == nil {
		return nil
	}
	// queries already running fail with sql.ErrConnDone or finish first
	return db.Close()
}

func (b *sqlBase) explain(ctx context.Context, prefix, query string) error {
	if _, err := b.conn(); err != nil {
		return &QueryError{Query: query, Message: err.Error(), Err: err}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return &QueryError{Query: query, Message: "empty query"}
	}
	_, err := b.ExecuteQuery(ctx, prefix+" "+strings.TrimSuffix(query, ";"))
	if err != nil {
		// report the user's statement, not the EXPLAIN wrapper
		qe := newQueryError(query, err)
		qe.Query = query
		return qe
	}
	return nil
}

func (b *sqlBase) version(ctx context.Context, query string) (string, error) {
	result, err := b.ExecuteQuery(ctx, query)
	if err != nil {
		return "", err
	}
	if len(result.Rows) > 0 && len(result.Rows[0]) > 0 {
		return FormatValue(result.Rows[0][0]), nil
	}
	return "unknown", nil
}

// scanRows reads every row into ordered slices.
func scanRows(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	data := [][]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, err
		}

		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, data, nil
}

func quoteIdent(name, quote string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

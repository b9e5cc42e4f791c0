package adapter

import (
	"errors"
	"strings"
)

var (
	// ErrStoreUnavailable is returned when the adapter is used without an open connection.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrTableNotFound is returned by DescribeTable for an unknown table.
	ErrTableNotFound = errors.New("table not found")
)

// QueryError collapses every SQL failure (syntax, semantic, driver) into one kind.
// Message keeps the original diagnostic.
type QueryError struct {
	Query   string
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return "query error: " + e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func newQueryError(query string, err error) *QueryError {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	msg := "unknown error"
	if err != nil {
		msg = strings.TrimSpace(err.Error())
	}
	return &QueryError{Query: query, Message: msg, Err: err}
}

// IsQueryError reports whether err is (or wraps) a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// UnsupportedDatabaseError 不支持的数据库类型错误
type UnsupportedDatabaseError struct {
	Type string
}

func (e *UnsupportedDatabaseError) Error() string {
	return "unsupported database type: " + e.Type
}

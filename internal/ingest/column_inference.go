package ingest

import (
	"strconv"
	"strings"
)

// columnType is the declared SQLite type of an ingested column.
type columnType int

const (
	columnTypeText columnType = iota
	columnTypeInteger
	columnTypeReal
)

func (c columnType) String() string {
	switch c {
	case columnTypeInteger:
		return "INTEGER"
	case columnTypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// inferColumnType picks INTEGER or REAL when every non-empty value parses
// as such, TEXT otherwise. An all-empty column is TEXT.
func inferColumnType(values []string) columnType {
	hasInteger := false
	hasReal := false

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, err := strconv.ParseInt(value, 10, 64); err == nil {
			hasInteger = true
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			hasReal = true
			continue
		}
		return columnTypeText
	}

	switch {
	case hasReal:
		return columnTypeReal
	case hasInteger:
		return columnTypeInteger
	default:
		return columnTypeText
	}
}

// convertValue maps a cell to the value stored for its column type.
// Empty cells are stored as NULL.
func convertValue(value string, typ columnType) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	switch typ {
	case columnTypeInteger:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
	case columnTypeReal:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
	}
	return value
}

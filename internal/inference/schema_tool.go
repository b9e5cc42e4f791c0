package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"askdb/internal/adapter"
)

const sampleRows = 3

// ListTablesTool lists the tables of the store.
type ListTablesTool struct {
	adapter adapter.DBAdapter
	logger  *slog.Logger
}

// NewListTablesTool creates the table listing tool.
func NewListTablesTool(db adapter.DBAdapter, logger *slog.Logger) *ListTablesTool {
	return &ListTablesTool{adapter: db, logger: toolLogger(logger, ToolListTables)}
}

func (t *ListTablesTool) Name() string {
	return ToolListTables
}

func (t *ListTablesTool) Description() string {
	return `Input is an empty string, output is a comma-separated list of tables in the database.`
}

func (t *ListTablesTool) Call(ctx context.Context, _ string) (string, error) {
	tables, err := t.adapter.ListTables(ctx)
	if err != nil {
		t.logger.Warn("listing tables failed", "error", err)
		return fmt.Sprintf("Error: %v", err), nil
	}
	if len(tables) == 0 {
		return "The database has no tables.", nil
	}
	return strings.Join(tables, ", "), nil
}

// SchemaTool describes tables with a few sample rows.
type SchemaTool struct {
	adapter adapter.DBAdapter
	logger  *slog.Logger
}

// NewSchemaTool creates the schema tool.
func NewSchemaTool(db adapter.DBAdapter, logger *slog.Logger) *SchemaTool {
	return &SchemaTool{adapter: db, logger: toolLogger(logger, ToolSchema)}
}

func (t *SchemaTool) Name() string {
	return ToolSchema
}

func (t *SchemaTool) Description() string {
	return `Input to this tool is a comma-separated list of tables, output is the schema and sample rows for those tables.
Be sure that the tables actually exist by calling ` + ToolListTables + ` first!
Example Input: table1, table2, table3`
}

func (t *SchemaTool) Call(ctx context.Context, input string) (string, error) {
	names := splitTableNames(input)
	if len(names) == 0 {
		return "Error: no table names given. Call " + ToolListTables + " to see the available tables.", nil
	}

	var sb strings.Builder
	for _, name := range names {
		desc, err := t.adapter.DescribeTable(ctx, name)
		if err != nil {
			if errors.Is(err, adapter.ErrTableNotFound) {
				fmt.Fprintf(&sb, "Error: table %q does not exist.\n\n", name)
				continue
			}
			t.logger.Warn("describing table failed", "table", name, "error", err)
			fmt.Fprintf(&sb, "Error: %v\n\n", err)
			continue
		}
		sb.WriteString(FormatTableSchema(desc))
		sb.WriteString(t.samples(ctx, desc))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// samples renders the first rows of a table as a SQL comment.
func (t *SchemaTool) samples(ctx context.Context, desc *adapter.TableDescriptor) string {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteFor(t.adapter.GetDatabaseType(), desc.Name), sampleRows)
	res, err := t.adapter.ExecuteQuery(ctx, query)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "/*\n%d rows from %s table:\n", sampleRows, desc.Name)
	sb.WriteString(strings.Join(res.Columns, "\t"))
	sb.WriteString("\n")
	for _, row := range res.StringRows() {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}
	sb.WriteString("*/\n")
	return sb.String()
}

// FormatTableSchema renders a descriptor as a CREATE TABLE statement.
func FormatTableSchema(desc *adapter.TableDescriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", desc.Name)
	lines := make([]string, 0, len(desc.Columns)+len(desc.ForeignKeys))
	for _, c := range desc.Columns {
		line := "\t" + c.Name
		if c.Type != "" {
			line += " " + c.Type
		}
		if c.NotNull {
			line += " NOT NULL"
		}
		if c.PrimaryKey {
			line += " PRIMARY KEY"
		}
		lines = append(lines, line)
	}
	for _, fk := range desc.ForeignKeys {
		lines = append(lines, fmt.Sprintf("\tFOREIGN KEY (%s) REFERENCES %s (%s)", fk.Column, fk.RefTable, fk.RefColumn))
	}
	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n)\n")
	return sb.String()
}

func splitTableNames(input string) []string {
	var names []string
	for _, part := range strings.Split(cleanToolInput(input), ",") {
		name := strings.Trim(strings.TrimSpace(part), "\"'`[]")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// quoteFor quotes an identifier for the given database type.
func quoteFor(dbType, name string) string {
	if dbType == "MySQL" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

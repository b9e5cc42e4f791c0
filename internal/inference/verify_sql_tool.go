package inference

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"askdb/internal/adapter"
)

// 匹配 AS 后跟函数调用的别名，如 AS count(*)
var illegalAliasPattern = regexp.MustCompile(`(?i)\s+AS\s+([a-z_]+\s*\([^)]*\))`)

// VerifySQLTool checks a statement without running it.
type VerifySQLTool struct {
	adapter adapter.DBAdapter
	logger  *slog.Logger
}

// NewVerifySQLTool creates verification tool
func NewVerifySQLTool(db adapter.DBAdapter, logger *slog.Logger) *VerifySQLTool {
	return &VerifySQLTool{adapter: db, logger: toolLogger(logger, ToolQueryChecker)}
}

// Name returns tool name
func (t *VerifySQLTool) Name() string {
	return ToolQueryChecker
}

// Description returns tool description
func (t *VerifySQLTool) Description() string {
	return `Use this tool to double check if your query is correct before executing it.
Always use this tool before executing a query with ` + ToolQuery + `!
Input: a single SQL query, without markdown.
Output: "SQL is valid" or the error with hints on how to fix it.`
}

// Call executes verification
func (t *VerifySQLTool) Call(ctx context.Context, input string) (string, error) {
	sql := cleanToolInput(input)
	t.logger.Debug("checking sql", "sql", sql)

	// 1. 静态检查
	if err := quickCheck(sql); err != nil {
		return fmt.Sprintf("❌ SQL validation failed (static check):\n%v\n\nPlease fix the error and try again.", err), nil
	}

	// 2. 数据库 dry run，不执行
	if err := t.adapter.DryRunSQL(ctx, sql); err != nil {
		return fmt.Sprintf("❌ SQL validation failed (database check):\n%v\n\nPlease fix the error and try again.", err), nil
	}

	return "✓ SQL is valid! You can now execute it with " + ToolQuery + ".", nil
}

// quickCheck quick static check
func quickCheck(sql string) error {
	if sql == "" {
		return fmt.Errorf("empty query")
	}
	if err := checkIllegalAliases(sql); err != nil {
		return err
	}
	return checkParentheses(sql)
}

// checkIllegalAliases checks illegal aliases
func checkIllegalAliases(sql string) error {
	matches := illegalAliasPattern.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		return nil
	}
	aliases := make([]string, 0, len(matches))
	for _, match := range matches {
		aliases = append(aliases, match[1])
	}
	return fmt.Errorf("illegal alias syntax: %v\nAliases cannot contain parentheses.\nUse simple names like 'total_count' instead of 'count(*)'", aliases)
}

// checkParentheses checks parentheses matching, ignoring quoted text.
func checkParentheses(sql string) error {
	stack := 0
	var quote rune
	for i, char := range sql {
		switch {
		case quote != 0:
			if char == quote {
				quote = 0
			}
		case char == '\'' || char == '"' || char == '`':
			quote = char
		case char == '(':
			stack++
		case char == ')':
			stack--
			if stack < 0 {
				return fmt.Errorf("unmatched closing parenthesis at position %d", i)
			}
		}
	}

	if stack > 0 {
		return fmt.Errorf("unmatched opening parenthesis: %d unclosed", stack)
	}
	return nil
}

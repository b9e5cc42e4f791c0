package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"askdb/internal/adapter"
)

const (
	defaultTopK     = 10
	maxSampleLength = 1000 // 最多展示 1000 个字符
)

// LangchainAgent is a zero-shot ReAct agent over the SQL toolkit.
type LangchainAgent struct {
	llm           llms.Model
	adapter       adapter.DBAdapter
	maxIterations int
	topK          int
	logger        *slog.Logger
}

// AgentOption configures a LangchainAgent.
type AgentOption func(*LangchainAgent)

// WithMaxIterations bounds the number of reasoning steps.
func WithMaxIterations(n int) AgentOption {
	return func(a *LangchainAgent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithAgentLogger sets the agent's logger.
func WithAgentLogger(l *slog.Logger) AgentOption {
	return func(a *LangchainAgent) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewLangchainAgent creates an agent answering questions about db.
func NewLangchainAgent(model llms.Model, db adapter.DBAdapter, opts ...AgentOption) *LangchainAgent {
	a := &LangchainAgent{
		llm:           model,
		adapter:       db,
		maxIterations: DefaultConfig().MaxIterations,
		topK:          defaultTopK,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tools returns the toolkit the agent works with.
func (a *LangchainAgent) Tools() []tools.Tool {
	return []tools.Tool{
		NewSQLTool(a.adapter, a.logger),
		NewSchemaTool(a.adapter, a.logger),
		NewListTablesTool(a.adapter, a.logger),
		NewVerifySQLTool(a.adapter, a.logger),
	}
}

// Run implements Agent.
func (a *LangchainAgent) Run(ctx context.Context, prompt string, events chan<- ToolInvoked) (string, error) {
	handler := NewToolObserver(events, a.logger)

	executor, err := agents.Initialize(
		a.llm,
		a.Tools(),
		agents.ZeroShotReactDescription,
		agents.WithMaxIterations(a.maxIterations),
		agents.WithCallbacksHandler(handler),
		agents.WithPromptPrefix(a.promptPrefix()),
	)
	if err != nil {
		return "", err
	}

	a.logger.Debug("starting ReAct loop", "max_iterations", a.maxIterations, "question", truncate(prompt, 120))

	result, err := executor.Call(ctx, map[string]any{"input": prompt})
	if err != nil {
		return "", err
	}

	output, ok := result["output"].(string)
	if !ok {
		return "", fmt.Errorf("agent returned no output")
	}
	return output, nil
}

// promptPrefix is the instruction block placed before the tool list.
func (a *LangchainAgent) promptPrefix() string {
	dialect := a.adapter.GetDatabaseType()

	var sb strings.Builder
	sb.WriteString("You are an agent designed to interact with a SQL database.\n")
	fmt.Fprintf(&sb, "Given an input question, create a syntactically correct %s query to run, then look at the results of the query and return the answer.\n", dialect)
	fmt.Fprintf(&sb, "Unless the user specifies a specific number of examples they wish to obtain, always limit your query to at most %d results.\n", a.topK)
	sb.WriteString("You can order the results by a relevant column to return the most interesting examples in the database.\n")
	sb.WriteString("Never query for all the columns from a specific table, only ask for the relevant columns given the question.\n")
	sb.WriteString("You MUST double check your query with " + ToolQueryChecker + " before executing it with " + ToolQuery + ". If you get an error while executing a query, rewrite the query and try again.\n")
	sb.WriteString("DO NOT make any DML statements (INSERT, UPDATE, DELETE, DROP etc.) to the database.\n")
	sb.WriteString("If the question does not seem related to the database, just return \"I don't know\" as the answer.\n")

	// 方言差异
	switch dialect {
	case "SQLite":
		sb.WriteString("SQLite notes: use double quotes for identifiers, single quotes for strings, || for string concatenation.\n")
	case "MySQL":
		sb.WriteString("MySQL notes: use backticks for identifiers, single quotes for strings, CONCAT() for string concatenation.\n")
	case "PostgreSQL":
		sb.WriteString("PostgreSQL notes: use double quotes for identifiers, single quotes for strings, LIMIT count OFFSET offset.\n")
	}

	sb.WriteString("Action Input must be the raw SQL or table names, without markdown.\n")
	return sb.String()
}

// SQLTool SQL execution tool
type SQLTool struct {
	adapter adapter.DBAdapter
	logger  *slog.Logger
}

// NewSQLTool creates the query execution tool.
func NewSQLTool(db adapter.DBAdapter, logger *slog.Logger) *SQLTool {
	return &SQLTool{adapter: db, logger: toolLogger(logger, ToolQuery)}
}

func (t *SQLTool) Name() string {
	return ToolQuery
}

func (t *SQLTool) Description() string {
	return `Input to this tool is a detailed and correct SQL query, output is a result from the database.
If the query is not correct, an error message will be returned.
If an error is returned, rewrite the query, check the query, and try again.`
}

func (t *SQLTool) Call(ctx context.Context, input string) (string, error) {
	sql := cleanToolInput(input)
	t.logger.Debug("executing sql", "sql", sql)

	result, err := t.adapter.ExecuteQuery(ctx, sql)
	if err != nil {
		return fmt.Sprintf("SQL execution failed: %v", err), nil
	}

	output := fmt.Sprintf("Query executed successfully!\nColumns: %s\nRows: %d\n", strings.Join(result.Columns, ", "), result.RowCount)
	if result.RowCount == 0 {
		return output, nil
	}

	// 按字符长度决定展示方式，而不是行数
	sampleStr := formatRows(result.StringRows())
	if len(sampleStr) <= maxSampleLength {
		output += fmt.Sprintf("Results:\n%s", sampleStr)
	} else {
		output += fmt.Sprintf("Results:\n%s... (truncated, showing first %d chars of %d total)\n",
			sampleStr[:maxSampleLength], maxSampleLength, len(sampleStr))
	}
	return output, nil
}

func formatRows(rows [][]string) string {
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString("(")
		sb.WriteString(strings.Join(row, ", "))
		sb.WriteString(")\n")
	}
	return sb.String()
}

// cleanToolInput strips markdown fences and wrapping quotes the model tends
// to put around an Action Input.
func cleanToolInput(input string) string {
	s := strings.TrimSpace(input)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```SQL")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	for _, q := range []string{`"`, "'", "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && !strings.Contains(s[1:len(s)-1], q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

func toolLogger(l *slog.Logger, tool string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "tool", "tool", tool)
}

// Package inference turns natural-language questions into SQL by running a
// tool-using agent against the session's store and recording which SQL
// statements the agent executed or validated along the way.
package inference

import "context"

// Tool names exposed to the agent.
const (
	ToolQuery        = "sql_db_query"
	ToolQueryChecker = "sql_db_query_checker"
	ToolListTables   = "sql_db_list_tables"
	ToolSchema       = "sql_db_schema"
)

// ToolInvoked is emitted once per tool invocation, before the tool runs.
type ToolInvoked struct {
	Tool  string
	Input string
}

// Agent answers a prompt, reporting every tool call on events in the order
// the calls were made. Run must not send on events after it returns.
type Agent interface {
	Run(ctx context.Context, prompt string, events chan<- ToolInvoked) (string, error)
}

// AgentFunc adapts a function to Agent.
type AgentFunc func(ctx context.Context, prompt string, events chan<- ToolInvoked) (string, error)

func (f AgentFunc) Run(ctx context.Context, prompt string, events chan<- ToolInvoked) (string, error) {
	return f(ctx, prompt, events)
}

// emit sends ev unless ctx is done first.
func emit(ctx context.Context, events chan<- ToolInvoked, ev ToolInvoked) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

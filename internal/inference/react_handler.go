package inference

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// ToolObserver is a langchaingo callbacks handler that reports each agent
// action as a ToolInvoked event and logs the ReAct steps.
type ToolObserver struct {
	events chan<- ToolInvoked
	logger *slog.Logger
	step   int
}

var _ callbacks.Handler = (*ToolObserver)(nil)

// NewToolObserver creates an observer sending on events (may be nil).
func NewToolObserver(events chan<- ToolInvoked, logger *slog.Logger) *ToolObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolObserver{events: events, logger: logger.With("component", "agent")}
}

func (h *ToolObserver) HandleText(_ context.Context, _ string) {}

func (h *ToolObserver) HandleLLMStart(_ context.Context, _ []string) {}

func (h *ToolObserver) HandleLLMGenerateContentStart(_ context.Context, _ []llms.MessageContent) {}

func (h *ToolObserver) HandleLLMGenerateContentEnd(_ context.Context, _ *llms.ContentResponse) {}

func (h *ToolObserver) HandleLLMError(_ context.Context, err error) {
	h.logger.Warn("llm error", "error", err)
}

func (h *ToolObserver) HandleChainStart(_ context.Context, _ map[string]any) {
	// 每次 chain start 是一轮新的迭代
	h.step++
}

func (h *ToolObserver) HandleChainEnd(_ context.Context, outputs map[string]any) {
	text, ok := outputs["text"].(string)
	if !ok {
		return
	}
	if thought := extractThought(text); thought != "" {
		h.logger.Debug("thought", "step", h.step, "thought", truncate(thought, 200))
	}
}

func (h *ToolObserver) HandleChainError(_ context.Context, err error) {
	h.logger.Warn("chain error", "step", h.step, "error", err)
}

func (h *ToolObserver) HandleToolStart(_ context.Context, _ string) {}

func (h *ToolObserver) HandleToolEnd(_ context.Context, output string) {
	h.logger.Debug("observation", "step", h.step, "output", truncate(output, 200))
}

func (h *ToolObserver) HandleToolError(_ context.Context, err error) {
	h.logger.Warn("tool error", "step", h.step, "error", err)
}

func (h *ToolObserver) HandleAgentAction(ctx context.Context, action schema.AgentAction) {
	input := action.ToolInput
	if recordsSQL(action.Tool) {
		// transcript 记录实际执行的 SQL
		input = cleanToolInput(input)
	}
	h.logger.Debug("action", "step", h.step, "tool", action.Tool, "input", truncate(input, 200))
	emit(ctx, h.events, ToolInvoked{Tool: action.Tool, Input: input})
}

func (h *ToolObserver) HandleAgentFinish(_ context.Context, finish schema.AgentFinish) {
	output, _ := finish.ReturnValues["output"].(string)
	h.logger.Debug("final answer", "steps", h.step, "output", truncate(output, 200))
}

func (h *ToolObserver) HandleRetrieverStart(_ context.Context, _ string) {}

func (h *ToolObserver) HandleRetrieverEnd(_ context.Context, _ string, _ []schema.Document) {}

func (h *ToolObserver) HandleStreamingFunc(_ context.Context, _ []byte) {}

// extractThought extracts thought from LLM response text
func extractThought(text string) string {
	idx := strings.Index(text, "Thought:")
	if idx < 0 {
		return ""
	}
	thought := text[idx+len("Thought:"):]
	if i := strings.Index(thought, "Action:"); i >= 0 {
		return strings.TrimSpace(thought[:i])
	}
	if i := strings.Index(thought, "Final Answer:"); i >= 0 {
		return strings.TrimSpace(thought[:i])
	}
	return strings.TrimSpace(thought)
}

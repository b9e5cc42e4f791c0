package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"askdb/internal/llm"
)

// ErrEmptyPrompt is returned by Ask for a blank prompt.
var ErrEmptyPrompt = errors.New("inference: empty prompt")

// AgentError wraps any failure of the agent while answering a prompt.
type AgentError struct {
	Prompt string
	Err    error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent failed: %v", e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// IsAgentError reports whether err is or wraps an *AgentError.
func IsAgentError(err error) bool {
	var ae *AgentError
	return errors.As(err, &ae)
}

// Config 推理配置
type Config struct {
	Timeout       time.Duration // 单次提问的超时，0 表示不限制
	MaxIterations int           // 交给 LangchainAgent
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:       2 * time.Minute,
		MaxIterations: 15,
	}
}

// Answer is the outcome of one successful prompt.
type Answer struct {
	Prompt     string
	Output     string
	SQL        string
	Transcript Transcript
	Duration   time.Duration
	Tokens     int
}

// Orchestrator runs an Agent for a prompt and records its SQL transcript.
type Orchestrator struct {
	agent   Agent
	config  Config
	logger  *slog.Logger
	counter *llm.TokenCounter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConfig overrides the default config.
func WithConfig(c Config) Option {
	return func(o *Orchestrator) { o.config = c }
}

// WithTokenCounter enables token accounting on answers.
func WithTokenCounter(c *llm.TokenCounter) Option {
	return func(o *Orchestrator) { o.counter = c }
}

// NewOrchestrator creates an orchestrator around agent.
func NewOrchestrator(agent Agent, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agent:  agent,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o
}

// Ask runs the agent for prompt. On failure the transcript collected so far is
// discarded and the error is an *AgentError.
func (o *Orchestrator) Ask(ctx context.Context, prompt string) (*Answer, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	o.logger.Info("asking agent", "prompt", truncate(prompt, 120))

	events := make(chan ToolInvoked, 16)
	done := make(chan Transcript, 1)
	go func() { done <- collect(events) }()

	output, err := o.run(ctx, prompt, events)
	close(events)
	transcript := <-done

	if err != nil {
		o.logger.Warn("agent failed", "error", err, "duration", time.Since(start))
		return nil, &AgentError{Prompt: prompt, Err: err}
	}

	answer := &Answer{
		Prompt:     prompt,
		Output:     strings.TrimSpace(output),
		SQL:        transcript.LastSQL(),
		Transcript: transcript,
		Duration:   time.Since(start),
		Tokens:     o.counter.CountAll(prompt, output),
	}
	o.logger.Info("agent finished",
		"sql", answer.SQL,
		"statements", len(transcript),
		"duration", answer.Duration,
		"tokens", answer.Tokens,
	)
	return answer, nil
}

// run calls the agent, turning a panic into an error.
func (o *Orchestrator) run(ctx context.Context, prompt string, events chan<- ToolInvoked) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("agent panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("agent panic: %v", r)
		}
	}()
	if o.agent == nil {
		return "", errors.New("no agent configured")
	}
	return o.agent.Run(ctx, prompt, events)
}

// truncate truncates long text
func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

package session

import (
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"askdb/internal/adapter"
	"askdb/internal/inference"
	"askdb/internal/llm"
)

// LangchainAgents returns a factory building langchaingo agents. The model
// client is created on first use and shared.
func LangchainAgents(model llm.ModelConfig, maxIterations int, logger *slog.Logger) AgentFactory {
	var (
		once   sync.Once
		client llms.Model
		err    error
	)
	return func(db adapter.DBAdapter) (inference.Agent, error) {
		once.Do(func() {
			client, err = llm.CreateLLM(model)
		})
		if err != nil {
			return nil, err
		}
		return inference.NewLangchainAgent(client, db,
			inference.WithMaxIterations(maxIterations),
			inference.WithAgentLogger(logger),
		), nil
	}
}

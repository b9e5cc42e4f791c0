package llm

import (
	"errors"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-mini"

// ErrMissingToken is returned when no API key was found in any source.
var ErrMissingToken = errors.New("llm: no API key configured (set OPENAI_API_KEY or run `askdb key set`)")

// ModelConfig LLM model config
type ModelConfig struct {
	ModelName string `mapstructure:"model" json:"model_name"`
	Token     string `mapstructure:"api_key" json:"-"`
	BaseURL   string `mapstructure:"base_url" json:"base_url"`
}

// Validate checks the config can build a client.
func (c ModelConfig) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// DisplayName is the model name shown in the UI.
func (c ModelConfig) DisplayName() string {
	if c.ModelName == "" {
		return DefaultModel
	}
	return c.ModelName
}

// CreateLLM creates LLM instance against an OpenAI-compatible endpoint.
func CreateLLM(config ModelConfig) (llms.Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithModel(config.DisplayName()),
		openai.WithToken(config.Token),
	}
	// 空 BaseURL 使用官方地址
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	return openai.New(opts...)
}

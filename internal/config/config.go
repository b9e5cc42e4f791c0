package config

import (
	"time"

	"askdb/internal/inference"
	"askdb/internal/llm"
)

// Config represents the application configuration.
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm" yaml:"llm"`
	Agent  AgentConfig  `mapstructure:"agent" yaml:"agent"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`
	DemoDB string       `mapstructure:"demo_db" yaml:"demo_db"`
}

// LLMConfig selects the language model.
type LLMConfig struct {
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// AgentConfig bounds one agent run.
type AgentConfig struct {
	MaxIterations int           `mapstructure:"max_iterations" yaml:"max_iterations"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
	File   string `mapstructure:"file" yaml:"file"`
}

// IngestConfig controls where uploads are converted.
type IngestConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{Model: llm.DefaultModel},
		Agent: AgentConfig{
			MaxIterations: inference.DefaultConfig().MaxIterations,
			Timeout:       inference.DefaultConfig().Timeout,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Inference returns the orchestrator settings.
func (c *Config) Inference() inference.Config {
	return inference.Config{
		Timeout:       c.Agent.Timeout,
		MaxIterations: c.Agent.MaxIterations,
	}
}

// Model returns the model settings with the given API key.
func (c *Config) Model(apiKey string) llm.ModelConfig {
	return llm.ModelConfig{
		ModelName: c.LLM.Model,
		Token:     apiKey,
		BaseURL:   c.LLM.BaseURL,
	}
}

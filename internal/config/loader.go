package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

const (
	configDir  = ".askdb"
	configFile = "config"
	configType = "yaml"
)

// envOverrides are applied on top of the config file.
type envOverrides struct {
	Model         string        `env:"ASKDB_LLM_MODEL"`
	BaseURL       string        `env:"ASKDB_LLM_BASE_URL"`
	APIKey        string        `env:"ASKDB_OPENAI_API_KEY"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	MaxIterations int           `env:"ASKDB_AGENT_MAX_ITERATIONS"`
	Timeout       time.Duration `env:"ASKDB_AGENT_TIMEOUT"`
	LogLevel      string        `env:"ASKDB_LOG_LEVEL"`
	LogFormat     string        `env:"ASKDB_LOG_FORMAT"`
	LogFile       string        `env:"ASKDB_LOG_FILE"`
	IngestDir     string        `env:"ASKDB_INGEST_DIR"`
	DemoDB        string        `env:"ASKDB_DEMO_DB"`
}

// Load reads the configuration from path, or ~/.askdb/config.yaml when path
// is empty, then applies ASKDB_* environment overrides. A missing default
// config file is not an error.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("config dir: %w", err)
		}
		v.SetConfigName(configFile)
		v.SetConfigType(configType)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	def := Default()
	v.SetDefault("llm.model", def.LLM.Model)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("agent.max_iterations", def.Agent.MaxIterations)
	v.SetDefault("agent.timeout", def.Agent.Timeout)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.file", "")
	v.SetDefault("ingest.dir", "")
	v.SetDefault("demo_db", "")
	return v
}

func applyEnv(cfg *Config) error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	set := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	set(&cfg.LLM.Model, e.Model)
	set(&cfg.LLM.BaseURL, e.BaseURL)
	set(&cfg.LLM.APIKey, e.OpenAIKey)
	set(&cfg.LLM.APIKey, e.APIKey) // ASKDB_ wins over OPENAI_API_KEY
	set(&cfg.Log.Level, e.LogLevel)
	set(&cfg.Log.Format, e.LogFormat)
	set(&cfg.Log.File, e.LogFile)
	set(&cfg.Ingest.Dir, e.IngestDir)
	set(&cfg.DemoDB, e.DemoDB)
	if e.MaxIterations > 0 {
		cfg.Agent.MaxIterations = e.MaxIterations
	}
	if e.Timeout > 0 {
		cfg.Agent.Timeout = e.Timeout
	}
	return nil
}

// Save writes cfg to path, or ~/.askdb/config.yaml when path is empty. The
// API key is never written; it belongs in the keyring.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("llm.base_url", cfg.LLM.BaseURL)
	v.Set("agent.max_iterations", cfg.Agent.MaxIterations)
	v.Set("agent.timeout", cfg.Agent.Timeout.String())
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)
	v.Set("ingest.dir", cfg.Ingest.Dir)
	v.Set("demo_db", cfg.DemoDB)
	return v.WriteConfigAs(path)
}

// Dir returns ~/.askdb.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}

// Path returns the default config file, ~/.askdb/config.yaml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, configFile+"."+configType), nil
}

// DefaultLogFile is where the interactive mode logs when no file is set.
func DefaultLogFile() string {
	dir, err := Dir()
	if err != nil {
		return filepath.Join(os.TempDir(), "askdb.log")
	}
	return filepath.Join(dir, "askdb.log")
}

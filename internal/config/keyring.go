package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "askdb"
	keyringUser    = "openai_api_key"
)

// APIKey source names, for display.
const (
	SourceConfig  = "config"
	SourceKeyring = "keyring"
)

// APIKey resolves the API key: environment and config file (already merged
// into cfg by Load) first, then the OS keyring. An empty key with a nil
// error means none is configured.
func APIKey(cfg *Config) (key, source string, err error) {
	if cfg.LLM.APIKey != "" {
		return cfg.LLM.APIKey, SourceConfig, nil
	}
	key, err = keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("read keyring: %w", err)
	}
	return key, SourceKeyring, nil
}

// SetAPIKey stores key in the OS keyring.
func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty API key")
	}
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
func DeleteAPIKey() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keyring: %w", err)
	}
	return nil
}

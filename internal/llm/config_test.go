package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelConfig(t *testing.T) {
	t.Parallel()

	var cfg ModelConfig
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)
	assert.Equal(t, DefaultModel, cfg.DisplayName())

	_, err := CreateLLM(cfg)
	assert.ErrorIs(t, err, ErrMissingToken)

	cfg = ModelConfig{ModelName: "local-model", Token: "sk-test", BaseURL: "http://127.0.0.1:1/v1"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "local-model", cfg.DisplayName())

	model, err := CreateLLM(cfg)
	require.NoError(t, err)
	assert.NotNil(t, model)
}

func TestTokenCounter(t *testing.T) {
	t.Parallel()

	var nilCounter *TokenCounter
	assert.Zero(t, nilCounter.Count("hello"))
	assert.False(t, nilCounter.Available())

	c := NewTokenCounter()
	assert.Same(t, c, NewTokenCounter())
	assert.Zero(t, c.Count(""))

	if !c.Available() {
		t.Skip("cl100k_base encoding unavailable")
	}
	assert.Positive(t, c.Count("SELECT count(*) FROM data"))
	assert.Equal(t, c.Count("a b")+c.Count("c d"), c.CountAll("a b", "c d"))
}

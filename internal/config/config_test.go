package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV", "production") // skip .env lookup
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.ServerPort)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 1024, cfg.OpenAIMaxTokens)
	assert.Equal(t, GenerationModeChunked, cfg.GenerationMode)
	assert.Equal(t, 30*time.Millisecond, cfg.StreamDelay)
	assert.True(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GENERATION_MODE", "STREAM")
	t.Setenv("STREAM_DELAY", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "2m")
	t.Setenv("CONTEXT_MAX_TOKENS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, GenerationModeStream, cfg.GenerationMode)
	assert.Equal(t, 5*time.Millisecond, cfg.StreamDelay)
	assert.Equal(t, 2*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 6000, cfg.ContextMaxTokens)
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GENERATION_MODE", "batch")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATION_MODE")
}

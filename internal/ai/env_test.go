package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ORACLE_PROVIDER", "gemini")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MAX_TOKENS", "400")
	t.Setenv("ORACLE_TIMEOUT", "12s")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")

	cfg := ConfigFromEnv()
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, 400, cfg.MaxTokens)
	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)

	t.Setenv("OPENAI_MAX_TOKENS", "lots")
	t.Setenv("ORACLE_TIMEOUT", "soon")
	cfg = ConfigFromEnv()
	assert.Zero(t, cfg.MaxTokens)
	assert.Zero(t, cfg.Timeout)
}

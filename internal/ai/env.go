package ai

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigFromEnv reads the oracle settings shared by the server and the CLI.
func ConfigFromEnv() Config {
	cfg := Config{
		Provider:     os.Getenv("ORACLE_PROVIDER"),
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		Model:        os.Getenv("OPENAI_MODEL"),
		BaseURL:      os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),
	}
	if maxTokens := os.Getenv("OPENAI_MAX_TOKENS"); maxTokens != "" {
		if v, err := strconv.Atoi(maxTokens); err == nil {
			cfg.MaxTokens = v
		}
	}
	if timeout := strings.TrimSpace(os.Getenv("ORACLE_TIMEOUT")); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

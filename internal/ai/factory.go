package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the oracle selected by cfg.Provider. When both OpenAI and Gemini
// credentials are present the non-selected provider becomes the fallback.
func New(ctx context.Context, cfg Config, observer Observer) (Oracle, error) {
	var openai, gemini Oracle

	if client, err := NewOpenAIClient(cfg); err == nil {
		openai = NewLLMOracle(client, cfg.Timeout, observer)
	} else if !errors.Is(err, ErrDisabled) {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	if client, err := NewGeminiClient(ctx, cfg); err == nil {
		gemini = NewLLMOracle(client, cfg.Timeout, observer)
	} else if !errors.Is(err, ErrDisabled) {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	var oracle Oracle
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		oracle = WithFallback(openai, gemini)
	case "gemini":
		oracle = WithFallback(gemini, openai)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	if oracle == nil {
		return nil, ErrDisabled
	}
	logrus.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"openai":   openai != nil,
		"gemini":   gemini != nil,
	}).Info("reasoning oracle configured")
	return oracle, nil
}

package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": `{"role": "fraud investigator"}`}}},
		})
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	oracle := NewLLMOracle(client, 0, nil)
	role, err := oracle.ExtractRole(context.Background(), "As a fraud investigator, I need your OTP")
	require.NoError(t, err)
	assert.Equal(t, "fraud investigator", role.Role)

	assert.Equal(t, "gpt-4o", captured["model"])
	assert.Equal(t, 0.0, captured["temperature"])
	assert.Equal(t, map[string]any{"type": "json_object"}, captured["response_format"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAIClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), Prompt{User: "hi"})
	require.ErrorContains(t, err, "openai status 429")
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	require.ErrorIs(t, err, ErrDisabled)
}

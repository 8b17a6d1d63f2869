package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMClientComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"isValid\":true}"}}]}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{APIKey: "key-123", BaseURL: srv.URL + "/v1/", Model: "test-model"})
	out, err := c.Complete(context.Background(), CompletionRequest{
		System:      "sys",
		Prompt:      "hello",
		Temperature: 0.2,
		MaxTokens:   100,
		JSONMode:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"isValid":true}`, out)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestLLMClientStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, model.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, `{}`, model.ErrUnauthorized},
		{"no choices", http.StatusOK, `{"choices":[]}`, model.ErrInvalidResponse},
		{"provider error", http.StatusOK, `{"error":{"message":"bad model"}}`, model.ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewLLMClient(LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
			_, err := c.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLLMClientServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := c.Complete(context.Background(), CompletionRequest{Prompt: "x"})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "m",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func newCompatServer(t *testing.T, handler http.HandlerFunc) *OpenAICompat {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newOpenAICompat("huggingface", "test-token", server.URL+"/v1", Options{HTTPClient: server.Client()})
}

func TestOpenAICompat_Complete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	c := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody("```json\n{\"code_smells\":[]}\n```"))
	})

	resp, err := c.Complete(context.Background(), Request{
		Model:       "Qwen/Qwen2.5-Coder-3B-Instruct",
		Prompt:      "analyze this",
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "```json\n{\"code_smells\":[]}\n```", resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)

	assert.Equal(t, "Qwen/Qwen2.5-Coder-3B-Instruct", got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	assert.InDelta(t, 0.1, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "analyze this", got.Messages[0].Content)
}

func TestOpenAICompat_AuthError(t *testing.T) {
	c := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid token","type":"invalid_request_error"}}`))
	})

	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsAuthError(err))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "huggingface", te.Provider)
	assert.Equal(t, "m", te.Model)
}

func TestOpenAICompat_ServerError(t *testing.T) {
	c := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)
	var se *serverError
	assert.True(t, errors.As(err, &se))
	assert.False(t, IsAuthError(err))
}

func TestOpenAICompat_NoChoices(t *testing.T) {
	c := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		body := chatCompletionBody("")
		body["choices"] = []any{}
		json.NewEncoder(w).Encode(body)
	})

	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAICompat_RetriesRateLimit(t *testing.T) {
	restore := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = restore })

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		json.NewEncoder(w).Encode(chatCompletionBody("{}"))
	}))
	defer server.Close()

	c := newOpenAICompat("openai", "k", server.URL, Options{HTTPClient: server.Client(), MaxRetries: 2})
	resp, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAICompat_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newCompatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewHuggingFace_MissingToken(t *testing.T) {
	t.Setenv("HF_TOKEN", "")
	_, err := NewHuggingFace(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HF_TOKEN")
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAI(Options{})
	require.Error(t, err)
}

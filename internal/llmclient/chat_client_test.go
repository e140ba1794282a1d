// internal/llmclient/chat_client_test.go
package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qaforge/sauceprobe/internal/config"
)

// -- Test Setup Helpers --

func setupChatClient(t *testing.T, provider config.LLMProvider, handler http.HandlerFunc) (*ChatClient, *observer.ObservedLogs) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, logs := setupTestLogger(t)
	cfg := getValidLLMConfig()
	cfg.Endpoint = server.URL + "/v1/"

	client, err := NewChatClient(provider, cfg, logger)
	require.NoError(t, err)
	client.backoffFactory = fastBackoff
	t.Cleanup(client.httpClient.CloseIdleConnections)
	return client, logs
}

func writeChoice(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
	})
}

// -- Initialization --

func TestNewChatClient(t *testing.T) {
	logger, _ := setupTestLogger(t)

	t.Run("requires an API key", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.APIKey = ""
		cfg.Endpoint = "https://api.mistral.ai/v1"

		client, err := NewChatClient(config.ProviderMistral, cfg, logger)

		assert.Nil(t, client)
		assert.ErrorContains(t, err, "MISTRAL_API_KEY")
	})

	t.Run("requires an endpoint", func(t *testing.T) {
		_, err := NewChatClient(config.ProviderOpenAI, getValidLLMConfig(), logger)
		assert.ErrorContains(t, err, "endpoint")
	})

	t.Run("appends the chat completions path", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Endpoint = "https://api.openai.com/v1/"

		client, err := NewChatClient(config.ProviderOpenAI, cfg, logger)

		require.NoError(t, err)
		assert.Equal(t, "https://api.openai.com/v1/chat/completions", client.endpoint)
		assert.Equal(t, cfg.APITimeout, client.httpClient.Timeout)
	})
}

// -- Request payload --

func TestChatClient_BuildRequestPayload(t *testing.T) {
	client, _ := setupChatClient(t, config.ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {})

	payload := client.buildRequestPayload(GenerationRequest{SystemPrompt: "sys", UserPrompt: "user", ForceJSON: true})

	require.Len(t, payload.Messages, 2)
	assert.Equal(t, "system", payload.Messages[0].Role)
	assert.Equal(t, "user", payload.Messages[1].Role)
	assert.Equal(t, "test-model", payload.Model)
	assert.Equal(t, float32(0.2), payload.Temperature)
	assert.Equal(t, 900, payload.MaxTokens)
	require.NotNil(t, payload.ResponseFormat)
	assert.Equal(t, "json_object", payload.ResponseFormat.Type)

	plain := client.buildRequestPayload(createTestRequest())
	require.Len(t, plain.Messages, 1)
	assert.Nil(t, plain.ResponseFormat)
}

// -- Generate --

func TestChatClient_Generate_Success(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var payload chatRequest
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Review this code.", payload.Messages[0].Content)

		writeChoice(w, "  {\"score\": 8}\n")
	}
	client, logs := setupChatClient(t, config.ProviderMistral, handler)

	out, err := client.Generate(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.Equal(t, `{"score": 8}`, out)

	entries := logs.FilterMessage("LLM generation complete").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "mistral", entries[0].ContextMap()["provider"])
	assert.Equal(t, int64(200), entries[0].ContextMap()["total_tokens"])
}

func TestChatClient_Generate_RetriesTransientErrors(t *testing.T) {
	var attempts int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		writeChoice(w, "ok")
	}
	client, _ := setupChatClient(t, config.ProviderOpenAI, handler)

	out, err := client.Generate(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestChatClient_Generate_PermanentErrorsAreNotRetried(t *testing.T) {
	var attempts int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}
	client, logs := setupChatClient(t, config.ProviderOpenAI, handler)

	_, err := client.Generate(context.Background(), createTestRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "invalid api key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Equal(t, 1, logs.FilterMessage("LLM API returned error status").Len())
}

func TestChatClient_Generate_NoChoices(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}
	client, _ := setupChatClient(t, config.ProviderOpenAI, handler)

	_, err := client.Generate(context.Background(), createTestRequest())

	assert.ErrorContains(t, err, "no choices")
}

func TestChatClient_Generate_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	handler := func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}
	client, _ := setupChatClient(t, config.ProviderOpenAI, handler)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Generate(ctx, createTestRequest())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, 1, newLimiter(0).Burst())
	limiter := newLimiter(60)
	assert.InDelta(t, 1.0, float64(limiter.Limit()), 0.001)
}

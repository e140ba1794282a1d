// internal/llmclient/chat_client.go
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/qaforge/sauceprobe/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChatClient talks to an OpenAI-compatible chat completions endpoint. Both
// OpenAI and Mistral speak this protocol.
type ChatClient struct {
	provider       config.LLMProvider
	apiKey         string
	endpoint       string
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         *zap.Logger
	config         config.LLMModelConfig
	backoffFactory func() backoff.BackOff
}

// -- Chat API Request/Response Structures --

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    float32             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewChatClient initializes a chat completions client for provider.
func NewChatClient(provider config.LLMProvider, cfg config.LLMModelConfig, logger *zap.Logger) (*ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required (set %s_API_KEY)", provider, strings.ToUpper(string(provider)))
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%s endpoint is required", provider)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatClient{
		provider:       provider,
		apiKey:         cfg.APIKey,
		endpoint:       strings.TrimRight(cfg.Endpoint, "/") + "/chat/completions",
		httpClient:     &http.Client{Timeout: cfg.APITimeout},
		limiter:        newLimiter(cfg.RequestsPerMinute),
		logger:         logger.Named("llm_client." + string(provider)),
		config:         cfg,
		backoffFactory: defaultBackoff,
	}, nil
}

// Generate sends the prompt and returns the first choice, retrying transient failures.
func (c *ChatClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var content string
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		duration := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		var payload chatResponse
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if len(payload.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("%s API returned no choices", c.provider))
		}

		c.logger.Info("LLM generation complete",
			zap.String("provider", string(c.provider)),
			zap.String("model", c.config.Model),
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", payload.Usage.PromptTokens),
			zap.Int("completion_tokens", payload.Usage.CompletionTokens),
			zap.Int("total_tokens", payload.Usage.TotalTokens),
		)
		content = strings.TrimSpace(payload.Choices[0].Message.Content)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func (c *ChatClient) buildRequestPayload(req GenerationRequest) chatRequest {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserPrompt})

	payload := chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if req.ForceJSON {
		payload.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}
	return payload
}

func (c *ChatClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("LLM API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("%s API error: status %d, body: %s", c.provider, statusCode, string(body))
	if retryable(statusCode) {
		return err
	}
	return backoff.Permanent(err)
}

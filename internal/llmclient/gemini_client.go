// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/qaforge/sauceprobe/internal/config"
)

// GeminiClient generates content through the Gemini API SDK.
type GeminiClient struct {
	client         *genai.Client
	limiter        *rate.Limiter
	logger         *zap.Logger
	config         config.LLMModelConfig
	backoffFactory func() backoff.BackOff
}

// NewGeminiClient initializes the SDK client. A non-empty Endpoint overrides
// the API base URL.
func NewGeminiClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required (set GEMINI_API_KEY)")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.Endpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:         client,
		limiter:        newLimiter(cfg.RequestsPerMinute),
		logger:         logger.Named("llm_client.gemini"),
		config:         cfg,
		backoffFactory: defaultBackoff,
	}, nil
}

// Generate sends the prompt and returns the response text, retrying
// transient API failures.
func (c *GeminiClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)}
	genCfg := c.buildGenerationConfig(req)

	var text string
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, genCfg)
		duration := time.Since(start)
		if err != nil {
			return c.handleAPIError(ctx, err)
		}

		out := strings.TrimSpace(resp.Text())
		if out == "" {
			reason := ""
			if len(resp.Candidates) > 0 {
				reason = string(resp.Candidates[0].FinishReason)
			}
			if reason == string(genai.FinishReasonSafety) || reason == string(genai.FinishReasonBlocklist) {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (Reason: %s)", reason))
			}
			return fmt.Errorf("gemini API returned empty content (Reason: %s)", reason)
		}

		fields := []zap.Field{zap.String("model", c.config.Model), zap.Duration("duration", duration)}
		if u := resp.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("completion_tokens", u.CandidatesTokenCount),
				zap.Int32("total_tokens", u.TotalTokenCount))
		}
		c.logger.Info("LLM generation complete (Gemini)", fields...)
		text = out
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx)); err != nil {
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) buildGenerationConfig(req GenerationRequest) *genai.GenerateContentConfig {
	temperature := c.config.Temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(c.config.MaxTokens),
	}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.ForceJSON {
		genCfg.ResponseMIMEType = "application/json"
	}
	return genCfg
}

func (c *GeminiClient) handleAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("Gemini API returned error status", zap.Int("status", apiErr.Code), zap.String("response", apiErr.Message))
		wrapped := fmt.Errorf("gemini API error: status %d: %w", apiErr.Code, err)
		if retryable(apiErr.Code) {
			return wrapped
		}
		return backoff.Permanent(wrapped)
	}
	c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
	return fmt.Errorf("gemini request failed: %w", err)
}

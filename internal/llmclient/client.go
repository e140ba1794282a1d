// internal/llmclient/client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/qaforge/sauceprobe/internal/config"
)

// ErrUnknownProvider is returned for a provider name no client exists for.
var ErrUnknownProvider = errors.New("unknown LLM provider")

// GenerationRequest is a single-turn prompt.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	// ForceJSON asks the provider for a JSON-only answer where it supports that.
	ForceJSON bool
}

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// NewClient creates the client for the configured review provider.
func NewClient(ctx context.Context, cfg config.ReviewConfig, logger *zap.Logger) (Client, error) {
	modelCfg, ok := cfg.ProviderConfig(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: openai, gemini, mistral)", ErrUnknownProvider, cfg.Provider)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, modelCfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		c, err := NewChatClient(cfg.Provider, modelCfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

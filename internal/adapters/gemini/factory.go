package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/llm-claim-detector/internal/config"
)

// Factory creates new instances of Client
type Factory struct {
	cfg    config.ProviderConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini clients
func NewFactory(cfg config.ProviderConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a new Gemini client
func (f *Factory) CreateClient(ctx context.Context) (*Client, error) {
	if f.cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(f.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewClient(client, f.cfg.ModelName, f.cfg.MaxTokens, f.cfg.Temperature, f.logger), nil
}

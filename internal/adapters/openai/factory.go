package openai

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
)

// Factory creates new instances of Client
type Factory struct {
	cfg    config.ProviderConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI clients
func NewFactory(cfg config.ProviderConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a new hosted OpenAI client
func (f *Factory) CreateClient() (*Client, error) {
	if f.cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return NewClient(
		openai.NewClient(f.cfg.APIKey),
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		true,
		f.logger,
	), nil
}

// CreateCompatibleClient creates a client for an OpenAI-compatible server
// listening at baseURL. apiKey may be empty.
func (f *Factory) CreateCompatibleClient(baseURL string) *Client {
	clientCfg := openai.DefaultConfig(f.cfg.APIKey)
	clientCfg.BaseURL = baseURL
	return NewClient(
		openai.NewClientWithConfig(clientCfg),
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		false,
		f.logger,
	)
}

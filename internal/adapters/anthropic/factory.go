package anthropic

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
)

// Factory creates new instances of Client
type Factory struct {
	cfg    config.ProviderConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for Anthropic clients
func NewFactory(cfg config.ProviderConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a new Anthropic client. Extra request options are
// appended after the API key.
func (f *Factory) CreateClient(opts ...option.RequestOption) (*Client, error) {
	if f.cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(f.cfg.APIKey)}, opts...)
	return NewClient(
		anthropic.NewClient(opts...),
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.logger,
	), nil
}

package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/anthropic"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

// AnthropicFactory creates Anthropic completers
type AnthropicFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAnthropicFactory creates a new Anthropic factory
func NewAnthropicFactory(cfg *config.Config, logger *zap.Logger) *AnthropicFactory {
	return &AnthropicFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates an Anthropic completer
func (f *AnthropicFactory) CreateCompleter(_ context.Context) (core.Completer, error) {
	return anthropic.NewFactory(f.cfg.GetProvider("anthropic"), f.logger).CreateClient()
}

// MaxBodySize returns the body size limit for this provider
func (f *AnthropicFactory) MaxBodySize() int {
	return f.cfg.GetInt("anthropic.max_body_size")
}

package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/openai"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

// OpenAIFactory creates OpenAI completers
type OpenAIFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates an OpenAI completer
func (f *OpenAIFactory) CreateCompleter(_ context.Context) (core.Completer, error) {
	return openai.NewFactory(f.cfg.GetProvider("openai"), f.logger).CreateClient()
}

// MaxBodySize returns the body size limit for this provider
func (f *OpenAIFactory) MaxBodySize() int {
	return f.cfg.GetInt("openai.max_body_size")
}

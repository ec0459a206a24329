package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/gemini"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

// GeminiFactory creates Gemini completers
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates a Gemini completer
func (f *GeminiFactory) CreateCompleter(ctx context.Context) (core.Completer, error) {
	return gemini.NewFactory(f.cfg.GetProvider("gemini"), f.logger).CreateClient(ctx)
}

// MaxBodySize returns the body size limit for this provider
func (f *GeminiFactory) MaxBodySize() int {
	return f.cfg.GetInt("gemini.max_body_size")
}

package factory

import (
	"context"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/bedrock"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

// BedrockFactory creates Bedrock completers
type BedrockFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBedrockFactory creates a new Bedrock factory
func NewBedrockFactory(cfg *config.Config, logger *zap.Logger) *BedrockFactory {
	return &BedrockFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates a Bedrock completer
func (f *BedrockFactory) CreateCompleter(ctx context.Context) (core.Completer, error) {
	return bedrock.NewFactory(f.cfg.GetBedrock(), f.logger).CreateClient(ctx)
}

// MaxBodySize returns the body size limit for this provider
func (f *BedrockFactory) MaxBodySize() int {
	return f.cfg.GetInt("bedrock.max_body_size")
}

package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
)

// Factory creates Bedrock clients
type Factory struct {
	cfg    config.BedrockConfig
	logger *zap.Logger
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg config.BedrockConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a new Bedrock client using the default AWS credential chain
func (f *Factory) CreateClient(ctx context.Context) (*Client, error) {
	if f.cfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock model id is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewClient(
		bedrockruntime.NewFromConfig(awsCfg),
		f.cfg.ModelID,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.logger,
	), nil
}

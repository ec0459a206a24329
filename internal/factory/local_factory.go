package factory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/local"
	"github.com/mikey/llm-claim-detector/internal/adapters/openai"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

// LocalFactory creates completers for the self-hosted inference server
type LocalFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLocalFactory creates a new self-hosted backend factory
func NewLocalFactory(cfg *config.Config, logger *zap.Logger) *LocalFactory {
	return &LocalFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCompleter creates a completer talking to the OpenAI-compatible
// endpoint of the inference server
func (f *LocalFactory) CreateCompleter(_ context.Context) (core.Completer, error) {
	localCfg, err := f.cfg.GetLocal()
	if err != nil {
		return nil, err
	}
	if localCfg.BaseURL == "" {
		return nil, fmt.Errorf("local base URL is required")
	}
	providerCfg := config.ProviderConfig{
		APIKey:      f.cfg.GetString("local.api_key"),
		ModelName:   localCfg.ModelName,
		MaxTokens:   localCfg.MaxTokens,
		Temperature: localCfg.Temperature,
		MaxBodySize: localCfg.MaxBodySize,
	}
	return openai.NewFactory(providerCfg, f.logger).CreateCompatibleClient(strings.TrimRight(localCfg.BaseURL, "/") + "/v1"), nil
}

// CreateBackend creates the lifecycle handle of the inference server
func (f *LocalFactory) CreateBackend() (*local.Backend, error) {
	localCfg, err := f.cfg.GetLocal()
	if err != nil {
		return nil, err
	}
	return local.NewBackend(localCfg, f.logger), nil
}

// MaxBodySize returns the body size limit for this provider
func (f *LocalFactory) MaxBodySize() int {
	return f.cfg.GetInt("local.max_body_size")
}

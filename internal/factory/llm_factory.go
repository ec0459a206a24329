package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/local"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
	"github.com/mikey/llm-claim-detector/internal/utils"
)

// completerFactory is implemented by every provider factory
type completerFactory interface {
	CreateCompleter(ctx context.Context) (core.Completer, error)
	MaxBodySize() int
}

// LLMFactory creates classifiers for the configured provider
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a classifier based on llm.provider. The "local"
// provider yields a classifier that must be started before use.
func (f *LLMFactory) CreateClassifier(ctx context.Context) (core.Classifier, error) {
	llmConfig, err := f.cfg.GetLLM()
	if err != nil {
		return nil, err
	}

	pf, err := f.providerFactory(llmConfig.Provider)
	if err != nil {
		return nil, err
	}
	completer, err := pf.CreateCompleter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", llmConfig.Provider, err)
	}

	classifier := core.NewCompletionClassifier(
		completer,
		f.logger,
		f.textProcessor,
		pf.MaxBodySize(),
		llmConfig.Timeout,
	)
	f.logger.Info("Classifier created", zap.String("provider", llmConfig.Provider))

	if lf, ok := pf.(*LocalFactory); ok {
		backend, err := lf.CreateBackend()
		if err != nil {
			return nil, err
		}
		return local.NewClassifier(classifier, backend), nil
	}
	return classifier, nil
}

func (f *LLMFactory) providerFactory(provider string) (completerFactory, error) {
	switch provider {
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger), nil
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger), nil
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger), nil
	case "anthropic":
		return NewAnthropicFactory(f.cfg, f.logger), nil
	case "local":
		return NewLocalFactory(f.cfg, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

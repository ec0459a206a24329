package di

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
	"github.com/mikey/llm-claim-detector/internal/factory"
	"github.com/mikey/llm-claim-detector/internal/logging"
	"github.com/mikey/llm-claim-detector/internal/metrics"
	"github.com/mikey/llm-claim-detector/internal/utils"
)

// BuildContainer creates and configures a dependency injection container.
// Components are only constructed when a command asks for them, so the
// report command never dials the mail server.
func BuildContainer(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(prometheus.NewRegistry); err != nil {
		return nil, err
	}
	if err := container.Provide(func(reg *prometheus.Registry) *metrics.Recorder {
		return metrics.New(reg)
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register store
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register mail source
	if err := container.Provide(factory.NewMailFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.MailFactory) (core.MailSource, error) {
		return f.CreateSource()
	}); err != nil {
		return nil, err
	}

	// Register dispatcher and pipeline
	if err := container.Provide(func(
		cfg *config.Config,
		classifier core.Classifier,
		logger *zap.Logger,
		recorder *metrics.Recorder,
	) (*core.Dispatcher, error) {
		analysis, err := cfg.GetAnalysis()
		if err != nil {
			return nil, err
		}
		return core.NewDispatcher(classifier, analysis.Interval, logger, recorder), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(cfg *config.Config) (core.PipelineSettings, error) {
		analysis, err := cfg.GetAnalysis()
		if err != nil {
			return core.PipelineSettings{}, err
		}
		return core.PipelineSettings{
			DefaultConcurrency: analysis.Concurrency,
			Lookback:           analysis.Lookback,
		}, nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPipeline); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalysis registers the text processor, classifier and exclusion filter
func provideAnalysis(container *dig.Container) error {
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.LLMFactory) (core.Classifier, error) {
		return f.CreateClassifier(context.Background())
	}); err != nil {
		return err
	}

	if err := container.Provide(factory.NewExclusionFactory); err != nil {
		return err
	}
	return container.Provide(func(f *factory.ExclusionFactory) core.ExclusionFilter {
		return f.CreateFilter()
	})
}

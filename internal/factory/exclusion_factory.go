package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/exclusion"
)

// ExclusionFactory creates the exclusion filter
type ExclusionFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewExclusionFactory creates a new exclusion factory
func NewExclusionFactory(cfg *config.Config, logger *zap.Logger) *ExclusionFactory {
	return &ExclusionFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateFilter loads the exclusion rules file. A missing or broken file
// yields a filter that excludes nothing.
func (f *ExclusionFactory) CreateFilter() *exclusion.Filter {
	return exclusion.Load(f.cfg.GetString("analysis.exclusions_path"), f.logger)
}

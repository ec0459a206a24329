package factory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/adapters/store"
	"github.com/mikey/llm-claim-detector/internal/config"
	"github.com/mikey/llm-claim-detector/internal/core"
)

// StoreFactory creates stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a store based on the configuration
func (f *StoreFactory) CreateStore(ctx context.Context) (core.Store, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		if storeCfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); err != nil {
				return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
			}
		}
		return store.NewSQLiteStore(ctx, storeCfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(ctx, storeCfg.MySQLDSN, f.logger)
	case "postgres":
		return store.NewPostgresStore(ctx, storeCfg.PostgresDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}

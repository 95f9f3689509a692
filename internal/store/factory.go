package store

import (
	"context"
	"fmt"

	"ipdrop/internal/config"

	"go.uber.org/zap"
)

// New creates the store selected by cfg.Driver
func New(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "registry":
		s, err := NewRegistryStore()
		if err != nil {
			return nil, fmt.Errorf("failed to open registry store: %w", err)
		}
		return s, nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		s, err := NewSQLiteStore(ctx, cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("Opened settings database", zap.String("path", cfg.Path))
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

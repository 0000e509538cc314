package service

import (
	"context"
	"fmt"

	repository "github.com/okian/groove/internal/adapters/repository"
	"github.com/okian/groove/internal/config"
	"github.com/okian/groove/pkg/logger"
)

// OpenStore builds the history store selected by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithHistoryLimit(cfg.HistoryLimit),
		repository.WithLogger(log),
	}
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return repository.NewTreapStore(opts...), nil
	case config.BackendSQLite:
		s, err := repository.OpenSQLite(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.BackendRedis:
		s, err := repository.DialRedis(ctx, cfg.RedisAddr, append(opts, repository.WithKeyPrefix(cfg.RedisPrefix))...)
		if err != nil {
			return nil, fmt.Errorf("dial redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
	}
}

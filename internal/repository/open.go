package repository

import (
	"context"
	"errors"
	"fmt"

	"onionsite/internal/config"
	"onionsite/internal/database"
	"onionsite/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Backend is the store selected by storage.driver together with the handles hosts need.
type Backend struct {
	Store domain.StateRepository
	DB    *database.DB
	Redis *redis.Client
}

// Open builds the configured store. Redis and SQLite fall back to memory when they fail.
func Open(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return &Backend{Store: NewMemoryStateRepository()}, nil

	case config.StorageRedis:
		client := NewRedisClient(cfg.Redis)
		if err := Ping(ctx, client); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, serving from memory until it recovers")
		}
		primary := NewRedisStateRepository(client, cfg.Redis.TTL)
		return &Backend{
			Store: NewFailoverStateRepository(primary, NewMemoryStateRepository(), logger),
			Redis: client,
		}, nil

	case config.StorageSQLite:
		db, err := database.NewDB(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &Backend{
			Store: NewFailoverStateRepository(db, NewMemoryStateRepository(), logger),
			DB:    db,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Ready pings the durable store behind the backend.
func (b *Backend) Ready(ctx context.Context) error {
	switch {
	case b.Redis != nil:
		return Ping(ctx, b.Redis)
	case b.DB != nil:
		return b.DB.PingContext(ctx)
	default:
		return nil
	}
}

func (b *Backend) Close() error {
	var errs []error
	if b.Redis != nil {
		errs = append(errs, Close(b.Redis))
	}
	if b.DB != nil {
		errs = append(errs, b.DB.Close())
	}
	return errors.Join(errs...)
}

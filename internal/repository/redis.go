package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onionsite/internal/config"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "site_state:"

var ErrNilClient = errors.New("redis client is nil")

type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// NewRedisStateRepository stores values without expiry when ttl is zero.
func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if r.client == nil {
		return "", false, ErrNilClient
	}
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisStateRepository) Set(ctx context.Context, key, value string) error {
	if r.client == nil {
		return ErrNilClient
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

// SetMany writes all entries in one MULTI/EXEC transaction.
func (r *RedisStateRepository) SetMany(ctx context.Context, entries map[string]string) error {
	if r.client == nil {
		return ErrNilClient
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, redisKeyPrefix+k, v, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set %d keys in redis: %w", len(entries), err)
	}
	return nil
}

func (r *RedisStateRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil {
		return ErrNilClient
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = redisKeyPrefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys from redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, ErrNilClient
	}
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	key := fmt.Sprintf("rate_limit:%s", clientID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return ErrNilClient
	}
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

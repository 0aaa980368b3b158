package repository

import (
	"context"
	"testing"
	"time"

	"onionsite/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	repo := NewRedisStateRepository(client, 0)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "client:1:disclaimer_accepted", "true"))

		got, ok, err := repo.Get(ctx, "client:1:disclaimer_accepted")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "true", got)

		raw, err := s.Get("site_state:client:1:disclaimer_accepted")
		require.NoError(t, err)
		assert.Equal(t, "true", raw)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		_, ok, err := repo.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetManyIsTransactional", func(t *testing.T) {
		err := repo.SetMany(ctx, map[string]string{
			"cookie_consent":     `{"status":"accepted"}`,
			"cookie_preferences": `{"essential":true}`,
		})
		require.NoError(t, err)
		assert.True(t, s.Exists("site_state:cookie_consent"))
		assert.True(t, s.Exists("site_state:cookie_preferences"))
	})

	t.Run("TTL", func(t *testing.T) {
		ttlRepo := NewRedisStateRepository(client, time.Hour)
		require.NoError(t, ttlRepo.Set(ctx, "ttl_key", "v"))
		assert.Equal(t, time.Hour, s.TTL("site_state:ttl_key"))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "gone", "x"))
		require.NoError(t, repo.Delete(ctx, "gone"))
		_, ok, _ := repo.Get(ctx, "gone")
		assert.False(t, ok)
		assert.NoError(t, repo.Delete(ctx))
	})

	t.Run("RateLimit", func(t *testing.T) {
		clientID := "789"
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, clientID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, clientID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, clientID, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, clientID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("ServerDown", func(t *testing.T) {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
		defer down.Close()
		_, _, err := NewRedisStateRepository(down, 0).Get(ctx, "k")
		assert.Error(t, err)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisStateRepository(nil, 0)
		_, _, err := repo.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNilClient)
		assert.ErrorIs(t, repo.SetMany(ctx, map[string]string{"a": "b"}), ErrNilClient)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
		assert.ErrorIs(t, Ping(ctx, nil), ErrNilClient)
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(client))
		assert.NoError(t, Close(nil))
	})
}

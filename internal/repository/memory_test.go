package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateRepository(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "k", "v"))

		got, ok, err := repo.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, ok, err := repo.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, got)
	})

	t.Run("SetMany", func(t *testing.T) {
		require.NoError(t, repo.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
		a, _, _ := repo.Get(ctx, "a")
		b, _, _ := repo.Get(ctx, "b")
		assert.Equal(t, "1", a)
		assert.Equal(t, "2", b)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "a", "b", "never-set"))
		_, ok, _ := repo.Get(ctx, "a")
		assert.False(t, ok)
	})

	t.Run("RateLimit", func(t *testing.T) {
		clientID := "456"
		allowed, _ := repo.CheckRateLimit(ctx, clientID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, clientID, 2, time.Second)
		assert.True(t, allowed)
		allowed, _ = repo.CheckRateLimit(ctx, clientID, 2, time.Second)
		assert.False(t, allowed)

		// One token refills every window/limit
		time.Sleep(600 * time.Millisecond)
		allowed, _ = repo.CheckRateLimit(ctx, clientID, 2, time.Second)
		assert.True(t, allowed)
	})

	t.Run("RateLimitDisabled", func(t *testing.T) {
		allowed, err := repo.CheckRateLimit(ctx, "789", 0, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

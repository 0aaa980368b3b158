package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "site.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "site.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.Equal(t, dbPath, db.Path())
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestDB_KeyValue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, ok, err := db.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		require.NoError(t, db.Set(ctx, "k", "v1"))
		require.NoError(t, db.Set(ctx, "k", "v2"))
		val, ok, err := db.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v2", val)
	})

	t.Run("SetMany", func(t *testing.T) {
		require.NoError(t, db.SetMany(ctx, map[string]string{
			"cookie_consent":     `{"status":"accepted"}`,
			"cookie_preferences": `{"essential":true}`,
		}))
		a, _, _ := db.Get(ctx, "cookie_consent")
		b, _, _ := db.Get(ctx, "cookie_preferences")
		assert.Equal(t, `{"status":"accepted"}`, a)
		assert.Equal(t, `{"essential":true}`, b)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.Delete(ctx, "k", "cookie_consent"))
		_, ok, _ := db.Get(ctx, "k")
		assert.False(t, ok)
		_, ok, _ = db.Get(ctx, "cookie_preferences")
		assert.True(t, ok)
		assert.NoError(t, db.Delete(ctx))
	})

	t.Run("ClosedDB", func(t *testing.T) {
		closed := setupTestDB(t)
		require.NoError(t, closed.Close())
		_, _, err := closed.Get(ctx, "k")
		assert.Error(t, err)
		assert.Error(t, closed.Set(ctx, "k", "v"))
	})
}

func TestDB_CheckRateLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	allowed, err := db.CheckRateLimit(ctx, "1", 2, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _ = db.CheckRateLimit(ctx, "1", 2, time.Hour)
	assert.True(t, allowed)
	allowed, _ = db.CheckRateLimit(ctx, "1", 2, time.Hour)
	assert.False(t, allowed)

	allowed, _ = db.CheckRateLimit(ctx, "2", 2, time.Hour)
	assert.True(t, allowed, "limits are per client")

	allowed, _ = db.CheckRateLimit(ctx, "3", 1, 50*time.Millisecond)
	assert.True(t, allowed)
	time.Sleep(100 * time.Millisecond)
	allowed, _ = db.CheckRateLimit(ctx, "3", 1, 50*time.Millisecond)
	assert.True(t, allowed, "window expired")
}

func TestDB_ConcurrentWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, db.SetMany(ctx, map[string]string{"a": "1", "b": "1"}))
		}()
	}
	wg.Wait()

	a, _, _ := db.Get(ctx, "a")
	assert.Equal(t, "1", a)
}

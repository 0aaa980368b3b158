package service

import (
	"context"
	"testing"

	"onionsite/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferenceStore(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("DisabledByDefault", func(t *testing.T) {
		store := newFlakyStore()
		prefs := NewPreferenceStore(store, &logger)
		assert.Equal(t, models.CategoryPreferences, prefs.Category())

		kept, err := prefs.Remember(ctx, "theme", "dark")
		require.NoError(t, err)
		assert.False(t, kept)
		_, ok, _ := store.Get(ctx, "pref:theme")
		assert.False(t, ok)
	})

	t.Run("RememberWhileEnabled", func(t *testing.T) {
		store := newFlakyStore()
		prefs := NewPreferenceStore(store, &logger)
		require.NoError(t, prefs.Apply(ctx, true))

		kept, err := prefs.Remember(ctx, "theme", "dark")
		require.NoError(t, err)
		assert.True(t, kept)

		val, ok := prefs.Recall(ctx, "theme")
		assert.True(t, ok)
		assert.Equal(t, "dark", val)
	})

	t.Run("DisableClearsKnownKeys", func(t *testing.T) {
		store := newFlakyStore()
		require.NoError(t, store.Set(ctx, "pref:language", "de"))
		require.NoError(t, store.Set(ctx, models.KeyCookieConsent, "{}"))

		prefs := NewPreferenceStore(store, &logger, "language")
		require.NoError(t, prefs.Apply(ctx, true))
		_, err := prefs.Remember(ctx, "theme", "dark")
		require.NoError(t, err)

		require.NoError(t, prefs.Apply(ctx, false))
		_, ok, _ := store.Get(ctx, "pref:language")
		assert.False(t, ok)
		_, ok, _ = store.Get(ctx, "pref:theme")
		assert.False(t, ok)
		_, ok, _ = store.Get(ctx, models.KeyCookieConsent)
		assert.True(t, ok, "essential data is kept")

		_, ok = prefs.Recall(ctx, "theme")
		assert.False(t, ok)
	})

	t.Run("WriteFailure", func(t *testing.T) {
		store := newFlakyStore()
		prefs := NewPreferenceStore(store, &logger)
		require.NoError(t, prefs.Apply(ctx, true))
		store.fail(false, true)

		kept, err := prefs.Remember(ctx, "theme", "dark")
		assert.Error(t, err)
		assert.False(t, kept)
	})
}

func TestLogToggle(t *testing.T) {
	logger := zerolog.Nop()
	toggle := NewLogToggle(models.CategoryAnalytics, &logger)
	assert.Equal(t, models.CategoryAnalytics, toggle.Category())
	assert.NoError(t, toggle.Apply(context.Background(), true))
}

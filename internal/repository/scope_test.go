package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedStore(t *testing.T) {
	shared := NewMemoryStateRepository()
	alice := Scope(shared, "alice")
	bob := Scope(shared, "bob")
	ctx := context.Background()

	require.NoError(t, alice.Set(ctx, "disclaimer_accepted", "true"))
	require.NoError(t, bob.SetMany(ctx, map[string]string{"cookie_consent": "{}"}))

	_, ok, _ := bob.Get(ctx, "disclaimer_accepted")
	assert.False(t, ok, "clients must not see each other's keys")

	raw, ok, _ := shared.Get(ctx, "client:alice:disclaimer_accepted")
	assert.True(t, ok)
	assert.Equal(t, "true", raw)

	_, ok, _ = shared.Get(ctx, "client:bob:cookie_consent")
	assert.True(t, ok)

	require.NoError(t, alice.Delete(ctx, "disclaimer_accepted"))
	_, ok, _ = shared.Get(ctx, "client:alice:disclaimer_accepted")
	assert.False(t, ok)
}

package repository

import (
	"context"

	"onionsite/internal/domain"
)

// ScopedStore confines a shared store to the keys of one client.
type ScopedStore struct {
	store  domain.KVStore
	prefix string
}

// Scope returns a view of store where every key lives under client:<clientID>:.
func Scope(store domain.KVStore, clientID string) *ScopedStore {
	return &ScopedStore{store: store, prefix: "client:" + clientID + ":"}
}

func (s *ScopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *ScopedStore) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.prefix+key, value)
}

func (s *ScopedStore) SetMany(ctx context.Context, entries map[string]string) error {
	scoped := make(map[string]string, len(entries))
	for k, v := range entries {
		scoped[s.prefix+k] = v
	}
	return s.store.SetMany(ctx, scoped)
}

func (s *ScopedStore) Delete(ctx context.Context, keys ...string) error {
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = s.prefix + k
	}
	return s.store.Delete(ctx, scoped...)
}

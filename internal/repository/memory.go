package repository

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryStateRepository keeps client records in process memory.
// It is the fallback when the primary store is unreachable.
type MemoryStateRepository struct {
	mu         sync.RWMutex
	values     map[string]string
	rateLimits sync.Map // map[string]*rate.Limiter
}

func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{
		values: make(map[string]string),
	}
}

func (r *MemoryStateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.values[key]
	return val, ok, nil
}

func (r *MemoryStateRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.values[key] = value
	r.mu.Unlock()
	return nil
}

func (r *MemoryStateRepository) SetMany(ctx context.Context, entries map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range entries {
		r.values[k] = v
	}
	return nil
}

func (r *MemoryStateRepository) Delete(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.values, k)
	}
	return nil
}

// CheckRateLimit allows limit events per window with a token bucket per client.
func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	return r.limiter(clientID, limit, window).Allow(), nil
}

func (r *MemoryStateRepository) limiter(clientID string, limit int, window time.Duration) *rate.Limiter {
	if v, ok := r.rateLimits.Load(clientID); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
	actual, _ := r.rateLimits.LoadOrStore(clientID, lim)
	return actual.(*rate.Limiter)
}

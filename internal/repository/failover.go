package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"onionsite/internal/domain"
	"onionsite/internal/metrics"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStateRepository serves from primary until it fails, then from fallback.
// The primary is probed again once recoveryInterval has passed. Keys written to
// the fallback meanwhile are replayed onto the primary before it serves again.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time

	pendingMu sync.Mutex
	pending   map[string]bool // key -> written (false: deleted)
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to the primary store.
func (r *FailoverStateRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastCheck) > recoveryInterval
}

// primaryReady reports whether op may go to the primary, replaying outage writes first.
func (r *FailoverStateRepository) primaryReady(ctx context.Context, op string) bool {
	if !r.usePrimary() {
		return false
	}
	if err := r.replay(ctx); err != nil {
		r.markDown(op, err)
		return false
	}
	return true
}

func (r *FailoverStateRepository) remember(written bool, keys ...string) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	if r.pending == nil {
		r.pending = make(map[string]bool, len(keys))
	}
	for _, key := range keys {
		r.pending[key] = written
	}
}

// replay copies the fallback state of every key touched during the outage to the primary.
func (r *FailoverStateRepository) replay(ctx context.Context) error {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	if len(r.pending) == 0 {
		return nil
	}

	entries := make(map[string]string, len(r.pending))
	var deleted []string
	for key, written := range r.pending {
		if !written {
			deleted = append(deleted, key)
			continue
		}
		val, ok, err := r.fallback.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			entries[key] = val
		} else {
			deleted = append(deleted, key)
		}
	}

	if len(entries) > 0 {
		if err := r.primary.SetMany(ctx, entries); err != nil {
			return err
		}
	}
	if len(deleted) > 0 {
		sort.Strings(deleted)
		if err := r.primary.Delete(ctx, deleted...); err != nil {
			return err
		}
	}

	r.logger.Info().Int("keys", len(r.pending)).Msg("Outage writes replayed to primary state repository")
	r.pending = nil
	return nil
}

func (r *FailoverStateRepository) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Primary state repository failed, falling back")
		metrics.IncStoreFailover(op)
	}
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

func (r *FailoverStateRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary state repository recovered")
	}
}

func (r *FailoverStateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if r.primaryReady(ctx, "get") {
		val, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			r.markUp()
			return val, ok, nil
		}
		r.markDown("get", err)
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverStateRepository) Set(ctx context.Context, key, value string) error {
	if r.primaryReady(ctx, "set") {
		err := r.primary.Set(ctx, key, value)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("set", err)
	}
	if err := r.fallback.Set(ctx, key, value); err != nil {
		return err
	}
	r.remember(true, key)
	return nil
}

func (r *FailoverStateRepository) SetMany(ctx context.Context, entries map[string]string) error {
	if r.primaryReady(ctx, "set_many") {
		err := r.primary.SetMany(ctx, entries)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("set_many", err)
	}
	if err := r.fallback.SetMany(ctx, entries); err != nil {
		return err
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	r.remember(true, keys...)
	return nil
}

func (r *FailoverStateRepository) Delete(ctx context.Context, keys ...string) error {
	if r.primaryReady(ctx, "delete") {
		err := r.primary.Delete(ctx, keys...)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown("delete", err)
	}
	if err := r.fallback.Delete(ctx, keys...); err != nil {
		return err
	}
	r.remember(false, keys...)
	return nil
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, clientID, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown("rate_limit", err)
	}
	return r.fallback.CheckRateLimit(ctx, clientID, limit, window)
}

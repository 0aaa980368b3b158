package service

import (
	"context"
	"fmt"
	"sync"

	"onionsite/internal/domain"
	"onionsite/internal/models"

	"github.com/rs/zerolog"
)

// PreferenceStore keeps non-essential user preferences under pref:<name>.
// It only reads and writes while the preferences category is enabled;
// disabling it clears everything it knows about.
type PreferenceStore struct {
	store  domain.KVStore
	logger *zerolog.Logger

	mu      sync.Mutex
	enabled bool
	names   map[string]struct{}
}

var _ domain.PreferenceToggle = (*PreferenceStore)(nil)

func NewPreferenceStore(store domain.KVStore, logger *zerolog.Logger, names ...string) *PreferenceStore {
	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		known[n] = struct{}{}
	}
	return &PreferenceStore{store: store, logger: logger, names: known}
}

func (p *PreferenceStore) Category() models.CategoryID {
	return models.CategoryPreferences
}

func (p *PreferenceStore) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *PreferenceStore) Apply(ctx context.Context, enabled bool) error {
	p.mu.Lock()
	p.enabled = enabled
	keys := make([]string, 0, len(p.names))
	for n := range p.names {
		keys = append(keys, models.PreferenceKeyPrefix+n)
	}
	p.mu.Unlock()

	if enabled || len(keys) == 0 {
		return nil
	}
	if err := p.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	p.logger.Debug().Int("keys", len(keys)).Msg("Preference data cleared")
	return nil
}

// Remember stores value and reports whether it was kept.
func (p *PreferenceStore) Remember(ctx context.Context, name, value string) (bool, error) {
	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return false, nil
	}
	p.names[name] = struct{}{}
	p.mu.Unlock()

	if err := p.store.Set(ctx, models.PreferenceKeyPrefix+name, value); err != nil {
		return false, fmt.Errorf("remember %s: %w", name, err)
	}
	return true, nil
}

// Recall returns a stored preference; nothing is returned while disabled.
func (p *PreferenceStore) Recall(ctx context.Context, name string) (string, bool) {
	if !p.Enabled() {
		return "", false
	}
	val, ok, err := p.store.Get(ctx, models.PreferenceKeyPrefix+name)
	if err != nil {
		p.logger.Warn().Err(err).Str("name", name).Msg("Failed to recall preference")
		return "", false
	}
	return val, ok
}

// LogToggle logs the effective state of one category.
type LogToggle struct {
	category models.CategoryID
	logger   *zerolog.Logger
}

func NewLogToggle(category models.CategoryID, logger *zerolog.Logger) *LogToggle {
	return &LogToggle{category: category, logger: logger}
}

func (t *LogToggle) Category() models.CategoryID {
	return t.category
}

func (t *LogToggle) Apply(_ context.Context, enabled bool) error {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	t.logger.Info().Str("category", string(t.category)).Msgf("%s cookies %s", t.category, state)
	return nil
}

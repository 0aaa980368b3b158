package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"onionsite/internal/domain"
	"onionsite/internal/metrics"
	"onionsite/internal/models"

	"github.com/rs/zerolog"
)

// GateChecker reports whether consent may be written.
type GateChecker interface {
	IsAccepted(ctx context.Context) bool
}

// ConsentService keeps the cookie consent record of one client and fans
// the effective categories out to the registered toggles.
type ConsentService struct {
	store   domain.KVStore
	gate    GateChecker
	logger  *zerolog.Logger
	now     func() time.Time
	toggles []domain.PreferenceToggle

	mu   sync.Mutex
	memo *models.ConsentRecord
}

var _ domain.ConsentManager = (*ConsentService)(nil)

func NewConsentService(store domain.KVStore, gate GateChecker, logger *zerolog.Logger, toggles ...domain.PreferenceToggle) *ConsentService {
	return &ConsentService{
		store:   store,
		gate:    gate,
		logger:  logger,
		now:     time.Now,
		toggles: toggles,
	}
}

func (s *ConsentService) WithClock(now func() time.Time) *ConsentService {
	s.now = now
	return s
}

// RegisterToggle adds a toggle to the ApplyPreferences fan-out.
func (s *ConsentService) RegisterToggle(t domain.PreferenceToggle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = append(s.toggles, t)
}

func unsetRecord() models.ConsentRecord {
	return models.ConsentRecord{Categories: models.DefaultCategories()}
}

// GetStatus returns the saved record, or an unset record with default categories
// when nothing usable is stored.
func (s *ConsentService) GetStatus(ctx context.Context) models.ConsentRecord {
	s.mu.Lock()
	memo := s.memo
	s.mu.Unlock()
	if memo != nil {
		return *memo
	}

	raw, ok, err := s.store.Get(ctx, models.KeyCookieConsent)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read consent record, treating as unset")
		return unsetRecord()
	}
	if !ok {
		return unsetRecord()
	}

	var rec models.ConsentRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.logger.Warn().Err(fmt.Errorf("%w: %v", ErrMalformedRecord, err)).Msg("Ignoring stored consent record")
		return unsetRecord()
	}
	return rec
}

func (s *ConsentService) GetCategories(ctx context.Context) models.Categories {
	return s.GetStatus(ctx).Categories
}

func (s *ConsentService) AcceptAll(ctx context.Context) (models.ConsentRecord, error) {
	return s.save(ctx, models.ConsentAccepted, models.Categories{
		Essential:   true,
		Analytics:   true,
		Preferences: true,
	})
}

func (s *ConsentService) RejectAll(ctx context.Context) (models.ConsentRecord, error) {
	return s.save(ctx, models.ConsentRejected, models.DefaultCategories())
}

// SaveCustom stores the given selections over the defaults.
// Required categories cannot be switched off and unknown ids are ignored.
func (s *ConsentService) SaveCustom(ctx context.Context, selections map[models.CategoryID]bool) (models.ConsentRecord, error) {
	cats := models.DefaultCategories()
	for id, enabled := range selections {
		def, ok := models.LookupCategory(id)
		if !ok {
			s.logger.Debug().Str("category", string(id)).Msg("Ignoring unknown consent category")
			continue
		}
		if def.Required {
			continue
		}
		cats.Set(id, enabled)
	}
	return s.save(ctx, models.ConsentCustomized, cats)
}

func (s *ConsentService) save(ctx context.Context, status models.ConsentStatus, cats models.Categories) (models.ConsentRecord, error) {
	if !s.gate.IsAccepted(ctx) {
		return s.GetStatus(ctx), ErrGateClosed
	}

	rec := models.ConsentRecord{
		Status:     status,
		Categories: cats.Normalize(),
		Timestamp:  s.now().UTC().Truncate(time.Millisecond),
	}

	consentJSON, err := json.Marshal(rec)
	if err != nil {
		return s.GetStatus(ctx), fmt.Errorf("encode consent: %w", err)
	}
	prefsJSON, err := json.Marshal(rec.Categories)
	if err != nil {
		return s.GetStatus(ctx), fmt.Errorf("encode preferences: %w", err)
	}

	err = s.store.SetMany(ctx, map[string]string{
		models.KeyCookieConsent:     string(consentJSON),
		models.KeyCookiePreferences: string(prefsJSON),
	})

	s.mu.Lock()
	s.memo = &rec
	s.mu.Unlock()
	metrics.IncConsent(status.String())

	if err != nil {
		s.logger.Error().Err(err).Str("status", status.String()).Msg("Failed to persist consent, keeping it for this session only")
		return rec, fmt.Errorf("save consent: %w: %w", ErrPersistenceUnavailable, err)
	}

	s.logger.Info().
		Str("status", status.String()).
		Bool("analytics", rec.Categories.Analytics).
		Bool("preferences", rec.Categories.Preferences).
		Msg("Consent saved")
	return rec, nil
}

// ApplyPreferences switches every registered toggle to the state the record allows.
// A failing or panicking toggle never stops the others.
func (s *ConsentService) ApplyPreferences(ctx context.Context, record models.ConsentRecord) {
	cats := models.DefaultCategories()
	if record.IsSet() {
		cats = record.Categories.Normalize()
	}

	s.mu.Lock()
	toggles := append([]domain.PreferenceToggle(nil), s.toggles...)
	s.mu.Unlock()

	for _, t := range toggles {
		s.applyToggle(ctx, t, cats.Enabled(t.Category()))
	}
}

func (s *ConsentService) applyToggle(ctx context.Context, t domain.PreferenceToggle, enabled bool) {
	category := string(t.Category())
	defer func() {
		if r := recover(); r != nil {
			metrics.IncToggleFailure(category)
			s.logger.Error().Interface("panic", r).Str("category", category).Msg("Preference toggle panicked")
		}
	}()

	if err := t.Apply(ctx, enabled); err != nil {
		metrics.IncToggleFailure(category)
		s.logger.Error().Err(err).Str("category", category).Bool("enabled", enabled).Msg("Failed to apply preference")
	}
}

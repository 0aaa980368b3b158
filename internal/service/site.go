package service

import (
	"context"
	"errors"
	"time"

	"onionsite/internal/config"
	"onionsite/internal/domain"
	"onionsite/internal/events"
	"onionsite/internal/logging"
	"onionsite/internal/models"
	"onionsite/internal/repository"

	"github.com/rs/zerolog"
)

// PreferenceLanguage is the preference the hosts remember for returning visitors.
const PreferenceLanguage = "language"

// SiteFactory builds per-client Site instances over one shared store.
type SiteFactory struct {
	store  domain.KVStore
	cfg    config.SiteConfig
	bus    domain.EventPublisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewSiteFactory(store domain.KVStore, cfg config.SiteConfig, bus domain.EventPublisher, logger *zerolog.Logger) *SiteFactory {
	return &SiteFactory{
		store:  store,
		cfg:    cfg,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

func (f *SiteFactory) WithClock(now func() time.Time) *SiteFactory {
	f.now = now
	return f
}

// For returns the Site of clientID. Extra toggles join the consent fan-out.
func (f *SiteFactory) For(clientID string, toggles ...domain.PreferenceToggle) *Site {
	store := repository.Scope(f.store, clientID)
	logger := f.logger.With().Str("client_id", clientID).Logger()
	log := &logger

	gate := NewDisclaimerService(store, f.cfg.RejectURL, logging.Component(log, "disclaimer")).WithClock(f.now)
	prefs := NewPreferenceStore(store, logging.Component(log, "preferences"), PreferenceLanguage)

	all := make([]domain.PreferenceToggle, 0, len(models.CategoryDefinitions)+1+len(toggles))
	for _, def := range models.CategoryDefinitions {
		all = append(all, NewLogToggle(def.ID, log))
	}
	all = append(all, prefs)
	all = append(all, toggles...)

	consent := NewConsentService(store, gate, logging.Component(log, "consent"), all...).WithClock(f.now)

	return &Site{
		clientID: clientID,
		gate:     gate,
		consent:  consent,
		prefs:    prefs,
		shell:    NewPresentationShell(f.cfg.BannerDelay),
		bus:      f.bus,
		logger:   log,
	}
}

// Site is the command interface of one client: every host event goes through it.
type Site struct {
	clientID string
	gate     *DisclaimerService
	consent  *ConsentService
	prefs    *PreferenceStore
	shell    PresentationShell
	bus      domain.EventPublisher
	logger   *zerolog.Logger
}

func (s *Site) ClientID() string               { return s.clientID }
func (s *Site) Disclaimer() *DisclaimerService { return s.gate }
func (s *Site) Consent() *ConsentService       { return s.consent }
func (s *Site) Preferences() *PreferenceStore  { return s.prefs }
func (s *Site) Shell() PresentationShell       { return s.shell }

// Initialize returns the first view and applies saved preferences once.
func (s *Site) Initialize(ctx context.Context) models.View {
	open := s.gate.IsAccepted(ctx)
	status := models.ConsentUnset
	if open {
		rec := s.consent.GetStatus(ctx)
		status = rec.Status
		if rec.IsSet() {
			s.consent.ApplyPreferences(ctx, rec)
		}
	}
	return s.shell.Present(open, status)
}

// View is the current surface without side effects.
func (s *Site) View(ctx context.Context) models.View {
	open := s.gate.IsAccepted(ctx)
	if !open {
		return s.shell.Present(false, models.ConsentUnset)
	}
	return s.shell.Present(true, s.consent.GetStatus(ctx).Status)
}

func (s *Site) AcceptDisclaimer(ctx context.Context, checked bool) (models.View, error) {
	wasOpen := s.gate.IsAccepted(ctx)
	rec, err := s.gate.RequestAcceptance(ctx, checked)
	if errors.Is(err, ErrNotConfirmed) {
		return s.View(ctx), err
	}

	if !wasOpen {
		s.publish(events.EventDisclaimerAccepted, events.DisclaimerEventPayload{
			ClientID:   s.clientID,
			AcceptedAt: rec.AcceptedAt,
			Persisted:  err == nil,
		})
	}
	return s.View(ctx), err
}

func (s *Site) RejectDisclaimer(prompter domain.Prompter) models.Rejection {
	return s.gate.Reject(prompter)
}

func (s *Site) AcceptAll(ctx context.Context) (models.ConsentRecord, models.View, error) {
	rec, err := s.consent.AcceptAll(ctx)
	return s.afterSave(ctx, rec, err)
}

func (s *Site) RejectAll(ctx context.Context) (models.ConsentRecord, models.View, error) {
	rec, err := s.consent.RejectAll(ctx)
	return s.afterSave(ctx, rec, err)
}

func (s *Site) SaveCustom(ctx context.Context, selections map[models.CategoryID]bool) (models.ConsentRecord, models.View, error) {
	rec, err := s.consent.SaveCustom(ctx, selections)
	return s.afterSave(ctx, rec, err)
}

func (s *Site) afterSave(ctx context.Context, rec models.ConsentRecord, err error) (models.ConsentRecord, models.View, error) {
	if errors.Is(err, ErrGateClosed) {
		return rec, s.View(ctx), err
	}

	s.consent.ApplyPreferences(ctx, rec)
	s.publish(events.EventConsentSaved, events.ConsentEventPayload{
		ClientID:    s.clientID,
		Status:      rec.Status.String(),
		Analytics:   rec.Categories.Analytics,
		Preferences: rec.Categories.Preferences,
		Timestamp:   rec.Timestamp,
		Persisted:   err == nil,
	})
	return rec, s.View(ctx), err
}

func (s *Site) publish(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"onionsite/internal/config"
	"onionsite/internal/events"
	"onionsite/internal/models"
	"onionsite/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestFactory(store *repository.MemoryStateRepository, bus *events.EventBus) *SiteFactory {
	logger := zerolog.Nop()
	cfg := config.Default().Site
	return NewSiteFactory(store, cfg, bus, &logger).
		WithClock(fixedClock(time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)))
}

func TestSite_Flow(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStateRepository()
	bus := events.NewEventBus()

	var received []string
	bus.Subscribe(events.EventDisclaimerAccepted, func(e *events.Event) error {
		received = append(received, e.Type)
		return nil
	})
	bus.Subscribe(events.EventConsentSaved, func(e *events.Event) error {
		var p events.ConsentEventPayload
		require.NoError(t, json.Unmarshal(e.Payload, &p))
		assert.Equal(t, "42", p.ClientID)
		assert.True(t, p.Persisted)
		received = append(received, e.Type+":"+p.Status)
		return nil
	})

	factory := newTestFactory(store, bus)
	site := factory.For("42")

	view := site.Initialize(ctx)
	assert.True(t, view.ShowsDisclaimer())

	_, _, err := site.AcceptAll(ctx)
	assert.ErrorIs(t, err, ErrGateClosed)

	view, err = site.AcceptDisclaimer(ctx, false)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.True(t, view.ShowsDisclaimer())

	view, err = site.AcceptDisclaimer(ctx, true)
	require.NoError(t, err)
	assert.True(t, view.ShowsBanner())
	assert.Equal(t, models.DefaultBannerDelay, view.BannerDelay)

	// already open: no second event
	_, err = site.AcceptDisclaimer(ctx, true)
	require.NoError(t, err)

	rec, view, err := site.SaveCustom(ctx, map[models.CategoryID]bool{models.CategoryPreferences: true})
	require.NoError(t, err)
	assert.Equal(t, models.ConsentCustomized, rec.Status)
	assert.Equal(t, models.SurfaceNone, view.Surface)
	assert.True(t, site.Preferences().Enabled())

	assert.Equal(t, []string{
		events.EventDisclaimerAccepted,
		events.EventConsentSaved + ":customized",
	}, received)

	// a new session of the same client sees the saved state
	again := factory.For("42")
	assert.Equal(t, models.SurfaceNone, again.Initialize(ctx).Surface)
	assert.True(t, again.Preferences().Enabled(), "Initialize applies saved preferences")

	// other clients are untouched
	assert.True(t, factory.For("43").Initialize(ctx).ShowsDisclaimer())
}

func TestSite_InitializeAppliesOnlySavedConsent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStateRepository()
	factory := newTestFactory(store, nil)

	toggle := &mockToggle{category: models.CategoryAnalytics}
	site := factory.For("1", toggle)
	site.Initialize(ctx)
	toggle.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)

	_, err := site.AcceptDisclaimer(ctx, true)
	require.NoError(t, err)
	site.Initialize(ctx)
	toggle.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)

	toggle.On("Apply", mock.Anything, true).Return(nil).Twice()
	_, _, err = site.AcceptAll(ctx)
	require.NoError(t, err)

	next := factory.For("1", toggle)
	next.Initialize(ctx)
	toggle.AssertExpectations(t)
}

func TestSite_RejectAllDisablesPreferences(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStateRepository()
	site := newTestFactory(store, nil).For("7")

	_, err := site.AcceptDisclaimer(ctx, true)
	require.NoError(t, err)
	_, _, err = site.AcceptAll(ctx)
	require.NoError(t, err)

	kept, err := site.Preferences().Remember(ctx, PreferenceLanguage, "en")
	require.NoError(t, err)
	assert.True(t, kept)

	rec, _, err := site.RejectAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentRejected, rec.Status)

	_, ok, _ := store.Get(ctx, "client:7:pref:language")
	assert.False(t, ok)
}

func TestSite_RejectDisclaimer(t *testing.T) {
	site := newTestFactory(repository.NewMemoryStateRepository(), nil).For("9")
	rej := site.RejectDisclaimer(answer(true))
	assert.True(t, rej.Leave)
	assert.Equal(t, models.DefaultRejectURL, rej.RedirectURL)
	assert.True(t, site.View(context.Background()).ShowsDisclaimer())
}

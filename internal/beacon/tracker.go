package beacon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"onionsite/internal/domain"
	"onionsite/internal/models"

	"github.com/rs/zerolog"
)

// Tracker is the analytics toggle of one visitor: visits go out only while
// the analytics category is enabled.
type Tracker struct {
	sender    *Sender
	session   domain.KVStore
	loadDelay time.Duration
	logger    *zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	enabled bool
}

var _ domain.PreferenceToggle = (*Tracker)(nil)

// NewTracker binds a shared sender to the session store of one visitor.
// session must live no longer than the visit session: the id kept there is never rotated.
func NewTracker(sender *Sender, session domain.KVStore, loadDelay time.Duration, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		sender:    sender,
		session:   session,
		loadDelay: loadDelay,
		logger:    logger,
		now:       time.Now,
	}
}

func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Category() models.CategoryID {
	return models.CategoryAnalytics
}

// Apply switches tracking. Disabling also forgets the session id.
func (t *Tracker) Apply(ctx context.Context, enabled bool) error {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()

	if enabled {
		return nil
	}
	if err := t.session.Delete(ctx, models.KeyVisitorSessionID); err != nil {
		return fmt.Errorf("forget session id: %w", err)
	}
	return nil
}

func (t *Tracker) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// TrackPageView schedules a page view after the load delay and reports whether it was scheduled.
// Consent withdrawn during the delay cancels it.
func (t *Tracker) TrackPageView(ctx context.Context, info models.ClientInfo) bool {
	if !t.Enabled() {
		return false
	}
	t.sender.Dispatch(ctx, t.loadDelay, func() (models.Visit, bool) {
		if !t.Enabled() {
			return models.Visit{}, false
		}
		return t.collect(ctx, info), true
	})
	return true
}

// TrackUnload sends the page_unload visit immediately.
func (t *Tracker) TrackUnload(ctx context.Context, info models.ClientInfo) bool {
	if !t.Enabled() {
		return false
	}
	visit := t.collect(ctx, info)
	visit.Event = models.EventPageUnload
	t.sender.Send(ctx, visit)
	return true
}

func (t *Tracker) collect(ctx context.Context, info models.ClientInfo) models.Visit {
	now := t.now()
	sessionID, err := SessionID(context.WithoutCancel(ctx), t.session, now)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Session id not persisted")
	}
	return Collect(info, sessionID, now)
}

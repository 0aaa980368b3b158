package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"onionsite/internal/domain"
	"onionsite/internal/metrics"
	"onionsite/internal/models"

	"github.com/rs/zerolog"
)

// DisclaimerService is the disclaimer gate of one client.
// The gate is Open once an accepted record exists; nothing closes it again.
type DisclaimerService struct {
	store     domain.KVStore
	logger    *zerolog.Logger
	rejectURL string
	now       func() time.Time

	mu   sync.Mutex
	memo *models.DisclaimerRecord
}

var _ domain.DisclaimerGate = (*DisclaimerService)(nil)

func NewDisclaimerService(store domain.KVStore, rejectURL string, logger *zerolog.Logger) *DisclaimerService {
	if rejectURL == "" {
		rejectURL = models.DefaultRejectURL
	}
	return &DisclaimerService{
		store:     store,
		logger:    logger,
		rejectURL: rejectURL,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for acceptedAt.
func (s *DisclaimerService) WithClock(now func() time.Time) *DisclaimerService {
	s.now = now
	return s
}

func (s *DisclaimerService) IsAccepted(ctx context.Context) bool {
	return s.Record(ctx).Accepted
}

// Record returns the effective record. Any store failure reads as not accepted.
func (s *DisclaimerService) Record(ctx context.Context) models.DisclaimerRecord {
	s.mu.Lock()
	memo := s.memo
	s.mu.Unlock()
	if memo != nil {
		return *memo
	}

	flag, ok, err := s.store.Get(ctx, models.KeyDisclaimerAccepted)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read disclaimer flag, keeping gate closed")
		return models.DisclaimerRecord{}
	}
	if !ok || flag != "true" {
		return models.DisclaimerRecord{}
	}

	rec := models.DisclaimerRecord{Accepted: true}
	raw, ok, err := s.store.Get(ctx, models.KeyDisclaimerTimestamp)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Msg("Failed to read disclaimer timestamp")
	case !ok:
		s.logger.Debug().Msg("Disclaimer accepted without timestamp")
	default:
		ts, perr := time.Parse(time.RFC3339Nano, raw)
		if perr != nil {
			s.logger.Warn().Err(fmt.Errorf("%w: %v", ErrMalformedRecord, perr)).Str("value", raw).Msg("Ignoring disclaimer timestamp")
			break
		}
		rec.AcceptedAt = ts
	}
	return rec
}

// RequestAcceptance opens the gate when checked is true.
// An already accepted record is returned as is, so acceptedAt is never overwritten.
func (s *DisclaimerService) RequestAcceptance(ctx context.Context, checked bool) (models.DisclaimerRecord, error) {
	if !checked {
		metrics.IncDisclaimer("unconfirmed")
		return s.Record(ctx), ErrNotConfirmed
	}

	if existing := s.Record(ctx); existing.Accepted {
		return existing, nil
	}

	rec := models.DisclaimerRecord{
		Accepted:   true,
		AcceptedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	err := s.store.SetMany(ctx, map[string]string{
		models.KeyDisclaimerAccepted:  "true",
		models.KeyDisclaimerTimestamp: rec.AcceptedAt.Format(models.TimestampLayout),
	})

	s.mu.Lock()
	s.memo = &rec
	s.mu.Unlock()

	if err != nil {
		metrics.IncDisclaimer("accepted_unsaved")
		s.logger.Error().Err(err).Msg("Failed to persist disclaimer acceptance, gate open for this session only")
		return rec, fmt.Errorf("save disclaimer: %w: %w", ErrPersistenceUnavailable, err)
	}

	metrics.IncDisclaimer("accepted")
	s.logger.Info().Time("accepted_at", rec.AcceptedAt).Msg("Disclaimer accepted")
	return rec, nil
}

func (s *DisclaimerService) RejectPrompt() string {
	return models.DisclaimerRejectMessage
}

// Reject asks the user to confirm leaving. State is never changed.
func (s *DisclaimerService) Reject(prompter domain.Prompter) models.Rejection {
	msg := s.RejectPrompt()
	metrics.IncDisclaimer("rejected")

	if prompter == nil || !prompter.Confirm(msg) {
		return models.Rejection{Message: msg}
	}
	return models.Rejection{Message: msg, Leave: true, RedirectURL: s.rejectURL}
}

package beacon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"onionsite/internal/metrics"
	"onionsite/internal/models"

	"github.com/rs/zerolog"
)

// Sender posts visit descriptors in the background.
// Deliveries are fire-and-forget: no retry, the response is only logged.
type Sender struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
	logger   *zerolog.Logger

	// mu orders wg.Add against Close: no Add may follow the start of Wait.
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewSender(endpoint string, timeout time.Duration, logger *zerolog.Logger) *Sender {
	if timeout <= 0 {
		timeout = models.DefaultBeaconTimeout
	}
	return &Sender{
		client:   &http.Client{},
		endpoint: endpoint,
		timeout:  timeout,
		logger:   logger,
	}
}

func (s *Sender) Endpoint() string {
	return s.endpoint
}

// Send delivers visit in a detached goroutine.
func (s *Sender) Send(ctx context.Context, visit models.Visit) {
	s.Dispatch(ctx, 0, func() (models.Visit, bool) { return visit, true })
}

// Dispatch waits delay, builds the visit and delivers it. A build returning false cancels the delivery.
// The caller's cancellation does not stop a scheduled delivery.
func (s *Sender) Dispatch(ctx context.Context, delay time.Duration, build func() (models.Visit, bool)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug().Msg("Beacon sender closed, dropping visit")
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}
		visit, ok := build()
		if !ok {
			return
		}
		s.deliver(detached, visit)
	}()
}

func (s *Sender) deliver(ctx context.Context, visit models.Visit) {
	event := visit.Event
	if event == "" {
		event = models.EventPageView
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(visit)
	if err != nil {
		metrics.IncBeacon(event, "error")
		s.logger.Error().Err(err).Msg("Failed to encode visit")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.IncBeacon(event, "error")
		s.logger.Error().Err(err).Str("endpoint", s.endpoint).Msg("Failed to build beacon request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.IncBeacon(event, "error")
		s.logger.Warn().Err(err).Str("endpoint", s.endpoint).Str("event", event).Msg("Tracking error")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metrics.IncBeacon(event, "ok")
		s.logger.Debug().Str("event", event).Str("session_id", visit.SessionID).Msg("Tracking data sent")
		return
	}
	metrics.IncBeacon(event, "rejected")
	s.logger.Warn().Int("status", resp.StatusCode).Str("event", event).Msg("Tracking failed")
}

// Close stops accepting visits and waits for in-flight deliveries until ctx is done.
func (s *Sender) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

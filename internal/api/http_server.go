package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"onionsite/internal/models"
	"onionsite/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// HTTPServer exposes health probes, Prometheus metrics and a read-only view of client state.
type HTTPServer struct {
	sites   *service.SiteFactory
	checks  map[string]ReadinessCheck
	limiter *rateLimiter
	auth    *apiKeyAuth
	logger  *zerolog.Logger
	mux     *http.ServeMux
	server  *http.Server
}

func NewHTTPServer(port int, sites *service.SiteFactory, checks map[string]ReadinessCheck, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		sites:   sites,
		checks:  checks,
		limiter: newRateLimiter(defaultRPS, defaultBurst),
		logger:  logger,
	}

	srv.mux = http.NewServeMux()
	srv.mux.HandleFunc("GET /healthz", srv.handleHealthz)
	srv.mux.HandleFunc("GET /readyz", srv.handleReadyz)
	srv.mux.Handle("GET /metrics", promhttp.Handler())

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.loggingMiddleware(srv.mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type clientStateResponse struct {
	ClientID   string                  `json:"client_id"`
	Disclaimer models.DisclaimerRecord `json:"disclaimer"`
	Consent    *models.ConsentRecord   `json:"consent,omitempty"`
	Categories models.Categories       `json:"categories"`
	View       models.View             `json:"view"`
}

func (s *HTTPServer) handleClient(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.PathValue("id"))
	if clientID == "" || strings.ContainsAny(clientID, ":/") {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}

	site := s.sites.For(clientID)
	resp := clientStateResponse{
		ClientID:   clientID,
		Disclaimer: site.Disclaimer().Record(r.Context()),
		View:       site.View(r.Context()),
	}
	rec := site.Consent().GetStatus(r.Context())
	if rec.IsSet() {
		resp.Consent = &rec
	}
	resp.Categories = rec.Categories

	writeJSON(w, http.StatusOK, resp)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"onionsite/internal/config"
)

const apiKeyHeaderDefault = "X-API-Key"

var (
	errMissingAPIKey = errors.New("missing api key")
	errInvalidAPIKey = errors.New("invalid api key")
)

// apiKeyAuth guards client data routes. Without configured keys those routes are not served.
type apiKeyAuth struct {
	header string
	keys   [][]byte
}

func newAPIKeyAuth(cfg config.APIConfig) *apiKeyAuth {
	a := &apiKeyAuth{header: strings.TrimSpace(cfg.HeaderAPIKey)}
	if a.header == "" {
		a.header = apiKeyHeaderDefault
	}
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			a.keys = append(a.keys, []byte(k))
		}
	}
	return a
}

func (a *apiKeyAuth) enabled() bool {
	return a != nil && len(a.keys) > 0
}

func (a *apiKeyAuth) check(r *http.Request) error {
	key := strings.TrimSpace(r.Header.Get(a.header))
	if key == "" {
		return errMissingAPIKey
	}
	// сравниваем со всеми ключами, чтобы время ответа не зависело от позиции
	match := 0
	for _, k := range a.keys {
		match |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	if match != 1 {
		return errInvalidAPIKey
	}
	return nil
}

func (s *HTTPServer) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.check(r); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithAPIKeys serves the client data routes behind the keys from cfg.
// With no usable key the routes stay unregistered and answer 404.
func (s *HTTPServer) WithAPIKeys(cfg config.APIConfig) *HTTPServer {
	if s.auth != nil {
		return s
	}
	auth := newAPIKeyAuth(cfg)
	if !auth.enabled() {
		s.logger.Info().Msg("No API keys configured, client state route disabled")
		return s
	}
	s.auth = auth
	s.mux.Handle("GET /api/v1/clients/{id}", s.limiter.Wrap(s.requireAPIKey(http.HandlerFunc(s.handleClient))))
	return s
}

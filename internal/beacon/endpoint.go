package beacon

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"onionsite/internal/config"
	"onionsite/internal/models"
)

// Endpoint derives the tracking URL from the page the visitor is on.
// Local pages always report to localhost; everything else to the same host on port.
func Endpoint(pageURL string, port int) string {
	if port <= 0 {
		port = models.DefaultBeaconPort
	}

	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return fmt.Sprintf("http://localhost:%d/track", port)
	}

	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return fmt.Sprintf("http://localhost:%d/track", port)
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/track"
}

// ResolveEndpoint prefers the configured endpoint over the derived one.
func ResolveEndpoint(cfg config.BeaconConfig, pageURL string) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	return Endpoint(pageURL, cfg.Port)
}

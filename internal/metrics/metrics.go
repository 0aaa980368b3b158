package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "onionsite"

var (
	once sync.Once

	disclaimerDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disclaimer_decisions_total",
			Help:      "Disclaimer gate decisions by result.",
		},
		[]string{"result"},
	)

	consentDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consent_decisions_total",
			Help:      "Saved consent records by status.",
		},
		[]string{"status"},
	)

	toggleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preference_toggle_failures_total",
			Help:      "Preference toggles that failed to apply, by category.",
		},
		[]string{"category"},
	)

	storeFailovers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failovers_total",
			Help:      "Switches from the primary store to the fallback, by operation.",
		},
		[]string{"op"},
	)

	beaconSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beacon_sends_total",
			Help:      "Analytics beacon deliveries by event and result.",
		},
		[]string{"event", "result"},
	)

	redirects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_plans_total",
			Help:      "Outbound redirect plans by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			disclaimerDecisions,
			consentDecisions,
			toggleFailures,
			storeFailovers,
			beaconSends,
			redirects,
		)
	})
}

func IncDisclaimer(result string) {
	disclaimerDecisions.WithLabelValues(result).Inc()
}

func IncConsent(status string) {
	consentDecisions.WithLabelValues(status).Inc()
}

func IncToggleFailure(category string) {
	toggleFailures.WithLabelValues(category).Inc()
}

func IncStoreFailover(op string) {
	storeFailovers.WithLabelValues(op).Inc()
}

func IncBeacon(event, result string) {
	beaconSends.WithLabelValues(event, result).Inc()
}

func IncRedirect(kind string) {
	redirects.WithLabelValues(kind).Inc()
}

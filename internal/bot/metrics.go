package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	MessagesProcessed    prometheus.Counter
	CommandsProcessed    *prometheus.CounterVec
	CallbacksProcessed   *prometheus.CounterVec
	RateLimited          prometheus.Counter
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
}

// NewMetrics создает метрики бота в реестре reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_messages_processed_total",
			Help: "Total number of messages processed",
		}),
		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_commands_processed_total",
			Help: "Total number of commands processed",
		}, []string{"command"}),
		CallbacksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_callbacks_processed_total",
			Help: "Total number of inline keyboard callbacks processed",
		}, []string{"action"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_rate_limited_total",
			Help: "Updates dropped by the per-user rate limit",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_errors_total",
			Help: "Total number of errors while handling updates",
		}),
		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

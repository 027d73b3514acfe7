package resources

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts provider API calls and their latency.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "selfx_provider_requests_total",
				Help: "Total number of provider API requests.",
			},
			[]string{"provider", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "selfx_provider_request_duration_seconds",
				Help:    "Provider API request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "method", "status"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(provider, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, method, status).Inc()
	m.duration.WithLabelValues(provider, method, status).Observe(d.Seconds())
}

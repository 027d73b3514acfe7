package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation tracks one CLI command. Its ID tags every log line the command
// writes.
type Operation struct {
	ID      string
	Name    string
	Started time.Time
	Status  string // "success" or "error"
	Err     error
}

// NewOperation creates an operation started at now.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:      now.UTC().Format("20060102T150405Z"),
		Name:    name,
		Started: now,
		Status:  "success",
	}
}

// Fail marks the operation as failed. The first error is kept.
func (op *Operation) Fail(err error) {
	if op.Err == nil {
		op.Err = err
	}
	op.Status = "error"
}

// Finish returns how long the operation ran until now.
func (op *Operation) Finish(now time.Time) time.Duration {
	return now.Sub(op.Started)
}

type operationMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newOperationMetrics(reg prometheus.Registerer) *operationMetrics {
	m := &operationMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "selfx_operations_total",
				Help: "Total number of CLI operations.",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "selfx_operation_duration_seconds",
				Help:    "CLI operation durations in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.total, m.duration)
	return m
}

func (m *operationMetrics) observe(op *Operation, d time.Duration) {
	m.total.WithLabelValues(op.Name, op.Status).Inc()
	m.duration.WithLabelValues(op.Name).Observe(d.Seconds())
}

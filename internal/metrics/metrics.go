// Package metrics holds the Prometheus collectors of the service. All
// methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oncoai"

// Outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeFailed         = "failed"
	OutcomeUnauthorized   = "unauthorized"
	OutcomeConflict       = "conflict"
	OutcomeInfrastructure = "infrastructure"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	authAttempts *prometheus.CounterVec
	predictions  *prometheus.CounterVec
	modelLatency prometheus.Histogram
	batchRows    prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "predictions_total",
			Help:      "Scored feature vectors by mode and outcome.",
		}, []string{"mode", "outcome"}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "model_seconds",
			Help:      "Time spent inside the model per feature vector.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		batchRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "batch_rows",
			Help:      "Rows per accepted batch upload.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	m.registry.MustRegister(
		m.authAttempts,
		m.predictions,
		m.modelLatency,
		m.batchRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AuthAttempt counts one register, login, or resolve call.
func (m *Metrics) AuthAttempt(operation, outcome string) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// Prediction counts one scored (or rejected) feature vector.
func (m *Metrics) Prediction(mode, outcome string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(mode, outcome).Inc()
}

// ObserveModel records the duration of one model call.
func (m *Metrics) ObserveModel(d time.Duration) {
	if m == nil {
		return
	}
	m.modelLatency.Observe(d.Seconds())
}

// ObserveBatch records the row count of an accepted batch.
func (m *Metrics) ObserveBatch(rows int) {
	if m == nil {
		return
	}
	m.batchRows.Observe(float64(rows))
}

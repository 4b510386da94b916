// internal/telemetry/metrics.go
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "pricehawk"
	metricsSubsystem = "extractor"
)

// Metrics exposes extraction counters and timings to Prometheus.
type Metrics struct {
	attemptsTotal  *prometheus.CounterVec
	failuresTotal  *prometheus.CounterVec
	responseTime   *prometheus.HistogramVec
	cacheHitsTotal prometheus.Counter
	identityBurns  prometheus.Counter
}

// NewMetrics registers the extraction metrics with reg. Pass
// prometheus.DefaultRegisterer in production; tests use a private registry
// so repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "attempts_total",
				Help:      "Total extraction attempts",
			},
			[]string{"domain", "method", "success"},
		),
		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "failures_total",
				Help:      "Extraction failures by type",
			},
			[]string{"domain", "failure_type"},
		),
		responseTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "response_time_seconds",
				Help:      "Time from request start to parsed price",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"domain"},
		),
		cacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "cache_hits_total",
				Help:      "Fetches served from the response cache",
			},
		),
		identityBurns: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "identity_burns_total",
				Help:      "Identities quarantined after a CAPTCHA",
			},
		),
	}
}

// ObserveAttempt updates counters and timings for one attempt.
func (m *Metrics) ObserveAttempt(a ExtractionAttempt) {
	m.attemptsTotal.WithLabelValues(a.Domain, a.Method, strconv.FormatBool(a.Success)).Inc()
	if !a.Success && a.FailureType != "" {
		m.failuresTotal.WithLabelValues(a.Domain, a.FailureType).Inc()
	}
	if a.ResponseTime > 0 {
		m.responseTime.WithLabelValues(a.Domain).Observe(a.ResponseTime.Seconds())
	}
}

// ObserveCacheHit counts a fetch answered from cache.
func (m *Metrics) ObserveCacheHit() { m.cacheHitsTotal.Inc() }

// ObserveIdentityBurn counts an identity taken out of rotation.
func (m *Metrics) ObserveIdentityBurn() { m.identityBurns.Inc() }

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "msgcheck"

// Metrics tracks API traffic and validation outcomes.
//
// Metrics:
//   - msgcheck_api_requests_total: validate requests by status
//   - msgcheck_api_validate_duration_seconds: validate request duration
//   - msgcheck_messages_validated_total: messages checked by mode
//   - msgcheck_messages_matched_total: messages accepted by mode
//   - msgcheck_grammar_rules: rules in the served grammar
//   - msgcheck_grammar_reloads_total: grammar reloads by result
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	validateDuration  prometheus.Histogram
	messagesValidated *prometheus.CounterVec
	messagesMatched   *prometheus.CounterVec
	grammarRules      prometheus.Gauge
	reloadsTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers the API metrics. A nil registry gets a
// fresh private one so that servers in the same process do not collide.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of validate requests by status code",
			},
			[]string{"status"},
		),

		validateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "api",
				Name:      "validate_duration_seconds",
				Help:      "Duration of validate requests in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8), // 0.5ms to ~8s
			},
		),

		messagesValidated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "messages_validated_total",
				Help:      "Total number of messages validated by mode",
			},
			[]string{"mode"},
		),

		messagesMatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "messages_matched_total",
				Help:      "Total number of messages matching rule 0 by mode",
			},
			[]string{"mode"},
		),

		grammarRules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "grammar_rules",
				Help:      "Number of rules in the served grammar",
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "grammar_reloads_total",
				Help:      "Total number of grammar reloads by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.validateDuration,
		m.messagesValidated,
		m.messagesMatched,
		m.grammarRules,
		m.reloadsTotal,
	)

	return m
}

// RecordRequest records a finished validate request.
func (m *Metrics) RecordRequest(status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	m.validateDuration.Observe(duration.Seconds())
}

// RecordMessages records validated and matched message counts for a mode.
func (m *Metrics) RecordMessages(mode string, validated, matched int) {
	m.messagesValidated.WithLabelValues(mode).Add(float64(validated))
	m.messagesMatched.WithLabelValues(mode).Add(float64(matched))
}

// SetGrammarRules sets the served grammar size.
func (m *Metrics) SetGrammarRules(n int) {
	m.grammarRules.Set(float64(n))
}

// RecordReload records a grammar reload attempt.
func (m *Metrics) RecordReload(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.reloadsTotal.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

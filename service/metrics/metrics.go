// Package metrics holds the Prometheus collectors for the resolution
// engine. Following the explicit dependency injection pattern, the Metrics
// struct is passed to every component that records; a nil *Metrics disables
// recording everywhere.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	// Payload pipeline
	payloadsClassifiedTotal *prometheus.CounterVec
	parseFailuresTotal      *prometheus.CounterVec
	validationFailuresTotal *prometheus.CounterVec

	// Selection
	preselectTotal *prometheus.CounterVec
	canSendTotal   *prometheus.CounterVec

	// Learning
	paymentsRecordedTotal  *prometheus.CounterVec
	preferenceUpdatesTotal *prometheus.CounterVec

	// HTTP
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		payloadsClassifiedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payloads_classified_total",
				Help: "Total payloads classified, by detected format",
			},
			[]string{"format"},
		),
		parseFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payload_parse_failures_total",
				Help: "Total payloads that failed adaptation, by format",
			},
			[]string{"format"},
		),
		validationFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payload_validation_failures_total",
				Help: "Total normalized requests rejected by validation, by format",
			},
			[]string{"format"},
		),
		preselectTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preselect_total",
				Help: "Total smart preselect calls, by winning fallback rule",
			},
			[]string{"fallback"},
		),
		canSendTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "can_send_checks_total",
				Help: "Total can-send checks, by outcome",
			},
			[]string{"outcome"},
		),
		paymentsRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_recorded_total",
				Help: "Total payments recorded by the behavior learner, by chain",
			},
			[]string{"chain"},
		),
		preferenceUpdatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preference_updates_total",
				Help: "Total learned preference updates, by rule",
			},
			[]string{"rule"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests by handler, method, and status code",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// RecordClassification records a classified payload.
func (m *Metrics) RecordClassification(format string) {
	if m == nil {
		return
	}
	m.payloadsClassifiedTotal.WithLabelValues(format).Inc()
}

// RecordParseFailure records an adapter failure.
func (m *Metrics) RecordParseFailure(format string) {
	if m == nil {
		return
	}
	m.parseFailuresTotal.WithLabelValues(format).Inc()
}

// RecordValidationFailure records a validation rejection.
func (m *Metrics) RecordValidationFailure(format string) {
	if m == nil {
		return
	}
	m.validationFailuresTotal.WithLabelValues(format).Inc()
}

// RecordPreselect records the fallback rule that won a preselect call.
func (m *Metrics) RecordPreselect(fallback string) {
	if m == nil {
		return
	}
	m.preselectTotal.WithLabelValues(fallback).Inc()
}

// RecordCanSend records a can-send check outcome ("ok" or "insufficient").
func (m *Metrics) RecordCanSend(outcome string) {
	if m == nil {
		return
	}
	m.canSendTotal.WithLabelValues(outcome).Inc()
}

// RecordPaymentRecorded records a payment appended to the learner log.
func (m *Metrics) RecordPaymentRecorded(chain string) {
	if m == nil {
		return
	}
	m.paymentsRecordedTotal.WithLabelValues(chain).Inc()
}

// RecordPreferenceUpdate records a learned preference change.
func (m *Metrics) RecordPreferenceUpdate(rule string) {
	if m == nil {
		return
	}
	m.preferenceUpdatesTotal.WithLabelValues(rule).Inc()
}

// RecordHTTPRequest records an HTTP request's duration and outcome.
func (m *Metrics) RecordHTTPRequest(handler, method string, status int, duration float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

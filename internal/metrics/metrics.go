// Cartsense - Smart Cart Vision Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartsense

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Queue Metrics
	QueuePulls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_queue_pulls_total",
			Help: "Total number of capture queue pulls by result",
		},
		[]string{"result"}, // "message", "empty", "error"
	)

	QueueAcks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_queue_acks_total",
			Help: "Total number of capture acknowledgments by kind",
		},
		[]string{"kind", "status"}, // kind: "ack", "nak"; status: "ok", "error"
	)

	// Event Metrics
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_events_processed_total",
			Help: "Total number of capture events by terminal outcome",
		},
		[]string{"outcome"}, // "unchanged", "reset", "appended", "skipped", "failed", "redelivered"
	)

	EventDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cartsense_event_duration_seconds",
			Help:    "Wall time from pull to acknowledgment",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cartsense_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "archive", "detect", "recommend", "state", "sync", "annotate"
	)

	// Prediction Metrics
	PredictAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_predict_attempts_total",
			Help: "Total number of next-item prediction attempts by result",
		},
		[]string{"result"}, // "ok", "timeout", "absent", "error"
	)

	// Registry Metrics
	RegistryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_registry_writes_total",
			Help: "Total number of device registry sync decisions",
		},
		[]string{"result"}, // "updated", "unchanged", "error"
	)

	// Archive Metrics
	ArchiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_archive_writes_total",
			Help: "Total number of archive object writes",
		},
		[]string{"kind", "status"}, // kind: "original", "annotated"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cartsense_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Redelivery Metrics
	RedeliveryHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cartsense_redelivery_cache_hits_total",
			Help: "Captures re-acknowledged from the redelivery cache without reprocessing",
		},
	)

	// State Store Metrics
	StateStoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_state_gc_runs_total",
			Help: "Total number of state store value-log GC runs",
		},
		[]string{"status"},
	)

	// Ops HTTP Metrics
	OpsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartsense_ops_http_requests_total",
			Help: "Total number of ops endpoint requests",
		},
		[]string{"method", "route", "status_code"},
	)

	OpsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cartsense_ops_http_request_duration_seconds",
			Help:    "Ops endpoint request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordPull records the result of one queue pull.
func RecordPull(messages int, err error) {
	switch {
	case err != nil:
		QueuePulls.WithLabelValues("error").Inc()
	case messages == 0:
		QueuePulls.WithLabelValues("empty").Inc()
	default:
		QueuePulls.WithLabelValues("message").Inc()
	}
}

// RecordAck records an acknowledgment attempt.
func RecordAck(kind string, err error) {
	QueueAcks.WithLabelValues(kind, status(err)).Inc()
}

// RecordEvent records the terminal outcome of one capture.
func RecordEvent(outcome string, duration time.Duration) {
	EventsProcessed.WithLabelValues(outcome).Inc()
	EventDuration.Observe(duration.Seconds())
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPredictAttempt records one next-item prediction call.
func RecordPredictAttempt(result string) {
	PredictAttempts.WithLabelValues(result).Inc()
}

// RecordRegistrySync records a display sync decision.
func RecordRegistrySync(updated bool, err error) {
	switch {
	case err != nil:
		RegistryWrites.WithLabelValues("error").Inc()
	case updated:
		RegistryWrites.WithLabelValues("updated").Inc()
	default:
		RegistryWrites.WithLabelValues("unchanged").Inc()
	}
}

// RecordArchiveWrite records an archive object write.
func RecordArchiveWrite(kind string, err error) {
	ArchiveWrites.WithLabelValues(kind, status(err)).Inc()
}

// RecordCircuitBreakerTransition records a breaker state change. States use
// gobreaker's names: "closed", "half-open", "open".
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}

// RecordRedeliveryHit records a capture re-acknowledged from the cache.
func RecordRedeliveryHit() {
	RedeliveryHits.Inc()
}

// RecordStateGC records a state store GC run.
func RecordStateGC(err error) {
	StateStoreGCRuns.WithLabelValues(status(err)).Inc()
}

// RecordOpsRequest records one ops endpoint request.
func RecordOpsRequest(method, route, statusCode string, duration time.Duration) {
	OpsRequests.WithLabelValues(method, route, statusCode).Inc()
	OpsRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

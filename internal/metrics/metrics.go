// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whisperbox_db_query_duration_seconds",
			Help:    "Duration of DuckDB store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_db_query_errors_total",
			Help: "Total number of failed store operations by error kind",
		},
		[]string{"operation", "kind"},
	)

	DBTransactionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_db_transaction_retries_total",
			Help: "Total number of DuckDB transaction conflict retries",
		},
		[]string{"operation"},
	)

	// Inbox
	MessagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whisperbox_messages_created_total",
			Help: "Total number of anonymous messages stored",
		},
	)

	VotesCast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_votes_total",
			Help: "Total number of vote attempts by outcome",
		},
		[]string{"outcome"}, // recorded, duplicate, rejected
	)

	// Fan-out
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_events_published_total",
			Help: "Total number of message-created events published by result",
		},
		[]string{"result"}, // success, failure
	)

	EventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whisperbox_events_consumed_total",
			Help: "Total number of message-created events received from the bus",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_events_dropped_total",
			Help: "Total number of events that could not be delivered to a live session",
		},
		[]string{"reason"},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whisperbox_websocket_connections",
			Help: "Current number of live inbox sessions",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whisperbox_websocket_messages_sent_total",
			Help: "Total number of frames written to live sessions",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_websocket_errors_total",
			Help: "Total number of live session errors",
		},
		[]string{"error_type"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "whisperbox_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whisperbox_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whisperbox_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whisperbox_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)
)

// ErrorKinder is implemented by errors that classify themselves.
type ErrorKinder interface {
	Kind() string
}

// RecordDBQuery observes a store operation. Errors are labelled by kind only,
// never by message text.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err == nil {
		return
	}
	kind := "unknown"
	var k ErrorKinder
	if errors.As(err, &k) {
		kind = k.Kind()
	}
	DBQueryErrors.WithLabelValues(operation, kind).Inc()
}

func RecordDBRetry(operation string) {
	DBTransactionRetries.WithLabelValues(operation).Inc()
}

func RecordMessageCreated() {
	MessagesCreated.Inc()
}

// RecordVote records a vote outcome: recorded, duplicate or rejected.
func RecordVote(outcome string) {
	VotesCast.WithLabelValues(outcome).Inc()
}

func RecordEventPublish(err error) {
	if err != nil {
		EventsPublished.WithLabelValues("failure").Inc()
		return
	}
	EventsPublished.WithLabelValues("success").Inc()
}

func RecordEventConsumed() {
	EventsConsumed.Inc()
}

func RecordEventDropped(reason string) {
	EventsDropped.WithLabelValues(reason).Inc()
}

func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

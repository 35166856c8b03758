// Bio-D-Scan - Pollinator Monitoring Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/biodscan

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// MQTT Metrics
	MQTTConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mqtt_connected",
			Help: "1 when the broker connection is up, 0 otherwise",
		},
	)

	MQTTMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_messages_received_total",
			Help: "Total number of MQTT messages received",
		},
		[]string{"bee_data"},
	)

	MQTTMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_messages_published_total",
			Help: "Total number of MQTT publish attempts",
		},
		[]string{"result"}, // success, failure
	)

	MQTTMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_messages_dropped_total",
			Help: "Total number of inbound MQTT messages dropped before ingest",
		},
		[]string{"reason"},
	)

	// Ingest Metrics
	IngestObservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_observations_total",
			Help: "Observations handled by the ingest router",
		},
		[]string{"result"}, // stored, skipped, failed
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_processing_duration_seconds",
			Help:    "Time to parse, store and broadcast one observation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	LiveFeedSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_feed_size",
			Help: "Observations currently held in the live feed",
		},
	)

	LiveFeedCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_feed_capacity",
			Help: "Maximum observations the live feed holds",
		},
	)

	LiveFeedEvicted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_feed_evicted",
			Help: "Observations dropped from the live feed for capacity since start",
		},
	)

	// WAL Metrics
	WALPendingEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wal_pending_entries",
			Help: "Publishes waiting in the WAL outbox",
		},
	)

	WALRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wal_retries_total",
			Help: "WAL republish attempts",
		},
		[]string{"result"}, // success, failure, exhausted
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Simulator Metrics
	SimulatorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulator_runs_total",
			Help: "Scheduled simulator runs",
		},
		[]string{"result"},
	)

	SimulatorObservations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulator_observations_total",
			Help: "Observations generated by the simulator",
		},
	)

	// Cache Metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Response cache lookups by cache and result (hit, miss)",
		},
		[]string{"cache", "result"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Expired entries removed from the response caches",
		},
		[]string{"cache"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// keep label cardinality bounded
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a rejected request.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// SetMQTTConnected updates the connection gauge.
func SetMQTTConnected(connected bool) {
	if connected {
		MQTTConnected.Set(1)
	} else {
		MQTTConnected.Set(0)
	}
}

// RecordMQTTMessage counts an inbound message.
func RecordMQTTMessage(isBeeData bool) {
	MQTTMessagesReceived.WithLabelValues(strconv.FormatBool(isBeeData)).Inc()
}

// RecordMQTTPublish counts a publish attempt.
func RecordMQTTPublish(err error) {
	if err != nil {
		MQTTMessagesPublished.WithLabelValues("failure").Inc()
		return
	}
	MQTTMessagesPublished.WithLabelValues("success").Inc()
}

// RecordMQTTDrop counts an inbound message that never reached ingest.
func RecordMQTTDrop(reason string) {
	MQTTMessagesDropped.WithLabelValues(reason).Inc()
}

// Ingest results.
const (
	IngestStored  = "stored"
	IngestSkipped = "skipped"
	IngestFailed  = "failed"
)

// RecordIngest counts one ingest outcome.
func RecordIngest(result string, duration time.Duration) {
	IngestObservations.WithLabelValues(result).Inc()
	if result == IngestStored {
		IngestDuration.Observe(duration.Seconds())
	}
}

// RecordLiveFeed updates the live feed gauges.
func RecordLiveFeed(size, capacity int, evicted int64) {
	LiveFeedSize.Set(float64(size))
	LiveFeedCapacity.Set(float64(capacity))
	LiveFeedEvicted.Set(float64(evicted))
}

// SetWALPending updates the WAL pending gauge.
func SetWALPending(n int64) {
	WALPendingEntries.Set(float64(n))
}

// RecordWALRetry counts a WAL republish outcome: success, failure or exhausted.
func RecordWALRetry(result string) {
	WALRetries.WithLabelValues(result).Inc()
}

// Circuit breaker state values for CircuitBreakerState.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(name, from, to string, toValue int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(toValue))
}

// RecordBreakerRequest counts a call through a breaker: success, failure or rejected.
func RecordBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordSimulatorRun records one scheduled run.
func RecordSimulatorRun(generated int, err error) {
	if err != nil {
		SimulatorRuns.WithLabelValues("failure").Inc()
	} else {
		SimulatorRuns.WithLabelValues("success").Inc()
	}
	SimulatorObservations.Add(float64(generated))
}

// RecordCacheLookup counts a hit or miss on the named cache.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordCacheEviction counts n expired entries removed from the named cache.
func RecordCacheEviction(cache string, n int) {
	if n > 0 {
		CacheEvictions.WithLabelValues(cache).Add(float64(n))
	}
}

// SetWebSocketClients updates the connection gauge.
func SetWebSocketClients(n int) {
	WSConnections.Set(float64(n))
}

// Plenum - Parliamentary Voting Analytics
// Copyright 2026 Plenum Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plenumlab/plenum

// Package metrics exposes Prometheus collectors for Plenum.
//
// Instrumented concerns:
//   - Sejm API client requests, retries, and circuit breaker state
//   - Sync run outcomes per entity type
//   - DuckDB query performance
//   - Sync cache and analytics cache efficiency
//   - HTTP server request handling
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API client metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sejm_api_requests_total",
			Help: "Total number of Sejm API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // outcome: "success", "transient", "permanent", "not_found"
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sejm_api_request_duration_seconds",
			Help:    "Duration of Sejm API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sejm_api_retries_total",
			Help: "Total number of retry attempts by endpoint",
		},
		[]string{"endpoint"},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"breaker", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker by result",
		},
		[]string{"breaker", "result"}, // result: "success", "failure", "rejected"
	)

	// Sync pipeline metrics

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by final status",
		},
		[]string{"status"}, // status: "completed", "completed_with_failures", "fatal"
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of full sync runs in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	SyncEntitiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_entities_total",
			Help: "Total number of entities processed by type and outcome",
		},
		[]string{"entity", "outcome"}, // outcome: "synced", "skipped", "failed"
	)

	SyncLastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful sync run",
		},
	)

	// Database metrics

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
		[]string{"operation", "table"},
	)

	// Cache metrics

	SyncCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_cache_lookups_total",
			Help: "Total number of sync cache freshness checks by result",
		},
		[]string{"entity", "result"}, // result: "fresh", "stale"
	)

	AnalyticsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_lookups_total",
			Help: "Total number of analytics cache lookups by result",
		},
		[]string{"metric", "result"}, // result: "hit", "miss"
	)

	AnalyticsComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_compute_duration_seconds",
			Help:    "Duration of analytics computations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"metric"},
	)

	// HTTP server metrics

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// ObserveHTTPRequest records one served HTTP request. The route is the chi
// route pattern, not the raw path, to keep cardinality bounded.
func ObserveHTTPRequest(method, route string, status int, start time.Time) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// ObserveDBQuery records the duration of a database query and, when err is
// non-nil, counts the error. Call with defer:
//
//	defer metrics.ObserveDBQuery("upsert", "voting", time.Now(), &err)
func ObserveDBQuery(operation, table string, start time.Time, err *error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// ObserveAPIRequest records request duration and outcome for an endpoint.
func ObserveAPIRequest(endpoint, outcome string, start time.Time) {
	APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	APIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// Wayfarer - Hybrid Travel Destination Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

// Package metrics provides Prometheus instrumentation for the HTTP
// surface, the recommendation engine, and the document stores.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfarer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Recommendation engine metrics

	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_recommend_requests_total",
			Help: "Total recommendation requests by selected strategy",
		},
		[]string{"strategy"},
	)

	RecommendErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wayfarer_recommend_errors_total",
			Help: "Total recommendation requests that failed",
		},
	)

	RecommendFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_recommend_fallbacks_total",
			Help: "Total in-pipeline fallbacks by kind",
		},
		[]string{"kind"}, // "keyword_unfiltered", "cluster_popularity", "generator_popularity"
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wayfarer_model_version",
			Help: "Version of the currently published model snapshot",
		},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfarer_training_duration_seconds",
			Help:    "Duration of model snapshot builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	// Store metrics

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfarer_store_op_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "op"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_store_op_errors_total",
			Help: "Total document store operation errors",
		},
		[]string{"store", "op"},
	)

	// CircuitBreakerState tracks breaker state per store:
	// 0 = closed, 1 = half-open, 2 = open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wayfarer_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveHTTPRequest records a completed HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveStoreOp records a completed store operation.
func ObserveStoreOp(store, op string, err error, duration time.Duration) {
	StoreOpDuration.WithLabelValues(store, op).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(store, op).Inc()
	}
}

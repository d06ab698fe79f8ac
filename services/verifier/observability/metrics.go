// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the verifier.
//
// # Description
//
// Metrics cover the request surface (counts, latency), the pipeline
// (claims per request, stage durations), the response cache and the
// admission controller. Exposed via /metrics for Prometheus scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "veridict"

const verifierSubsystem = "verifier"

// VerifierMetrics holds all Prometheus metrics for the verification
// service. Initialize once at startup via NewVerifierMetrics().
type VerifierMetrics struct {
	// RequestsTotal counts classification requests.
	// Labels: status (success, error, rate_limited, validation_error,
	// not_ready, timeout)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures end-to-end classify latency.
	// Labels: outcome (hit, miss, error)
	RequestDurationSeconds *prometheus.HistogramVec

	// ClaimsPerRequest tracks how many claims survive extraction.
	ClaimsPerRequest prometheus.Histogram

	// StageDurationSeconds measures model-bound stage latency.
	// Labels: stage (embed, search, score)
	StageDurationSeconds *prometheus.HistogramVec

	// CacheLookupsTotal counts response-cache lookups.
	// Labels: result (hit, miss)
	CacheLookupsTotal *prometheus.CounterVec

	// RateLimitedTotal counts admission denials.
	RateLimitedTotal prometheus.Counter

	// ActivePipelines gauges concurrently executing pipeline runs.
	ActivePipelines prometheus.Gauge

	// VerdictsTotal counts overall verdicts returned.
	// Labels: verdict (SUPPORTED, CONTRADICTED, UNCERTAIN)
	VerdictsTotal *prometheus.CounterVec
}

// NewVerifierMetrics registers and returns the verifier metric set.
// Call once per process; promauto panics on duplicate registration.
func NewVerifierMetrics() *VerifierMetrics {
	return &VerifierMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "requests_total",
			Help:      "Classification requests by status.",
		}, []string{"status"}),

		RequestDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "request_duration_seconds",
			Help:      "End-to-end classify latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"outcome"}),

		ClaimsPerRequest: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "claims_per_request",
			Help:      "Claims surviving extraction per request.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
		}),

		StageDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "stage_duration_seconds",
			Help:      "Model-bound stage latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		CacheLookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),

		RateLimitedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "rate_limited_total",
			Help:      "Requests denied by admission control.",
		}),

		ActivePipelines: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "active_pipelines",
			Help:      "Pipeline runs currently executing.",
		}),

		VerdictsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: verifierSubsystem,
			Name:      "verdicts_total",
			Help:      "Overall verdicts returned.",
		}, []string{"verdict"}),
	}
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the verifier's HTTP endpoints as gin
// handler factories.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/veridict/veridict/services/verifier/cache"
	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/models"
	"github.com/veridict/veridict/services/verifier/observability"
)

// Runner is the pipeline as the transport layer sees it.
type Runner interface {
	Run(ctx context.Context, text string, useContext *bool) (*datatypes.ClassificationResult, error)
}

// Classify returns the POST /classify handler.
//
// # Description
//
//	Order of operations is load-bearing: admission middleware has
//	already run, then binding (422 on bad input), then the readiness
//	gate (503 while models are loading), then the cache with
//	single-flight pipeline execution on a miss.
func Classify(runner Runner, respCache *cache.ResponseCache, manager *models.Manager,
	metrics *observability.VerifierMetrics) gin.HandlerFunc {

	tracer := otel.Tracer("veridict/handlers")

	return func(c *gin.Context) {
		start := time.Now()

		var req datatypes.ClassifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RequestsTotal.WithLabelValues("validation_error").Inc()
			c.JSON(http.StatusUnprocessableEntity, datatypes.ErrorResponse{
				Error: "text must be a string between 10 and 5000 characters",
				Code:  faults.KindValidation.String(),
			})
			return
		}

		if err := manager.RequireReady(); err != nil {
			respondError(c, metrics, err)
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "handlers.classify")
		defer span.End()
		span.SetAttributes(attribute.Int("request.text_len", len(req.Text)))

		metrics.ActivePipelines.Inc()
		defer metrics.ActivePipelines.Dec()

		key := cache.Key(req.Text)
		result, hit, err := respCache.GetOrCompute(ctx, key,
			func(ctx context.Context) (*datatypes.ClassificationResult, error) {
				return runner.Run(ctx, req.Text, req.UseNLIContext)
			})
		if err != nil {
			span.RecordError(err)
			respondError(c, metrics, err)
			return
		}

		outcome := "miss"
		if hit {
			outcome = "hit"
		}
		metrics.CacheLookupsTotal.WithLabelValues(outcome).Inc()
		metrics.RequestsTotal.WithLabelValues("success").Inc()
		metrics.RequestDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		metrics.VerdictsTotal.WithLabelValues(string(result.Overall)).Inc()
		if !hit {
			metrics.ClaimsPerRequest.Observe(float64(len(result.Claims)))
		}

		slog.Info("classify complete",
			"request_id", c.GetString("request_id"),
			"overall", result.Overall,
			"claims", len(result.Claims),
			"cache_hit", hit,
			"duration_ms", time.Since(start).Milliseconds())

		c.JSON(http.StatusOK, result)
	}
}

// respondError maps a fault kind to its HTTP status and writes the
// uniform error envelope.
func respondError(c *gin.Context, metrics *observability.VerifierMetrics, err error) {
	kind := faults.KindOf(err)

	status := http.StatusInternalServerError
	label := "error"
	switch kind {
	case faults.KindValidation:
		status = http.StatusUnprocessableEntity
		label = "validation_error"
	case faults.KindModelNotReady, faults.KindKnowledgeBaseUnavailable:
		status = http.StatusServiceUnavailable
		label = "not_ready"
	case faults.KindRateLimited:
		status = http.StatusTooManyRequests
		label = "rate_limited"
	case faults.KindTimeout:
		// The deadline surfaces as an internal error with a distinct
		// code in the body so clients can tell it apart.
		label = "timeout"
	}

	metrics.RequestsTotal.WithLabelValues(label).Inc()
	if status >= http.StatusInternalServerError {
		slog.Error("classify failed", "kind", kind.String(), "error", err)
	}

	resp := datatypes.ErrorResponse{
		Error: err.Error(),
		Code:  kind.String(),
	}
	if retryAfter := faults.RetryAfterOf(err); retryAfter > 0 {
		resp.RetryAfterSeconds = retryAfter.Seconds()
	}
	c.JSON(status, resp)
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware holds gin middleware for the verifier service.
package middleware

import (
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/observability"
	"github.com/veridict/veridict/services/verifier/ratelimit"
)

// Admission enforces per-client rate limiting before any other work.
// Denials return 429 with a Retry-After header derived from the bucket's
// refill schedule. Admission runs before the cache lookup on purpose:
// even cached responses count against a client's budget.
func Admission(limiter *ratelimit.Limiter, metrics *observability.VerifierMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := limiter.Allow(c.ClientIP())
		if ok {
			c.Next()
			return
		}

		if metrics != nil {
			metrics.RateLimitedTotal.Inc()
			metrics.RequestsTotal.WithLabelValues("rate_limited").Inc()
		}

		seconds := math.Ceil(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", fmt.Sprintf("%d", int(seconds)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
			Error:             "rate limit exceeded, slow down",
			Code:              faults.KindRateLimited.String(),
			RetryAfterSeconds: retryAfter.Seconds(),
		})
	}
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes wires the verifier's HTTP surface.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veridict/veridict/services/verifier/cache"
	"github.com/veridict/veridict/services/verifier/handlers"
	"github.com/veridict/veridict/services/verifier/index"
	"github.com/veridict/veridict/services/verifier/middleware"
	"github.com/veridict/veridict/services/verifier/models"
	"github.com/veridict/veridict/services/verifier/observability"
	"github.com/veridict/veridict/services/verifier/ratelimit"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Runner  handlers.Runner
	Cache   *cache.ResponseCache
	Manager *models.Manager
	Index   index.VectorIndex
	Limiter *ratelimit.Limiter
	Metrics *observability.VerifierMetrics
}

// SetupRoutes registers all endpoints on router.
//
// Admission control guards /classify only: health, cache and topics
// introspection stay reachable for operators even when a client has
// burned its budget.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.Health(deps.Manager, deps.Index))
	router.GET("/cache-info", handlers.CacheInfo(deps.Cache))
	router.GET("/topics", handlers.Topics(deps.Index))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admit := middleware.Admission(deps.Limiter, deps.Metrics)
	classify := handlers.Classify(deps.Runner, deps.Cache, deps.Manager, deps.Metrics)

	router.POST("/classify", admit, classify)

	// API version 1 group mirrors the flat paths for newer clients.
	v1 := router.Group("/v1")
	{
		v1.POST("/classify", admit, classify)
		v1.GET("/health", handlers.Health(deps.Manager, deps.Index))
		v1.GET("/topics", handlers.Topics(deps.Index))
	}
}

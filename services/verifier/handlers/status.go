// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridict/veridict/services/verifier/cache"
	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/index"
	"github.com/veridict/veridict/services/verifier/models"
)

// Health returns the GET /health handler. Reports 200 once the model
// manager is ready and the knowledge base answers, 503 otherwise.
func Health(manager *models.Manager, idx index.VectorIndex) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !manager.Ready() {
			c.JSON(http.StatusServiceUnavailable, datatypes.HealthResponse{
				Status:       "not_ready",
				ModelsLoaded: false,
				KBSize:       0,
			})
			return
		}

		size, err := idx.Size(c.Request.Context())
		if err != nil {
			slog.Warn("health: knowledge base unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, datatypes.HealthResponse{
				Status:       "degraded",
				ModelsLoaded: true,
				KBSize:       0,
			})
			return
		}

		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:       "ok",
			ModelsLoaded: true,
			KBSize:       size,
		})
	}
}

// CacheInfo returns the GET /cache-info handler. Debugging surface only.
func CacheInfo(respCache *cache.ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		hits, misses := respCache.Stats()
		c.JSON(http.StatusOK, datatypes.CacheInfoResponse{
			Size:    respCache.Len(),
			MaxSize: respCache.MaxSize(),
			Hits:    hits,
			Misses:  misses,
		})
	}
}

// Topics returns the GET /topics handler, listing knowledge-base topics
// grouped by category.
func Topics(idx index.VectorIndex) gin.HandlerFunc {
	return func(c *gin.Context) {
		grouped, err := idx.Topics(c.Request.Context())
		if err != nil {
			slog.Error("topics query failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
				Error: "knowledge base unavailable",
				Code:  faults.KindKnowledgeBaseUnavailable.String(),
			})
			return
		}

		total := 0
		for _, topics := range grouped {
			total += len(topics)
		}
		if grouped == nil {
			grouped = map[string][]string{}
		}
		c.JSON(http.StatusOK, datatypes.TopicsResponse{
			TotalTopics: total,
			Categories:  grouped,
		})
	}
}

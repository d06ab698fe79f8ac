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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict/veridict/services/verifier/cache"
	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/index"
	"github.com/veridict/veridict/services/verifier/models"
	"github.com/veridict/veridict/services/verifier/observability"
)

var (
	metricsOnce sync.Once
	testMetrics *observability.VerifierMetrics
)

// sharedMetrics returns a process-wide metric set; promauto forbids
// re-registration across tests.
func sharedMetrics() *observability.VerifierMetrics {
	metricsOnce.Do(func() {
		testMetrics = observability.NewVerifierMetrics()
	})
	return testMetrics
}

type stubRunner struct {
	result *datatypes.ClassificationResult
	err    error
	runs   int
}

func (s *stubRunner) Run(_ context.Context, _ string, _ *bool) (*datatypes.ClassificationResult, error) {
	s.runs++
	return s.result, s.err
}

type okEmbedder struct{}

func (okEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type okScorer struct{}

func (okScorer) Score(_ context.Context, _, _ string) (models.EntailmentScores, error) {
	return models.EntailmentScores{Entailment: 0.9, Neutral: 0.08, Contradiction: 0.02}, nil
}

type stubIndex struct {
	size   int
	err    error
	topics map[string][]string
}

func (s *stubIndex) Search(_ context.Context, _ []float32, _ int) ([]index.SearchHit, error) {
	return nil, s.err
}
func (s *stubIndex) Size(_ context.Context) (int, error)                  { return s.size, s.err }
func (s *stubIndex) Topics(_ context.Context) (map[string][]string, error) { return s.topics, s.err }
func (s *stubIndex) Ready(_ context.Context) error                        { return s.err }

func readyManager(t *testing.T) *models.Manager {
	t.Helper()
	m := models.NewManager(okEmbedder{}, okScorer{}, models.NewGate(1))
	require.NoError(t, m.Init(context.Background()))
	return m
}

func classifyRouter(runner Runner, respCache *cache.ResponseCache, manager *models.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/classify", Classify(runner, respCache, manager, sharedMetrics()))
	return r
}

func doClassify(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func supportedResult() *datatypes.ClassificationResult {
	return &datatypes.ClassificationResult{
		Overall:    datatypes.VerdictSupported,
		Confidence: 0.9,
		Claims: []datatypes.ClaimResult{{
			Claim:          datatypes.Claim{Text: "The sky is blue.", Index: 0},
			Classification: datatypes.VerdictSupported,
			Confidence:     0.9,
		}},
	}
}

func TestClassifySuccess(t *testing.T) {
	runner := &stubRunner{result: supportedResult()}
	r := classifyRouter(runner, cache.NewResponseCache(10, time.Minute), readyManager(t))

	w := doClassify(r, `{"text":"The sky is blue and water is wet."}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got datatypes.ClassificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, datatypes.VerdictSupported, got.Overall)
	require.Len(t, got.Claims, 1)
	assert.Equal(t, 1, runner.runs)
}

func TestClassifySecondRequestHitsCache(t *testing.T) {
	runner := &stubRunner{result: supportedResult()}
	r := classifyRouter(runner, cache.NewResponseCache(10, time.Minute), readyManager(t))

	body := `{"text":"The sky is blue and water is wet."}`
	require.Equal(t, http.StatusOK, doClassify(r, body).Code)
	require.Equal(t, http.StatusOK, doClassify(r, body).Code)

	assert.Equal(t, 1, runner.runs, "second request must be served from cache")
}

func TestClassifyValidation(t *testing.T) {
	r := classifyRouter(&stubRunner{result: supportedResult()},
		cache.NewResponseCache(10, time.Minute), readyManager(t))

	tests := []struct {
		name string
		body string
	}{
		{"too_short", `{"text":"short"}`},
		{"missing_text", `{}`},
		{"malformed", `{"text": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doClassify(r, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var resp datatypes.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "validation_error", resp.Code)
		})
	}
}

func TestClassifyNotReadyIs503(t *testing.T) {
	manager := models.NewManager(okEmbedder{}, okScorer{}, models.NewGate(1)) // never Init'd
	runner := &stubRunner{result: supportedResult()}
	r := classifyRouter(runner, cache.NewResponseCache(10, time.Minute), manager)

	w := doClassify(r, `{"text":"The sky is blue and water is wet."}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "model_not_ready", resp.Code)
	assert.Positive(t, resp.RetryAfterSeconds)
	assert.Zero(t, runner.runs)
}

func TestClassifyTimeoutIs500WithTimeoutCode(t *testing.T) {
	runner := &stubRunner{err: faults.Timeout("pipeline.run", 45*time.Second)}
	r := classifyRouter(runner, cache.NewResponseCache(10, time.Minute), readyManager(t))

	w := doClassify(r, `{"text":"The sky is blue and water is wet."}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "timeout", resp.Code)
}

func TestHealthTransitions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	idx := &stubIndex{size: 42}

	notReady := models.NewManager(okEmbedder{}, okScorer{}, models.NewGate(1))
	r := gin.New()
	r.GET("/health", Health(notReady, idx))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	ready := readyManager(t)
	r2 := gin.New()
	r2.GET("/health", Health(ready, idx))

	w = httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.ModelsLoaded)
	assert.Equal(t, 42, resp.KBSize)
}

func TestCacheInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	respCache := cache.NewResponseCache(100, time.Minute)
	respCache.Put("k", supportedResult())
	respCache.Get("k")
	respCache.Get("missing")

	r := gin.New()
	r.GET("/cache-info", CacheInfo(respCache))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cache-info", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.CacheInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Size)
	assert.Equal(t, 100, resp.MaxSize)
	assert.Equal(t, uint64(1), resp.Hits)
	assert.Equal(t, uint64(1), resp.Misses)
}

func TestTopics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	idx := &stubIndex{topics: map[string][]string{
		"geography": {"Paris", "Rome"},
		"science":   {"Water"},
	}}

	r := gin.New()
	r.GET("/topics", Topics(idx))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/topics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.TopicsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalTopics)
	assert.Equal(t, []string{"Paris", "Rome"}, resp.Categories["geography"])
}

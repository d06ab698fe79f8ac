// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// EntailmentScores is the probability distribution returned by the
// entailment model for one (premise, hypothesis) pair. The three values
// sum to 1.
type EntailmentScores struct {
	Entailment    float64 `json:"entailment"`
	Neutral       float64 `json:"neutral"`
	Contradiction float64 `json:"contradiction"`
}

// EntailmentScorer scores whether a premise entails a hypothesis.
// Deterministic given identical inputs and a fixed model checkpoint.
type EntailmentScorer interface {
	Score(ctx context.Context, premise, hypothesis string) (EntailmentScores, error)
}

// HTTPScorer calls a sidecar NLI scoring service over HTTP.
//
// # Description
//
//	The sidecar hosts the cross-encoder (e.g. an MNLI checkpoint) and
//	exposes POST {base}/score accepting {"premise","hypothesis"} and
//	returning the three-way probability distribution. Model loading,
//	batching and hardware placement live in the sidecar; this client is
//	deliberately thin.
type HTTPScorer struct {
	baseURL string
	client  *http.Client
}

var _ EntailmentScorer = (*HTTPScorer)(nil)

// NewHTTPScorer builds a scorer client for the sidecar at baseURL.
func NewHTTPScorer(baseURL string, timeout time.Duration) *HTTPScorer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPScorer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

// Score returns the entailment distribution for (premise, hypothesis).
func (s *HTTPScorer) Score(ctx context.Context, premise, hypothesis string) (EntailmentScores, error) {
	body, err := json.Marshal(scoreRequest{Premise: premise, Hypothesis: hypothesis})
	if err != nil {
		return EntailmentScores{}, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return EntailmentScores{}, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return EntailmentScores{}, fmt.Errorf("call nli service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return EntailmentScores{}, fmt.Errorf("nli service returned %d: %s",
			resp.StatusCode, string(payload))
	}

	var scores EntailmentScores
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return EntailmentScores{}, fmt.Errorf("decode nli response: %w", err)
	}
	if err := validateDistribution(scores); err != nil {
		return EntailmentScores{}, err
	}
	return scores, nil
}

// validateDistribution rejects responses that are not a probability
// distribution. A small tolerance absorbs float serialization error.
func validateDistribution(s EntailmentScores) error {
	for _, v := range []float64{s.Entailment, s.Neutral, s.Contradiction} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("nli probability out of range: %+v", s)
		}
	}
	sum := s.Entailment + s.Neutral + s.Contradiction
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("nli probabilities sum to %v, want 1", sum)
	}
	return nil
}

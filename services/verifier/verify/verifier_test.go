// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/models"
)

type recordingScorer struct {
	scores []models.EntailmentScores
	err    error

	premises   []string
	hypotheses []string
}

func (r *recordingScorer) Score(_ context.Context, premise, hypothesis string) (models.EntailmentScores, error) {
	r.premises = append(r.premises, premise)
	r.hypotheses = append(r.hypotheses, hypothesis)
	if r.err != nil {
		return models.EntailmentScores{}, r.err
	}
	s := r.scores[len(r.premises)-1]
	return s, nil
}

func candidates() []datatypes.EvidenceCandidate {
	return []datatypes.EvidenceCandidate{
		{Snippet: "Paris is the capital of France.", Source: "a", RetrievalScore: 0.9},
		{Snippet: "France is in Europe.", Source: "b", RetrievalScore: 0.8},
	}
}

func TestVerifyPreservesOrderAndScores(t *testing.T) {
	scorer := &recordingScorer{scores: []models.EntailmentScores{
		{Entailment: 0.92, Neutral: 0.05, Contradiction: 0.03},
		{Entailment: 0.31, Neutral: 0.6, Contradiction: 0.09},
	}}
	v := NewVerifier(scorer, models.NewGate(1), false)

	claim := datatypes.Claim{Text: "Paris is in France.", Index: 0}
	got, err := v.Verify(context.Background(), claim, candidates(), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.InDelta(t, 0.92, got[0].NLIScore, 1e-9)
	assert.InDelta(t, 0.31, got[1].NLIScore, 1e-9)
	assert.Equal(t, "Paris is the capital of France.", got[0].Snippet)

	// Premise is the snippet, hypothesis the raw claim.
	assert.Equal(t, "Paris is the capital of France.", scorer.premises[0])
	assert.Equal(t, "Paris is in France.", scorer.hypotheses[0])
}

func TestVerifyAppliesContextPrefix(t *testing.T) {
	scorer := &recordingScorer{scores: []models.EntailmentScores{
		{Entailment: 0.5, Neutral: 0.4, Contradiction: 0.1},
	}}
	v := NewVerifier(scorer, models.NewGate(1), true)

	claim := datatypes.Claim{Text: "Paris is in France."}
	_, err := v.Verify(context.Background(), claim, candidates()[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, "Established fact: Paris is in France.", scorer.hypotheses[0])
}

func TestVerifyPerRequestOverrideWins(t *testing.T) {
	scorer := &recordingScorer{scores: []models.EntailmentScores{
		{Entailment: 0.5, Neutral: 0.4, Contradiction: 0.1},
	}}
	v := NewVerifier(scorer, models.NewGate(1), true)

	off := false
	claim := datatypes.Claim{Text: "Paris is in France."}
	_, err := v.Verify(context.Background(), claim, candidates()[:1], &off)
	require.NoError(t, err)
	assert.Equal(t, "Paris is in France.", scorer.hypotheses[0])
}

func TestVerifyModelErrorIsVerificationFault(t *testing.T) {
	v := NewVerifier(&recordingScorer{err: errors.New("model crashed")}, models.NewGate(1), false)

	_, err := v.Verify(context.Background(), datatypes.Claim{Text: "x is y"}, candidates(), nil)
	require.Error(t, err)
	assert.Equal(t, faults.KindVerification, faults.KindOf(err))
}

func TestVerifyStopsOnDeadContext(t *testing.T) {
	scorer := &recordingScorer{scores: []models.EntailmentScores{
		{Entailment: 0.5, Neutral: 0.4, Contradiction: 0.1},
		{Entailment: 0.5, Neutral: 0.4, Contradiction: 0.1},
	}}
	v := NewVerifier(scorer, models.NewGate(1), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Verify(ctx, datatypes.Claim{Text: "x is y"}, candidates(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, scorer.premises)
}

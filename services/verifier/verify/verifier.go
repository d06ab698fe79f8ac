// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verify scores (claim, evidence) pairs with the entailment model.
package verify

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/models"
)

// hypothesisPrefix guides MNLI-style checkpoints toward treating the
// claim as a statement to verify rather than free text.
const hypothesisPrefix = "Established fact: "

// Verifier scores each evidence candidate against its claim.
//
// # Description
//
//	The premise is the evidence snippet, the hypothesis is the claim.
//	Only the entailment probability flows downstream; neutral and
//	contradiction are intentionally not exposed to the aggregator, so
//	"not supported" is always inferred from a low support score. Every
//	scoring call is serialized through the shared model Gate, and the
//	context is checked between candidates so a dead deadline abandons
//	the remaining pairs.
type Verifier struct {
	scorer     models.EntailmentScorer
	gate       *models.Gate
	useContext bool
}

// NewVerifier wires a verifier. useContext enables the hypothesis prefix
// by default; Verify's override parameter wins when non-nil.
func NewVerifier(scorer models.EntailmentScorer, gate *models.Gate, useContext bool) *Verifier {
	return &Verifier{scorer: scorer, gate: gate, useContext: useContext}
}

// Verify scores all candidates for one claim, preserving input order.
func (v *Verifier) Verify(ctx context.Context, claim datatypes.Claim,
	candidates []datatypes.EvidenceCandidate, useContext *bool) ([]datatypes.VerifiedEvidence, error) {

	tracer := otel.Tracer("veridict/verify")
	ctx, span := tracer.Start(ctx, "verify.claim")
	defer span.End()
	span.SetAttributes(
		attribute.Int("claim.index", claim.Index),
		attribute.Int("verify.candidates", len(candidates)),
	)

	hypothesis := claim.Text
	withContext := v.useContext
	if useContext != nil {
		withContext = *useContext
	}
	if withContext {
		hypothesis = hypothesisPrefix + claim.Text
	}

	verified := make([]datatypes.VerifiedEvidence, 0, len(candidates))
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "context done")
			return nil, err
		}

		scores, err := v.score(ctx, cand.Snippet, hypothesis)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scoring failed")
			return nil, err
		}
		verified = append(verified, datatypes.VerifiedEvidence{
			EvidenceCandidate: cand,
			NLIScore:          scores.Entailment,
		})
	}
	return verified, nil
}

func (v *Verifier) score(ctx context.Context, premise, hypothesis string) (models.EntailmentScores, error) {
	if err := v.gate.Acquire(ctx); err != nil {
		return models.EntailmentScores{}, err
	}
	defer v.gate.Release()

	scores, err := v.scorer.Score(ctx, premise, hypothesis)
	if err != nil {
		return models.EntailmentScores{}, faults.Verification("verify.score", err)
	}
	return scores, nil
}

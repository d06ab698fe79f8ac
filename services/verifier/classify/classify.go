// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify holds the deterministic scoring policy: best-evidence
// selection, threshold classification, and pessimistic aggregation.
// Everything here is a pure function of its inputs.
package classify

import (
	"github.com/veridict/veridict/services/verifier/datatypes"
)

// Thresholds are the half-open score intervals mapping a support score to
// a verdict. Boundary values belong to the stricter side: a score equal
// to Truth is SUPPORTED, a score equal to Falsehood is UNCERTAIN.
type Thresholds struct {
	Truth     float64
	Falsehood float64
}

// DefaultThresholds mirror the service defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Truth: 0.85, Falsehood: 0.4}
}

// BestEvidence selects the decisive evidence for a claim: highest
// NLIScore, ties broken by higher RetrievalScore, then by lowest
// candidate position. Returns nil for an empty list.
func BestEvidence(evidence []datatypes.VerifiedEvidence) *datatypes.VerifiedEvidence {
	if len(evidence) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(evidence); i++ {
		if evidence[i].NLIScore > evidence[best].NLIScore {
			best = i
			continue
		}
		if evidence[i].NLIScore == evidence[best].NLIScore &&
			evidence[i].RetrievalScore > evidence[best].RetrievalScore {
			best = i
		}
	}
	chosen := evidence[best]
	return &chosen
}

// Claim classifies one claim from its verified evidence.
//
// # Description
//
//	With no evidence the claim is UNCERTAIN at confidence 0.0, the fixed
//	low-confidence sentinel. Otherwise the best evidence's support score
//	s maps to:
//	  - s >= Truth              → SUPPORTED, confidence s
//	  - s <  Falsehood          → CONTRADICTED, confidence s
//	  - Falsehood <= s < Truth  → UNCERTAIN, confidence s
func Claim(claim datatypes.Claim, evidence []datatypes.VerifiedEvidence, t Thresholds) datatypes.ClaimResult {
	best := BestEvidence(evidence)
	if best == nil {
		return datatypes.ClaimResult{
			Claim:          claim,
			Classification: datatypes.VerdictUncertain,
			Confidence:     0.0,
		}
	}

	s := best.NLIScore
	verdict := datatypes.VerdictUncertain
	switch {
	case s >= t.Truth:
		verdict = datatypes.VerdictSupported
	case s < t.Falsehood:
		verdict = datatypes.VerdictContradicted
	}

	return datatypes.ClaimResult{
		Claim:          claim,
		Classification: verdict,
		Confidence:     s,
		BestEvidence:   best,
	}
}

// Aggregate folds all claim results into the overall verdict.
//
// # Description
//
//	Aggregation is pessimistic and order-independent:
//	  1. Empty claim list → UNCERTAIN, confidence 0.0.
//	  2. Any CONTRADICTED → CONTRADICTED; confidence is the minimum
//	     among contradicted claims.
//	  3. Else any UNCERTAIN → UNCERTAIN; confidence is the minimum
//	     among uncertain claims.
//	  4. Else all SUPPORTED → SUPPORTED; confidence is the minimum
//	     across all claims.
//
//	The minimum (never the mean) within the decisive bucket keeps a
//	single weak or damaging claim from being masked by strong siblings.
func Aggregate(claims []datatypes.ClaimResult) (datatypes.Verdict, float64) {
	if len(claims) == 0 {
		return datatypes.VerdictUncertain, 0.0
	}

	minIn := func(verdict datatypes.Verdict) (float64, bool) {
		min, found := 0.0, false
		for _, c := range claims {
			if c.Classification != verdict {
				continue
			}
			if !found || c.Confidence < min {
				min, found = c.Confidence, true
			}
		}
		return min, found
	}

	if min, ok := minIn(datatypes.VerdictContradicted); ok {
		return datatypes.VerdictContradicted, min
	}
	if min, ok := minIn(datatypes.VerdictUncertain); ok {
		return datatypes.VerdictUncertain, min
	}

	min := claims[0].Confidence
	for _, c := range claims[1:] {
		if c.Confidence < min {
			min = c.Confidence
		}
	}
	return datatypes.VerdictSupported, min
}

// Result assembles the final ClassificationResult from per-claim results.
func Result(claims []datatypes.ClaimResult) datatypes.ClassificationResult {
	overall, confidence := Aggregate(claims)
	if claims == nil {
		claims = []datatypes.ClaimResult{}
	}
	return datatypes.ClassificationResult{
		Overall:    overall,
		Confidence: confidence,
		Claims:     claims,
	}
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the wire and domain types shared by the
// verification pipeline and its HTTP surface.
package datatypes

// Verdict is the graded outcome of verifying a claim (or a whole request)
// against the knowledge corpus.
type Verdict string

const (
	VerdictSupported    Verdict = "SUPPORTED"
	VerdictContradicted Verdict = "CONTRADICTED"
	VerdictUncertain    Verdict = "UNCERTAIN"
)

// Claim is one candidate factual statement extracted from input text.
// Immutable once created; indices preserve the order of appearance in
// the source text.
type Claim struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// EvidenceCandidate is a corpus snippet retrieved as potentially relevant
// to a claim. RetrievalScore is a similarity derived from vector distance;
// higher means more similar. Candidates are ordered best similarity first.
type EvidenceCandidate struct {
	Snippet        string  `json:"snippet"`
	Source         string  `json:"source"`
	RetrievalScore float64 `json:"retrieval_score"`
}

// VerifiedEvidence extends an EvidenceCandidate with the entailment
// probability scored against one claim. NLIScore is in [0,1].
type VerifiedEvidence struct {
	EvidenceCandidate
	NLIScore float64 `json:"nli_score"`
}

// ClaimResult is the deterministic per-claim outcome.
//
// # Description
//
//	BestEvidence is the VerifiedEvidence with the highest NLIScore among
//	the claim's candidates, ties broken by higher RetrievalScore, then by
//	lowest candidate position. Confidence equals the chosen evidence's
//	NLIScore, or 0.0 when no evidence exists.
type ClaimResult struct {
	Claim          Claim             `json:"claim"`
	Classification Verdict           `json:"classification"`
	Confidence     float64           `json:"confidence"`
	BestEvidence   *VerifiedEvidence `json:"best_evidence,omitempty"`
}

// ClassificationResult is the top-level pipeline output. Immutable once
// produced; cached whole under the normalized input key.
type ClassificationResult struct {
	Overall    Verdict       `json:"overall_classification"`
	Confidence float64       `json:"confidence"`
	Claims     []ClaimResult `json:"claims"`
}

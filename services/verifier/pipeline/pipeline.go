// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline orchestrates one verification run: claim extraction,
// per-claim evidence retrieval and entailment scoring, and pessimistic
// aggregation, all under a single wall-clock deadline.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/veridict/veridict/services/verifier/classify"
	"github.com/veridict/veridict/services/verifier/config"
	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/extract"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/retrieve"
	"github.com/veridict/veridict/services/verifier/verify"
)

// ClaimRetriever is the retrieval stage as the pipeline sees it.
type ClaimRetriever interface {
	Retrieve(ctx context.Context, claim datatypes.Claim) ([]datatypes.EvidenceCandidate, error)
}

// ClaimVerifier is the entailment stage as the pipeline sees it.
type ClaimVerifier interface {
	Verify(ctx context.Context, claim datatypes.Claim,
		candidates []datatypes.EvidenceCandidate, useContext *bool) ([]datatypes.VerifiedEvidence, error)
}

var (
	_ ClaimRetriever = (*retrieve.Retriever)(nil)
	_ ClaimVerifier  = (*verify.Verifier)(nil)
)

// Pipeline runs the full verification flow for one input text.
//
// # Description
//
//	Claims are processed sequentially in extraction order; the heavy
//	model calls inside retrieval and verification are already serialized
//	by the shared Gate, so claim-level parallelism would only reorder
//	queue positions without adding throughput.
//
//	Failure policy: retrieval and verification faults are contained at
//	claim granularity (the claim degrades to UNCERTAIN with no evidence);
//	a deadline breach is a request-fatal timeout, never a partial result.
type Pipeline struct {
	extractor  *extract.Extractor
	retriever  ClaimRetriever
	verifier   ClaimVerifier
	thresholds classify.Thresholds
	deadline   config.PipelineConfig
}

// New wires a pipeline from its stages and the scoring policy.
func New(extractor *extract.Extractor, retriever ClaimRetriever, verifier ClaimVerifier,
	cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		retriever:  retriever,
		verifier:   verifier,
		thresholds: classify.Thresholds{Truth: cfg.TruthThreshold, Falsehood: cfg.FalsehoodThreshold},
		deadline:   cfg,
	}
}

// Run executes the pipeline for text. useContext optionally overrides the
// configured hypothesis-prefix flag for this request.
func (p *Pipeline) Run(ctx context.Context, text string, useContext *bool) (*datatypes.ClassificationResult, error) {
	tracer := otel.Tracer("veridict/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.deadline.Deadline)
	defer cancel()

	claims := p.extractor.Extract(text)
	span.SetAttributes(attribute.Int("pipeline.claims", len(claims)))

	if len(claims) == 0 {
		slog.Debug("no factual claims extracted", "text_len", len(text))
		result := classify.Result(nil)
		return &result, nil
	}

	results := make([]datatypes.ClaimResult, 0, len(claims))
	for _, claim := range claims {
		// Cooperative deadline check between claim-level units of
		// work. A breach abandons the remaining claims outright.
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "deadline exceeded")
			return nil, p.timeoutFault(err)
		}

		result, err := p.processClaim(ctx, claim, useContext)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	final := classify.Result(results)
	span.SetAttributes(
		attribute.String("pipeline.overall", string(final.Overall)),
		attribute.Float64("pipeline.confidence", final.Confidence),
	)
	return &final, nil
}

// processClaim runs retrieval and verification for one claim, containing
// stage faults at claim granularity.
func (p *Pipeline) processClaim(ctx context.Context, claim datatypes.Claim,
	useContext *bool) (datatypes.ClaimResult, error) {

	candidates, err := p.retriever.Retrieve(ctx, claim)
	if err != nil {
		return p.degradeOrFail(ctx, claim, err)
	}

	verified, err := p.verifier.Verify(ctx, claim, candidates, useContext)
	if err != nil {
		return p.degradeOrFail(ctx, claim, err)
	}

	return classify.Claim(claim, verified, p.thresholds), nil
}

// degradeOrFail maps a stage error either to an UNCERTAIN claim result
// (contained fault) or to a request-fatal error (deadline, cancellation,
// anything unclassified).
func (p *Pipeline) degradeOrFail(ctx context.Context, claim datatypes.Claim,
	err error) (datatypes.ClaimResult, error) {

	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		if ctxErr == nil {
			ctxErr = err
		}
		return datatypes.ClaimResult{}, p.timeoutFault(ctxErr)
	}

	if faults.IsClaimContained(err) {
		slog.Warn("claim degraded to UNCERTAIN",
			"claim_index", claim.Index,
			"kind", faults.KindOf(err).String(),
			"error", err)
		return classify.Claim(claim, nil, p.thresholds), nil
	}

	return datatypes.ClaimResult{}, faults.Classification("pipeline.claim", err)
}

func (p *Pipeline) timeoutFault(cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return faults.Timeout("pipeline.run", p.deadline.Deadline)
	}
	// Client went away; keep the cancellation visible to the transport.
	return cause
}

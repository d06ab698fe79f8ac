// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieve embeds claims and queries the vector index for
// supporting evidence.
package retrieve

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/veridict/veridict/services/verifier/datatypes"
	"github.com/veridict/veridict/services/verifier/faults"
	"github.com/veridict/veridict/services/verifier/index"
	"github.com/veridict/veridict/services/verifier/models"
)

// Retriever turns one claim into an ordered evidence candidate list.
//
// # Description
//
//	The embedding call goes through the shared model Gate; the index
//	query does not (it is I/O, not model compute). Failures surface as
//	KindRetrieval faults and are contained at claim granularity by the
//	pipeline. No retries happen here.
type Retriever struct {
	embedder models.Embedder
	idx      index.VectorIndex
	gate     *models.Gate
	topK     int
}

// NewRetriever wires a retriever over the given backends.
func NewRetriever(embedder models.Embedder, idx index.VectorIndex, gate *models.Gate, topK int) *Retriever {
	return &Retriever{embedder: embedder, idx: idx, gate: gate, topK: topK}
}

// Retrieve returns up to topK evidence candidates for the claim, best
// similarity first.
func (r *Retriever) Retrieve(ctx context.Context, claim datatypes.Claim) ([]datatypes.EvidenceCandidate, error) {
	tracer := otel.Tracer("veridict/retrieve")
	ctx, span := tracer.Start(ctx, "retrieve.claim")
	defer span.End()
	span.SetAttributes(
		attribute.Int("claim.index", claim.Index),
		attribute.Int("retrieve.top_k", r.topK),
	)

	vector, err := r.embed(ctx, claim.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, err
	}

	hits, err := r.idx.Search(ctx, vector, r.topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index search failed")
		return nil, faults.Retrieval("retrieve.search", err)
	}

	candidates := make([]datatypes.EvidenceCandidate, 0, len(hits))
	for _, h := range hits {
		// Backends can return placeholder rows when the corpus is
		// smaller than k; skip anything without a snippet body.
		if h.Snippet == "" {
			continue
		}
		candidates = append(candidates, datatypes.EvidenceCandidate{
			Snippet:        h.Snippet,
			Source:         h.Source,
			RetrievalScore: h.Certainty,
		})
	}

	span.SetAttributes(attribute.Int("retrieve.candidates", len(candidates)))
	return candidates, nil
}

// embed serializes the embedding call through the model gate.
func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.gate.Acquire(ctx); err != nil {
		// Context death while queued is a deadline concern, not a
		// retrieval fault; let the pipeline classify it.
		return nil, err
	}
	defer r.gate.Release()

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, faults.Retrieval("retrieve.embed", err)
	}
	return vector, nil
}

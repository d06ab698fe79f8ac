// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index abstracts the read-only vector index over pre-embedded
// knowledge snippets. Two backends exist: a Weaviate class for full
// deployments and an embedded chromem-go store for lightweight mode.
package index

import "context"

// SearchHit is one nearest-neighbor result. Certainty is a similarity in
// [0,1]; hits are ordered best similarity first.
type SearchHit struct {
	Snippet   string
	Source    string
	Certainty float64
}

// VectorIndex is the read-only search surface the retriever depends on.
// The corpus itself is built offline; nothing here mutates it.
type VectorIndex interface {
	// Search returns up to k nearest snippets for the query vector.
	Search(ctx context.Context, vector []float32, k int) ([]SearchHit, error)

	// Size reports the number of snippets in the corpus.
	Size(ctx context.Context) (int, error)

	// Topics lists corpus topics grouped by category.
	Topics(ctx context.Context) (map[string][]string, error)

	// Ready probes the backend. A non-nil error means the knowledge
	// base cannot serve queries right now.
	Ready(ctx context.Context) error
}

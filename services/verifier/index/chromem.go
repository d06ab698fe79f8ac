// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const chromemCollection = "knowledge_snippets"

// SeedSnippet is one corpus entry in the lightweight-mode seed file.
// Embedding is optional; entries without one are embedded at load time.
type SeedSnippet struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Topic     string    `json:"topic"`
	Category  string    `json:"category"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// ChromemIndex is the embedded vector index used in lightweight mode,
// when no Weaviate deployment is configured. The corpus lives in process
// memory and is rebuilt from the seed file on every start.
type ChromemIndex struct {
	collection *chromem.Collection

	mu     sync.RWMutex
	topics map[string][]string
}

var _ VectorIndex = (*ChromemIndex)(nil)

// NewChromemIndex builds an empty in-memory index. embedFn is used for
// seed entries that ship without a pre-computed embedding.
func NewChromemIndex(embedFn chromem.EmbeddingFunc) (*ChromemIndex, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(chromemCollection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ChromemIndex{
		collection: col,
		topics:     make(map[string][]string),
	}, nil
}

// LoadSeedFile reads a JSON array of SeedSnippet from path and indexes it.
func (c *ChromemIndex) LoadSeedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", path, err)
	}
	var snippets []SeedSnippet
	if err := json.Unmarshal(data, &snippets); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return c.Load(ctx, snippets)
}

// Load indexes the given snippets and records their topic groupings.
func (c *ChromemIndex) Load(ctx context.Context, snippets []SeedSnippet) error {
	if len(snippets) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(snippets))
	for i, s := range snippets {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("snippet-%d", i),
			Content: s.Text,
			Metadata: map[string]string{
				"source":   s.Source,
				"topic":    s.Topic,
				"category": s.Category,
			},
			Embedding: s.Embedding,
		}
	}
	// Single-writer embedding keeps load deterministic and avoids
	// hammering the embedding backend at startup.
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("index seed snippets: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]map[string]bool)
	for cat, topics := range c.topics {
		seen[cat] = make(map[string]bool)
		for _, t := range topics {
			seen[cat][t] = true
		}
	}
	for _, s := range snippets {
		if s.Topic == "" {
			continue
		}
		cat := s.Category
		if cat == "" {
			cat = "general"
		}
		if seen[cat] == nil {
			seen[cat] = make(map[string]bool)
		}
		seen[cat][s.Topic] = true
	}
	c.topics = make(map[string][]string, len(seen))
	for cat, topics := range seen {
		list := make([]string, 0, len(topics))
		for t := range topics {
			list = append(list, t)
		}
		sort.Strings(list)
		c.topics[cat] = list
	}

	slog.Info("loaded knowledge snippets into embedded index", "count", len(snippets))
	return nil
}

// Search implements VectorIndex.
func (c *ChromemIndex) Search(ctx context.Context, vector []float32, k int) ([]SearchHit, error) {
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem-go requires nResults <= collection size.
	if k > count {
		k = count
	}

	results, err := c.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			Snippet:   r.Content,
			Source:    r.Metadata["source"],
			Certainty: float64(r.Similarity),
		}
	}
	return hits, nil
}

// Size implements VectorIndex.
func (c *ChromemIndex) Size(_ context.Context) (int, error) {
	return c.collection.Count(), nil
}

// Topics implements VectorIndex from the groupings recorded at load.
func (c *ChromemIndex) Topics(_ context.Context) (map[string][]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.topics))
	for cat, topics := range c.topics {
		out[cat] = append([]string(nil), topics...)
	}
	return out, nil
}

// Ready implements VectorIndex.
func (c *ChromemIndex) Ready(_ context.Context) error {
	if c.collection.Count() == 0 {
		return fmt.Errorf("embedded index is empty")
	}
	return nil
}

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
	"sort"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateIndex serves nearest-neighbor queries from a Weaviate class of
// pre-embedded knowledge snippets.
//
// # Description
//
//	Snippets are stored with Vectorizer "none": vectors are produced by
//	the offline corpus build, never by Weaviate itself. Search requests
//	certainty (always [0,1]) rather than distance, which varies by metric.
type WeaviateIndex struct {
	client    *weaviate.Client
	className string
}

var _ VectorIndex = (*WeaviateIndex)(nil)

// NewWeaviateIndex wraps an existing Weaviate client.
func NewWeaviateIndex(client *weaviate.Client, className string) *WeaviateIndex {
	return &WeaviateIndex{client: client, className: className}
}

// snippetSchema returns the class definition for the knowledge corpus.
func (w *WeaviateIndex) snippetSchema() *models.Class {
	return &models.Class{
		Class:       w.className,
		Description: "Pre-embedded knowledge corpus snippet",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "text",
				DataType:     []string{"text"},
				Description:  "The snippet body.",
				Tokenization: "word",
			},
			{
				Name:         "sourceUrl",
				DataType:     []string{"text"},
				Description:  "Where the snippet came from.",
				Tokenization: "field",
			},
			{
				Name:         "topic",
				DataType:     []string{"text"},
				Description:  "Knowledge-base topic the snippet belongs to.",
				Tokenization: "field",
			},
			{
				Name:         "category",
				DataType:     []string{"text"},
				Description:  "Topic category for grouping.",
				Tokenization: "field",
			},
		},
	}
}

// EnsureSchema creates the snippet class if it does not exist yet.
func (w *WeaviateIndex) EnsureSchema(ctx context.Context) error {
	class := w.snippetSchema()
	_, err := w.client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
	if err == nil {
		slog.Info("weaviate schema present", "class", class.Class)
		return nil
	}

	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", class.Class, err)
	}
	slog.Info("created weaviate schema", "class", class.Class)
	return nil
}

// snippetQueryResponse mirrors the GraphQL Get response shape. The inner
// key must match the class name, so decoding goes through a raw map.
type snippetHit struct {
	Text       string `json:"text"`
	SourceURL  string `json:"sourceUrl"`
	Topic      string `json:"topic"`
	Category   string `json:"category"`
	Additional struct {
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}

// Search implements VectorIndex.
func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, k int) ([]SearchHit, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "sourceUrl"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near-vector query: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("near-vector query: %s", result.Errors[0].Message)
	}

	raws, err := w.decodeGetObjects(result)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(raws))
	for _, r := range raws {
		hits = append(hits, SearchHit{
			Snippet:   r.Text,
			Source:    r.SourceURL,
			Certainty: r.Additional.Certainty,
		})
	}
	return hits, nil
}

// decodeGetObjects pulls the per-class object list out of a Get response.
// Marshal/unmarshal keeps the conversion type-safe without walking nested
// interface maps by hand.
func (w *WeaviateIndex) decodeGetObjects(resp *models.GraphQLResponse) ([]snippetHit, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal GraphQL data: %w", err)
	}

	var envelope struct {
		Get map[string][]snippetHit `json:"Get"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal GraphQL data: %w", err)
	}
	return envelope.Get[w.className], nil
}

// Size implements VectorIndex via an aggregate meta count.
func (w *WeaviateIndex) Size(ctx context.Context) (int, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(w.className).
		WithFields(graphql.Field{
			Name: "meta",
			Fields: []graphql.Field{
				{Name: "count"},
			},
		}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate count: %w", err)
	}

	raw, err := json.Marshal(result.Data)
	if err != nil {
		return 0, fmt.Errorf("marshal aggregate data: %w", err)
	}
	var envelope struct {
		Aggregate map[string][]struct {
			Meta struct {
				Count int `json:"count"`
			} `json:"meta"`
		} `json:"Aggregate"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return 0, fmt.Errorf("unmarshal aggregate data: %w", err)
	}
	groups := envelope.Aggregate[w.className]
	if len(groups) == 0 {
		return 0, nil
	}
	return groups[0].Meta.Count, nil
}

// Topics implements VectorIndex. Topic/category pairs are fetched flat
// and grouped in memory; the corpus is small enough for a bounded scan.
func (w *WeaviateIndex) Topics(ctx context.Context) (map[string][]string, error) {
	fields := []graphql.Field{
		{Name: "topic"},
		{Name: "category"},
	}
	result, err := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithFields(fields...).
		WithLimit(10000).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("topics query: %w", err)
	}

	raws, err := w.decodeGetObjects(result)
	if err != nil {
		return nil, err
	}

	return groupTopics(raws), nil
}

func groupTopics(raws []snippetHit) map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, r := range raws {
		if r.Topic == "" {
			continue
		}
		cat := r.Category
		if cat == "" {
			cat = "general"
		}
		if seen[cat] == nil {
			seen[cat] = make(map[string]bool)
		}
		seen[cat][r.Topic] = true
	}

	grouped := make(map[string][]string, len(seen))
	for cat, topics := range seen {
		list := make([]string, 0, len(topics))
		for t := range topics {
			list = append(list, t)
		}
		sort.Strings(list)
		grouped[cat] = list
	}
	return grouped
}

// Ready implements VectorIndex. The index is ready when the class exists
// and holds at least one snippet.
func (w *WeaviateIndex) Ready(ctx context.Context) error {
	n, err := w.Size(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("class %s is empty", w.className)
	}
	return nil
}

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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedEmbed maps known texts to fixed unit vectors so queries are
// deterministic without any embedding backend.
func fixedEmbed(_ context.Context, text string) ([]float32, error) {
	switch text {
	case "paris":
		return []float32{1, 0, 0}, nil
	case "rome":
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func seedSnippets() []SeedSnippet {
	return []SeedSnippet{
		{Text: "Paris is the capital of France.", Source: "https://en.wikipedia.org/wiki/Paris",
			Topic: "Paris", Category: "geography", Embedding: []float32{1, 0, 0}},
		{Text: "Rome is the capital of Italy.", Source: "https://en.wikipedia.org/wiki/Rome",
			Topic: "Rome", Category: "geography", Embedding: []float32{0, 1, 0}},
		{Text: "Water is composed of hydrogen and oxygen.", Source: "https://en.wikipedia.org/wiki/Water",
			Topic: "Water", Category: "science", Embedding: []float32{0, 0, 1}},
	}
}

func TestChromemSearchOrdersBySimilarity(t *testing.T) {
	idx, err := NewChromemIndex(fixedEmbed)
	require.NoError(t, err)
	require.NoError(t, idx.Load(context.Background(), seedSnippets()))

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Contains(t, hits[0].Snippet, "Paris")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Paris", hits[0].Source)
	assert.Greater(t, hits[0].Certainty, hits[1].Certainty)
}

func TestChromemSearchClampsK(t *testing.T) {
	idx, err := NewChromemIndex(fixedEmbed)
	require.NoError(t, err)
	require.NoError(t, idx.Load(context.Background(), seedSnippets()))

	hits, err := idx.Search(context.Background(), []float32{0, 1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestChromemEmptyIndex(t *testing.T) {
	idx, err := NewChromemIndex(fixedEmbed)
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.Error(t, idx.Ready(context.Background()))

	n, err := idx.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChromemTopicsGrouping(t *testing.T) {
	idx, err := NewChromemIndex(fixedEmbed)
	require.NoError(t, err)
	require.NoError(t, idx.Load(context.Background(), seedSnippets()))

	topics, err := idx.Topics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Paris", "Rome"}, topics["geography"])
	assert.Equal(t, []string{"Water"}, topics["science"])
}

func TestChromemLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	data, err := json.Marshal(seedSnippets())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	idx, err := NewChromemIndex(fixedEmbed)
	require.NoError(t, err)
	require.NoError(t, idx.LoadSeedFile(context.Background(), path))

	require.NoError(t, idx.Ready(context.Background()))
	n, err := idx.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGroupTopicsDefaultsCategory(t *testing.T) {
	grouped := groupTopics([]snippetHit{
		{Topic: "Jupiter"},
		{Topic: "Saturn", Category: "astronomy"},
		{Topic: "Jupiter"},
		{},
	})
	assert.Equal(t, []string{"Jupiter"}, grouped["general"])
	assert.Equal(t, []string{"Saturn"}, grouped["astronomy"])
}

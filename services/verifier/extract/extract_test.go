// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOrderAndIndices(t *testing.T) {
	e := NewExtractor(8)
	text := "The Eiffel Tower is in Paris. Water boils at 100 degrees Celsius. The moon orbits the Earth."

	claims := e.Extract(text)
	require.Len(t, claims, 3)

	assert.Equal(t, "The Eiffel Tower is in Paris.", claims[0].Text)
	assert.Equal(t, "Water boils at 100 degrees Celsius.", claims[1].Text)
	assert.Equal(t, "The moon orbits the Earth.", claims[2].Text)
	for i, c := range claims {
		assert.Equal(t, i, c.Index)
	}
}

func TestExtractFiltersQuestions(t *testing.T) {
	e := NewExtractor(8)
	claims := e.Extract("Is the Earth flat? The Earth is round.")
	require.Len(t, claims, 1)
	assert.Equal(t, "The Earth is round.", claims[0].Text)
}

func TestExtractFiltersImperatives(t *testing.T) {
	e := NewExtractor(8)
	claims := e.Extract("Please read the manual carefully. Rust was created at Mozilla.")
	require.Len(t, claims, 1)
	assert.Contains(t, claims[0].Text, "Mozilla")
}

func TestExtractFiltersSubjective(t *testing.T) {
	e := NewExtractor(8)
	claims := e.Extract("I think pizza is the best food ever. Naples is a city in Italy.")
	require.Len(t, claims, 1)
	assert.Contains(t, claims[0].Text, "Naples")
}

func TestExtractRequiresPredicate(t *testing.T) {
	e := NewExtractor(8)
	// No copula, no digit, no predicate token: filtered out.
	claims := e.Extract("Blue sky above green fields forever. The sky is blue.")
	require.Len(t, claims, 1)
	assert.Equal(t, "The sky is blue.", claims[0].Text)
}

func TestExtractCapsAtMaxClaims(t *testing.T) {
	e := NewExtractor(2)
	text := "Gold is a metal. Silver is a metal. Iron is a metal. Copper is a metal."
	claims := e.Extract(text)
	require.Len(t, claims, 2)
	assert.Equal(t, "Gold is a metal.", claims[0].Text)
	assert.Equal(t, "Silver is a metal.", claims[1].Text)
}

func TestExtractEmptyResultIsNotError(t *testing.T) {
	e := NewExtractor(8)
	assert.Empty(t, e.Extract("Why? How? Really?"))
	assert.Empty(t, e.Extract("   "))
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(8)
	text := "Mount Everest is 8849 meters tall. It was first climbed in 1953."
	first := e.Extract(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Extract(text))
	}
}

func TestSplitSentencesKeepsDecimals(t *testing.T) {
	sents := splitSentences("Pi is approximately 3.14159 in value. The value was computed long ago.")
	require.Len(t, sents, 2)
	assert.Contains(t, sents[0], "3.14159")
}

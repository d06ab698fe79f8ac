// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract segments raw text into a bounded, ordered list of
// candidate factual claims.
package extract

import (
	"strings"
	"unicode"

	"github.com/veridict/veridict/services/verifier/datatypes"
)

// subjectiveMarkers flag sentences that express opinion rather than a
// verifiable statement.
var subjectiveMarkers = []string{
	"i think", "i believe", "i feel", "in my opinion", "in my view",
	"personally", "we believe", "arguably", "probably", "hopefully",
	"it seems", "should ", "ought to", "the best", "the worst",
	"beautiful", "terrible", "amazing", "awful",
}

// imperativeOpeners are verb-first sentence starts that read as commands,
// not claims.
var imperativeOpeners = []string{
	"please", "consider", "remember", "note that", "imagine", "let",
	"try", "click", "see", "look", "check", "go", "read", "visit",
	"do not", "don't", "make sure",
}

// predicateTokens are copulas and auxiliaries whose presence marks a
// sentence as carrying a verifiable predicate. Sentences containing a
// digit also qualify (dates, quantities, measurements).
var predicateTokens = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "has": true,
	"have": true, "had": true, "will": true, "can": true, "contains": true,
	"consists": true, "became": true, "become": true, "remains": true,
	"holds": true, "won": true, "lost": true, "measures": true,
	"borders": true, "orbits": true, "discovered": true, "invented": true,
	"founded": true, "established": true, "located": true, "born": true,
	"died": true, "wrote": true, "built": true, "produces": true,
	"causes": true, "means": true, "equals": true,
}

// Extractor splits input text into candidate factual claims.
//
// # Description
//
//	Extraction is fully deterministic: the same input always yields the
//	same claim list. Sentences are segmented on terminal punctuation,
//	filtered by lightweight heuristics (questions, imperatives, subjective
//	statements, sentences with no verifiable predicate), and truncated to
//	maxClaims preserving original order.
//
// # Limitations
//
//	Heuristic filtering only. Complex rhetorical structure (sarcasm,
//	counterfactuals, embedded quotes) is not understood; such sentences
//	pass through and rely on retrieval/entailment to score them low.
type Extractor struct {
	maxClaims int
}

// NewExtractor returns an Extractor capped at maxClaims claims per input.
func NewExtractor(maxClaims int) *Extractor {
	return &Extractor{maxClaims: maxClaims}
}

// Extract segments text into at most maxClaims ordered claims. A result
// of zero claims is valid, not an error.
func (e *Extractor) Extract(text string) []datatypes.Claim {
	sentences := splitSentences(text)

	claims := make([]datatypes.Claim, 0, len(sentences))
	for _, s := range sentences {
		if !isFactualCandidate(s) {
			continue
		}
		claims = append(claims, datatypes.Claim{Text: s, Index: len(claims)})
		if len(claims) == e.maxClaims {
			break
		}
	}
	return claims
}

// splitSentences segments on terminal punctuation. A terminator only ends
// a sentence when followed by whitespace or end of input, which keeps
// common abbreviations and decimal numbers intact.
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i+1 == len(runes)
		if !atEnd && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isFactualCandidate applies the claim filters to one sentence.
func isFactualCandidate(s string) bool {
	if len(s) < 10 {
		return false
	}
	if strings.HasSuffix(s, "?") {
		return false
	}

	lower := strings.ToLower(s)
	for _, m := range subjectiveMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}
	for _, op := range imperativeOpeners {
		if strings.HasPrefix(lower, op+" ") || lower == op {
			return false
		}
	}
	return hasVerifiablePredicate(lower)
}

// hasVerifiablePredicate requires either a known predicate token or a
// digit somewhere in the sentence.
func hasVerifiablePredicate(lower string) bool {
	for _, r := range lower {
		if unicode.IsDigit(r) {
			return true
		}
	}
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if predicateTokens[tok] {
			return true
		}
	}
	return false
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ClassifyRequest is the body of POST /classify.
//
// # Fields
//
//   - Text: the passage to verify. Length bounds enforced at binding time.
//   - UseNLIContext: optional override of the server-wide hypothesis
//     prefix flag. Nil means "use the configured default".
type ClassifyRequest struct {
	Text          string `json:"text" binding:"required,min=10,max=5000"`
	UseNLIContext *bool  `json:"use_nli_context,omitempty"`
}

// HealthResponse reports service liveness and knowledge-base size.
type HealthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
	KBSize       int    `json:"kb_size"`
}

// CacheInfoResponse exposes response-cache occupancy for debugging.
// No invariants depend on these numbers.
type CacheInfoResponse struct {
	Size    int    `json:"size"`
	MaxSize int    `json:"maxsize"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// TopicsResponse lists knowledge-base topics grouped by category.
type TopicsResponse struct {
	TotalTopics int                 `json:"total_topics"`
	Categories  map[string][]string `json:"categories"`
}

// ErrorResponse is the uniform error envelope. Code is the stable
// machine-readable failure kind; RetryAfterSeconds accompanies 429/503.
type ErrorResponse struct {
	Error             string  `json:"error"`
	Code              string  `json:"code"`
	RetryAfterSeconds float64 `json:"retry_after_seconds,omitempty"`
}

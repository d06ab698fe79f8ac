// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/veridict/veridict/services/verifier/datatypes"
)

// serviceClient is a thin HTTP client for a running verifier service.
type serviceClient struct {
	baseURL string
	http    *http.Client
}

func newServiceClient(baseURL string, timeout time.Duration) *serviceClient {
	return &serviceClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Classify submits text for verification.
func (c *serviceClient) Classify(ctx context.Context, text string) (*datatypes.ClassificationResult, error) {
	body, err := json.Marshal(datatypes.ClassifyRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call verifier service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e datatypes.ErrorResponse
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(payload, &e) == nil && e.Error != "" {
			if e.RetryAfterSeconds > 0 {
				return nil, fmt.Errorf("%s (retry after %.0fs)", e.Error, e.RetryAfterSeconds)
			}
			return nil, fmt.Errorf("%s", e.Error)
		}
		return nil, fmt.Errorf("service returned %d", resp.StatusCode)
	}

	var result datatypes.ClassificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// Health fetches the service health report.
func (c *serviceClient) Health(ctx context.Context) (*datatypes.HealthResponse, int, error) {
	var out datatypes.HealthResponse
	status, err := c.getJSON(ctx, "/health", &out)
	return &out, status, err
}

// Topics fetches the knowledge-base topic listing.
func (c *serviceClient) Topics(ctx context.Context) (*datatypes.TopicsResponse, error) {
	var out datatypes.TopicsResponse
	if _, err := c.getJSON(ctx, "/topics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CacheInfo fetches response-cache occupancy.
func (c *serviceClient) CacheInfo(ctx context.Context) (*datatypes.CacheInfoResponse, error) {
	var out datatypes.CacheInfoResponse
	if _, err := c.getJSON(ctx, "/cache-info", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *serviceClient) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call verifier service: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

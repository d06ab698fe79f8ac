// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache memoizes full pipeline results per normalized input,
// bounded by TTL and capacity, with single-flight execution per key.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/veridict/veridict/services/verifier/datatypes"
)

// Key derives the cache key from raw input text: whitespace-normalize,
// then hash. Collision resistance matters because distinct inputs must
// never share a memoized verdict.
func Key(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	key       string
	value     *datatypes.ClassificationResult
	expiresAt time.Time
}

// ResponseCache is a TTL + LRU bounded memo of ClassificationResults.
//
// # Description
//
//	Get after expiry behaves as a miss and removes the stale entry (lazy
//	expiry). Capacity pressure evicts the least-recently-used entry
//	independent of TTL. GetOrCompute adds single-flight semantics:
//	concurrent callers for the same missing key trigger exactly one
//	compute; all of them receive the same result or the same error.
//	Errors are never stored, so the next request retries the pipeline.
//
//	Entries are immutable after insertion; updates replace the whole
//	entry. Correctness never depends on the cache, only latency does.
//
// # Thread Safety
//
//	All methods are safe for concurrent use.
type ResponseCache struct {
	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element
	maxSize int
	ttl     time.Duration

	flight singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

// NewResponseCache builds a cache bounded to maxSize entries, each
// expiring ttl after insertion.
func NewResponseCache(maxSize int, ttl time.Duration) *ResponseCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &ResponseCache{
		order:   list.New(),
		entries: make(map[string]*list.Element),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the memoized result for key, or nil on miss. A hit marks
// the entry most recently used.
func (c *ResponseCache) Get(key string) *datatypes.ClassificationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil
	}
	ent := elem.Value.(*entry)
	if c.now().After(ent.expiresAt) {
		// Lazy expiry: stale entries leave on the next lookup.
		c.order.Remove(elem)
		delete(c.entries, key)
		c.misses.Add(1)
		return nil
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return ent.value
}

// Put stores value under key, evicting the least-recently-used entry
// when the capacity bound is exceeded.
func (c *ResponseCache) Put(key string, value *datatypes.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		// Replace whole entry; never mutate in place.
		elem.Value = &entry{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&entry{key: key, value: value, expiresAt: c.now().Add(c.ttl)})
	c.entries[key] = elem

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}
}

// GetOrCompute returns the cached result for key or runs compute exactly
// once across concurrent callers. The boolean reports a cache hit.
func (c *ResponseCache) GetOrCompute(ctx context.Context, key string,
	compute func(ctx context.Context) (*datatypes.ClassificationResult, error),
) (*datatypes.ClassificationResult, bool, error) {

	if v := c.Get(key); v != nil {
		return v, true, nil
	}

	result, err, _ := c.flight.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a sibling may have stored the
		// result between our miss and the flight starting.
		if v := c.Get(key); v != nil {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return result.(*datatypes.ClassificationResult), false, nil
}

// Len reports current occupancy.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// MaxSize reports the capacity bound.
func (c *ResponseCache) MaxSize() int { return c.maxSize }

// Stats reports lifetime hit/miss counters.
func (c *ResponseCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// SetClock swaps the time source. Test hook.
func (c *ResponseCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridict/veridict/services/verifier/datatypes"
)

func result(verdict datatypes.Verdict) *datatypes.ClassificationResult {
	return &datatypes.ClassificationResult{
		Overall:    verdict,
		Confidence: 0.9,
		Claims:     []datatypes.ClaimResult{},
	}
}

func TestKeyNormalizesWhitespace(t *testing.T) {
	assert.Equal(t, Key("the  sky   is blue"), Key("the sky is\nblue"))
	assert.NotEqual(t, Key("the sky is blue"), Key("the sky is red"))
}

func TestGetBeforeExpiryReturnsIdenticalResult(t *testing.T) {
	c := NewResponseCache(10, time.Minute)
	v := result(datatypes.VerdictSupported)
	c.Put("k", v)

	got := c.Get("k")
	require.NotNil(t, got)
	assert.Same(t, v, got)
}

func TestGetAfterExpiryIsMissAndRemoves(t *testing.T) {
	c := NewResponseCache(10, 300*time.Second)
	base := time.Now()
	c.SetClock(func() time.Time { return base })

	c.Put("k", result(datatypes.VerdictSupported))
	require.NotNil(t, c.Get("k"))
	assert.Equal(t, 1, c.Len())

	c.SetClock(func() time.Time { return base.Add(301 * time.Second) })
	assert.Nil(t, c.Get("k"))
	// Lazy expiry physically removed the stale entry.
	assert.Equal(t, 0, c.Len())
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	c := NewResponseCache(3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), result(datatypes.VerdictSupported))
	}

	// Touch k0 so k1 becomes least recently used.
	require.NotNil(t, c.Get("k0"))

	c.Put("k3", result(datatypes.VerdictSupported))

	assert.Equal(t, 3, c.Len())
	assert.NotNil(t, c.Get("k0"))
	assert.Nil(t, c.Get("k1"))
	assert.NotNil(t, c.Get("k2"))
	assert.NotNil(t, c.Get("k3"))
}

func TestMaxSizePlusOneEvictsExactlyLRU(t *testing.T) {
	const maxSize = 5
	c := NewResponseCache(maxSize, time.Minute)
	for i := 0; i <= maxSize; i++ {
		c.Put(fmt.Sprintf("k%d", i), result(datatypes.VerdictSupported))
	}

	assert.Equal(t, maxSize, c.Len())
	assert.Nil(t, c.Get("k0"))
	for i := 1; i <= maxSize; i++ {
		assert.NotNil(t, c.Get(fmt.Sprintf("k%d", i)), "k%d should survive", i)
	}
}

func TestSingleFlightDeduplicatesConcurrentMisses(t *testing.T) {
	c := NewResponseCache(10, time.Minute)

	var executions atomic.Int64
	release := make(chan struct{})
	compute := func(_ context.Context) (*datatypes.ClassificationResult, error) {
		executions.Add(1)
		<-release
		return result(datatypes.VerdictSupported), nil
	}

	const n = 10
	results := make([]*datatypes.ClassificationResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrCompute(context.Background(), "same-key", compute)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let goroutines pile onto the flight
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), executions.Load())
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestSingleFlightPropagatesSharedError(t *testing.T) {
	c := NewResponseCache(10, time.Minute)
	boom := errors.New("pipeline exploded")

	var executions atomic.Int64
	release := make(chan struct{})
	compute := func(_ context.Context) (*datatypes.ClassificationResult, error) {
		executions.Add(1)
		<-release
		return nil, boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = c.GetOrCompute(context.Background(), "k", compute)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), executions.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
	// Errors are not cached; the next call recomputes.
	assert.Equal(t, 0, c.Len())
}

func TestGetOrComputeHitSkipsCompute(t *testing.T) {
	c := NewResponseCache(10, time.Minute)
	c.Put("k", result(datatypes.VerdictContradicted))

	v, hit, err := c.GetOrCompute(context.Background(), "k",
		func(_ context.Context) (*datatypes.ClassificationResult, error) {
			t.Fatal("compute must not run on a hit")
			return nil, nil
		})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, datatypes.VerdictContradicted, v.Overall)
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	c := NewResponseCache(10, time.Minute)
	c.Put("k", result(datatypes.VerdictSupported))

	c.Get("k")
	c.Get("k")
	c.Get("missing")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ratelimit implements per-client token-bucket admission control
// for the verification pipeline.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleEviction is how long a client bucket may sit unused before the
// lazy sweep drops it. Not required for correctness, only for memory.
const idleEviction = 10 * time.Minute

// sweepEvery bounds how often the lazy sweep walks the bucket table.
const sweepEvery = 256

// Limiter admits requests per client identity.
//
// # Description
//
//	Each client gets a token bucket refilled at the configured per-minute
//	rate. The bucket's capacity is the full per-minute allowance plus the
//	burst headroom, so a fresh client can spend a whole minute's budget
//	up front and still absorb a short spike. Refill is computed from
//	elapsed time inside x/time/rate, never from a background timer.
//
//	Admission happens before any cache lookup, so cached responses are
//	rate limited too. That is a fairness decision, not an optimization
//	target.
//
// # Thread Safety
//
//	Safe for concurrent use, including concurrent requests from the same
//	client.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	cap     int

	opsSinceSweep int
	now           func() time.Time
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLimiter builds a limiter refilling perMinute tokens per minute with
// burst extra headroom per client.
func NewLimiter(perMinute float64, burst int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst < 0 {
		burst = 0
	}
	return &Limiter{
		clients: make(map[string]*clientBucket),
		limit:   rate.Limit(perMinute / 60.0),
		cap:     int(perMinute) + burst,
		now:     time.Now,
	}
}

// Allow reports whether clientID may proceed now. On denial, retryAfter
// is the wait derived from the bucket's refill schedule, always positive.
func (l *Limiter) Allow(clientID string) (ok bool, retryAfter time.Duration) {
	bucket := l.bucket(clientID)

	r := bucket.lim.Reserve()
	if !r.OK() {
		return false, time.Minute
	}
	delay := r.Delay()
	if delay > 0 {
		// Not admitting: hand the token back so the denial itself
		// does not consume budget.
		r.Cancel()
		return false, delay
	}
	return true, 0
}

// bucket returns the bucket for clientID, creating it on first sight and
// opportunistically sweeping idle buckets.
func (l *Limiter) bucket(clientID string) *clientBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.opsSinceSweep++
	if l.opsSinceSweep >= sweepEvery {
		l.opsSinceSweep = 0
		cutoff := l.now().Add(-idleEviction)
		for id, b := range l.clients {
			if b.lastSeen.Before(cutoff) {
				delete(l.clients, id)
			}
		}
	}

	b, ok := l.clients[clientID]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(l.limit, l.cap)}
		l.clients[clientID] = b
	}
	b.lastSeen = l.now()
	return b
}

// Clients reports the number of tracked buckets. Debug surface.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

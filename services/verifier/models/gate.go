// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package models

import "context"

// Gate serializes access to inference backends that are not safely
// parallelizable within a process.
//
// # Description
//
//	A bounded worker expressed as a counting semaphore. The verification
//	pipeline routes every model-bound call (embedding, entailment scoring)
//	through a Gate of width 1, queuing callers in arrival order. Acquire
//	honors context cancellation so a deadline breach never leaves a caller
//	parked on the semaphore.
//
// # Examples
//
//	gate := models.NewGate(1)
//	if err := gate.Acquire(ctx); err != nil {
//	    return err
//	}
//	defer gate.Release()
//	vec, err := embedder.Embed(ctx, text)
type Gate struct {
	slots chan struct{}
}

// NewGate returns a Gate admitting width concurrent holders. Width below
// one is coerced to one.
func NewGate(width int) *Gate {
	if width < 1 {
		width = 1
	}
	return &Gate{slots: make(chan struct{}, width)}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. Must pair with a successful Acquire.
func (g *Gate) Release() {
	<-g.slots
}

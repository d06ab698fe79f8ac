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

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/veridict/veridict/services/verifier/faults"
)

// Manager owns the inference backends and their lifecycle.
//
// # Description
//
//	Construction wires the embedder, the entailment scorer and the
//	serialization Gate but performs no I/O. Init probes the backends and
//	flips the readiness gate; the HTTP layer refuses classification
//	traffic until Ready reports true. Shutdown flips readiness off so
//	in-flight requests drain and new ones are rejected with a retryable
//	not-ready signal.
//
// # Thread Safety
//
//	All methods are safe for concurrent use.
type Manager struct {
	embedder Embedder
	scorer   EntailmentScorer
	gate     *Gate

	ready    atomic.Bool
	initOnce sync.Once
	initErr  error
}

// NewManager wires the backends. Call Init before serving traffic.
func NewManager(embedder Embedder, scorer EntailmentScorer, gate *Gate) *Manager {
	return &Manager{embedder: embedder, scorer: scorer, gate: gate}
}

// Init probes both backends once and marks the manager ready on success.
// Subsequent calls return the first outcome.
func (m *Manager) Init(ctx context.Context) error {
	m.initOnce.Do(func() {
		if err := m.gate.Acquire(ctx); err != nil {
			m.initErr = faults.NotReady("manager.init", err.Error())
			return
		}
		defer m.gate.Release()

		if _, err := m.embedder.Embed(ctx, "readiness probe"); err != nil {
			slog.Error("embedding backend probe failed", "error", err)
			m.initErr = faults.NotReady("manager.init", "embedding backend unavailable")
			return
		}
		if _, err := m.scorer.Score(ctx, "The sky is blue.", "The sky has a color."); err != nil {
			slog.Error("entailment backend probe failed", "error", err)
			m.initErr = faults.NotReady("manager.init", "entailment backend unavailable")
			return
		}

		m.ready.Store(true)
		slog.Info("model manager ready")
	})
	return m.initErr
}

// Ready reports whether both backends passed their probes and the
// manager has not been shut down.
func (m *Manager) Ready() bool { return m.ready.Load() }

// RequireReady returns a retryable not-ready fault when the manager
// cannot serve.
func (m *Manager) RequireReady() error {
	if !m.ready.Load() {
		return faults.NotReady("manager.require", "models not loaded")
	}
	return nil
}

// Embedder returns the wired embedding backend.
func (m *Manager) Embedder() Embedder { return m.embedder }

// Scorer returns the wired entailment backend.
func (m *Manager) Scorer() EntailmentScorer { return m.scorer }

// Gate returns the shared model-execution gate.
func (m *Manager) Gate() *Gate { return m.gate }

// Shutdown marks the manager unready. Idempotent.
func (m *Manager) Shutdown() {
	if m.ready.Swap(false) {
		slog.Info("model manager shut down")
	}
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictPlainPassthrough(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	assert.Equal(t, "SUPPORTED", Verdict("SUPPORTED"))
	assert.Equal(t, "CONTRADICTED", Verdict("CONTRADICTED"))
	assert.Equal(t, "UNCERTAIN", Verdict("UNCERTAIN"))
}

func TestVerdictUnknownLabelUnstyled(t *testing.T) {
	// Labels outside the verdict vocabulary pass through untouched even
	// when styling is on.
	assert.Equal(t, "PENDING", Verdict("PENDING"))
}

func TestVerdictKeepsLabelText(t *testing.T) {
	for _, label := range []string{"SUPPORTED", "CONTRADICTED", "UNCERTAIN"} {
		rendered := Verdict(label)
		assert.True(t, strings.Contains(rendered, label),
			"rendered verdict must contain the label text: %q", rendered)
	}
}

func TestMutedPlainPassthrough(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	assert.Equal(t, "source: kb", Muted("source: kb"))
}

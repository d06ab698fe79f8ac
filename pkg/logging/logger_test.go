// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerUsable(t *testing.T) {
	logger := Default()
	require.NotNil(t, logger)
	logger.Info("smoke test", "k", "v")
	require.NoError(t, logger.Close())
}

func TestFileLoggingWritesJSON(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: LevelDebug, LogDir: dir, Service: "test"})
	require.NoError(t, err)

	logger.Info("hello from file", "answer", 42)
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "test_")

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "hello from file", record["msg"])
	assert.Equal(t, "test", record["service"])
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: LevelWarn, LogDir: dir, Service: "test"})
	require.NoError(t, err)

	logger.Debug("should be filtered")
	logger.Warn("should appear")
	require.NoError(t, logger.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	assert.NotContains(t, string(data), "should be filtered")
	assert.Contains(t, string(data), "should appear")
}

// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Veridict components.
//
// The service itself logs JSON to stdout via slog directly; this package
// serves the CLI, which follows Unix conventions (stderr by default) and
// optionally mirrors to a JSON log file for troubleshooting.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("classifying text", "len", len(text))
//
// # File Logging
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  "~/.veridict/logs",
//	    Service: "cli",
//	})
//	defer logger.Close()
//
// # Security Considerations
//
// Nothing here redacts sensitive data. Callers must keep API keys and
// tokens out of log attributes.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity emitted.
	Level Level

	// LogDir enables file logging when non-empty. Supports ~ expansion.
	// Files are named {service}_{date}.log in JSON format.
	LogDir string

	// Service tags log entries and names the log file.
	Service string
}

// Logger wraps slog with optional file mirroring. Safe for concurrent
// use; Close flushes and closes the file if one is open.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Default returns a stderr-only logger at Info level.
func Default() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))}
}

// New builds a logger from cfg. With LogDir set, entries go to stderr as
// text and to the log file as JSON.
func New(cfg Config) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}

	if cfg.LogDir == "" {
		return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, opts))}, nil
	}

	dir, err := expandHome(cfg.LogDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}

	service := cfg.Service
	if service == "" {
		service = "veridict"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(dir, name),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(file), opts)
	logger := slog.New(handler).With("service", service)
	return &Logger{Logger: logger, file: file}, nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

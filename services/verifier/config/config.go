// Copyright (C) 2025 Veridict Labs (oss@veridict.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads verifier service configuration from a YAML file
// with environment-variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the verifier service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Models    ModelsConfig    `yaml:"models"`
	Index     IndexConfig     `yaml:"index"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PipelineConfig controls claim extraction and scoring policy.
//
// # Fields
//
//   - MaxClaims: ceiling on extracted claims per request.
//   - TopKProofs: evidence candidates retrieved per claim.
//   - TruthThreshold: nli_score at or above which a claim is SUPPORTED.
//   - FalsehoodThreshold: nli_score below which a claim is CONTRADICTED.
//   - Deadline: wall-clock bound for one full pipeline run.
//   - UseNLIContext: default for the "Established fact:" hypothesis prefix.
type PipelineConfig struct {
	MaxClaims          int           `yaml:"max_claims"`
	TopKProofs         int           `yaml:"top_k_proofs"`
	TruthThreshold     float64       `yaml:"truth_threshold"`
	FalsehoodThreshold float64       `yaml:"falsehood_threshold"`
	Deadline           time.Duration `yaml:"deadline"`
	UseNLIContext      bool          `yaml:"use_nli_context"`
}

// CacheConfig bounds the response cache.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

// RateLimitConfig controls per-client admission.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// ModelsConfig points at the external inference backends.
//
// The embedding backend speaks the OpenAI embeddings API (any compatible
// server works); the entailment backend is a plain HTTP scoring service.
type ModelsConfig struct {
	EmbeddingBaseURL string        `yaml:"embedding_base_url"`
	EmbeddingModel   string        `yaml:"embedding_model"`
	EmbeddingAPIKey  string        `yaml:"-"`
	NLIBaseURL       string        `yaml:"nli_base_url"`
	NLITimeout       time.Duration `yaml:"nli_timeout"`
}

// IndexConfig selects the vector-index backend. An empty WeaviateURL
// switches the service into lightweight mode with an embedded index.
type IndexConfig struct {
	WeaviateURL string `yaml:"weaviate_url"`
	ClassName   string `yaml:"class_name"`
	SeedPath    string `yaml:"seed_path"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the built-in configuration. Values mirror the service's
// documented defaults and are safe for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "12310",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxClaims:          8,
			TopKProofs:         6,
			TruthThreshold:     0.85,
			FalsehoodThreshold: 0.4,
			Deadline:           45 * time.Second,
			UseNLIContext:      false,
		},
		Cache: CacheConfig{
			TTL:     300 * time.Second,
			MaxSize: 100,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 10,
			Burst:             3,
		},
		Models: ModelsConfig{
			EmbeddingModel: "text-embedding-3-small",
			NLITimeout:     30 * time.Second,
		},
		Index: IndexConfig{
			ClassName: "KnowledgeSnippet",
		},
	}
}

// Load reads the YAML file at path, overlays it on the defaults, then
// applies environment overrides. A missing file is not an error; the
// defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays deployment settings from the environment. Only
// settings that vary per deployment are overridable; scoring policy
// stays in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("VERIDICT_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("WEAVIATE_SERVICE_URL"); v != "" {
		c.Index.WeaviateURL = v
	}
	if v := os.Getenv("VERIDICT_SEED_PATH"); v != "" {
		c.Index.SeedPath = v
	}
	if v := os.Getenv("EMBEDDING_BASE_URL"); v != "" {
		c.Models.EmbeddingBaseURL = v
	}
	if v := os.Getenv("EMBEDDING_MODEL_NAME"); v != "" {
		c.Models.EmbeddingModel = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		c.Models.EmbeddingAPIKey = v
	}
	if v := os.Getenv("NLI_SERVICE_URL"); v != "" {
		c.Models.NLIBaseURL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("USE_NLI_CONTEXT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Pipeline.UseNLIContext = b
		}
	}
}

func (c *Config) validate() error {
	if c.Pipeline.MaxClaims <= 0 {
		return fmt.Errorf("pipeline.max_claims must be positive, got %d", c.Pipeline.MaxClaims)
	}
	if c.Pipeline.TopKProofs <= 0 {
		return fmt.Errorf("pipeline.top_k_proofs must be positive, got %d", c.Pipeline.TopKProofs)
	}
	if c.Pipeline.FalsehoodThreshold < 0 || c.Pipeline.TruthThreshold > 1 ||
		c.Pipeline.FalsehoodThreshold >= c.Pipeline.TruthThreshold {
		return fmt.Errorf("thresholds must satisfy 0 <= falsehood < truth <= 1, got %v/%v",
			c.Pipeline.FalsehoodThreshold, c.Pipeline.TruthThreshold)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive, got %v",
			c.RateLimit.RequestsPerMinute)
	}
	return nil
}

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
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	chromem "github.com/philippgille/chromem-go"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/veridict/veridict/services/verifier/cache"
	"github.com/veridict/veridict/services/verifier/config"
	"github.com/veridict/veridict/services/verifier/extract"
	"github.com/veridict/veridict/services/verifier/index"
	"github.com/veridict/veridict/services/verifier/middleware"
	"github.com/veridict/veridict/services/verifier/models"
	"github.com/veridict/veridict/services/verifier/observability"
	"github.com/veridict/veridict/services/verifier/pipeline"
	"github.com/veridict/veridict/services/verifier/ratelimit"
	"github.com/veridict/veridict/services/verifier/retrieve"
	"github.com/veridict/veridict/services/verifier/routes"
	"github.com/veridict/veridict/services/verifier/verify"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	if endpoint == "" {
		endpoint = "veridict-otel-collector:4317"
	}
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("verifier-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// buildIndex picks the vector-index backend: Weaviate when configured and
// parseable, otherwise the embedded chromem store (lightweight mode).
func buildIndex(cfg *config.Config, embedder models.Embedder, gate *models.Gate) index.VectorIndex {
	weaviateURL := strings.Trim(cfg.Index.WeaviateURL, "\"' ")

	if weaviateURL != "" && strings.Contains(weaviateURL, "http") {
		parsedURL, err := url.Parse(weaviateURL)
		if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
			slog.Warn("weaviate URL is invalid, falling back to lightweight mode",
				"url", weaviateURL, "error", err)
		} else {
			client, err := weaviate.NewClient(weaviate.Config{
				Host:   parsedURL.Host,
				Scheme: parsedURL.Scheme,
			})
			if err != nil {
				slog.Error("failed to create weaviate client", "error", err)
			} else {
				idx := index.NewWeaviateIndex(client, cfg.Index.ClassName)
				if err := idx.EnsureSchema(context.Background()); err != nil {
					slog.Error("weaviate schema check failed", "error", err)
				}
				return idx
			}
		}
	} else {
		slog.Info("no weaviate configured, running in lightweight mode (embedded index)")
	}

	embedFn := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		if err := gate.Acquire(ctx); err != nil {
			return nil, err
		}
		defer gate.Release()
		return embedder.Embed(ctx, text)
	})
	idx, err := index.NewChromemIndex(embedFn)
	if err != nil {
		log.Fatalf("FATAL: could not create embedded index: %v", err)
	}
	if cfg.Index.SeedPath != "" {
		if err := idx.LoadSeedFile(context.Background(), cfg.Index.SeedPath); err != nil {
			slog.Error("failed to load seed snippets", "path", cfg.Index.SeedPath, "error", err)
		}
	}
	return idx
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("VERIDICT_CONFIG"))
	if err != nil {
		log.Fatalf("FATAL: could not load configuration: %v", err)
	}

	cleanup, err := initTracer(cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	// Single model-execution slot: the inference backends are treated as
	// not safely parallelizable within a process.
	gate := models.NewGate(1)
	embedder := models.NewOpenAIEmbedder(cfg.Models.EmbeddingBaseURL,
		cfg.Models.EmbeddingAPIKey, cfg.Models.EmbeddingModel)
	scorer := models.NewHTTPScorer(cfg.Models.NLIBaseURL, cfg.Models.NLITimeout)
	manager := models.NewManager(embedder, scorer, gate)

	idx := buildIndex(cfg, embedder, gate)

	retriever := retrieve.NewRetriever(embedder, idx, gate, cfg.Pipeline.TopKProofs)
	verifier := verify.NewVerifier(scorer, gate, cfg.Pipeline.UseNLIContext)
	runner := pipeline.New(extract.NewExtractor(cfg.Pipeline.MaxClaims), retriever, verifier, cfg.Pipeline)

	deps := routes.Deps{
		Runner:  runner,
		Cache:   cache.NewResponseCache(cfg.Cache.MaxSize, cfg.Cache.TTL),
		Manager: manager,
		Index:   idx,
		Limiter: ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		Metrics: observability.NewVerifierMetrics(),
	}

	// Readiness gate: probe the backends in the background; /classify
	// answers 503 until Init succeeds.
	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := manager.Init(initCtx); err != nil {
			slog.Error("model manager initialization failed", "error", err)
			return
		}
		if err := idx.Ready(initCtx); err != nil {
			slog.Warn("knowledge base not ready at startup", "error", err)
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("verifier-service"))
	router.Use(middleware.RequestID())
	routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("verifier service listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: server error: %v", err)
		}
	}()

	stop, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	slog.Info("shutting down")
	manager.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// Command server runs the ragserver HTTP API: document ingestion, hybrid
// retrieval, and LLM-gated chat over an in-process index.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/corpusline/ragserver/internal/config"
	"github.com/corpusline/ragserver/internal/httpapi"
	"github.com/corpusline/ragserver/internal/llm"
	"github.com/corpusline/ragserver/internal/logging"
	"github.com/corpusline/ragserver/internal/observability"
	"github.com/corpusline/ragserver/internal/rag/embedder"
	"github.com/corpusline/ragserver/internal/rag/index"
	"github.com/corpusline/ragserver/internal/rag/memory"
	"github.com/corpusline/ragserver/internal/rag/obs"
	"github.com/corpusline/ragserver/internal/rag/router"
)

func main() {
	cfg := config.Load()

	base := logging.New(cfg.LogLevel)
	log.Logger = base
	appLog := obs.NewZerologLogger(base)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMeter, err := observability.InitMeterProvider(ctx, "ragserver")
	if err != nil {
		base.Warn().Err(err).Msg("otel init failed, continuing without metrics")
		shutdownMeter = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownMeter(context.Background()) }()
	metrics := obs.NewOtelMetrics()

	gw := buildGateway(cfg)
	emb := buildEmbedder(cfg)
	idx := index.New(emb, index.WithLogger(appLog))
	history := memory.NewStore()

	chatRouter := router.New(idx, history, gw,
		router.WithLogger(appLog),
		router.WithMetrics(metrics),
		router.WithOptions(router.Options{
			RelevanceThreshold: cfg.RelevanceThreshold,
			FallbackThreshold:  cfg.FallbackThreshold,
			RetrievalK:         cfg.RetrievalK,
			FallbackK:          cfg.FallbackK,
			HistoryWindow:      cfg.HistoryWindow,
		}),
	)

	srv := httpapi.NewServer(httpapi.Config{
		Index:        idx,
		Router:       chatRouter,
		History:      history,
		Gateway:      gw,
		Logger:       appLog,
		Metrics:      metrics,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		DefaultModel: cfg.DefaultModel,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv,
	}

	go func() {
		base.Info().Int("port", cfg.Port).Msg("ragserver listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			base.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	base.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		base.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildGateway wires providers in fixed preference order: a local
// OpenAI-compatible server first (fastest, no cost), then OpenAI, then
// Anthropic. Missing credentials are not fatal; the gateway degrades.
func buildGateway(cfg config.Config) *llm.Gateway {
	var providers []llm.Provider
	if cfg.LocalLLMBaseURL != "" {
		providers = append(providers, llm.NewLocal(cfg.LocalLLMBaseURL, cfg.LocalLLMModel))
	}
	providers = append(providers, llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL))
	providers = append(providers, llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL))
	return llm.NewGateway(providers...)
}

func buildEmbedder(cfg config.Config) embedder.Embedder {
	gw := embedder.NewGateway(func() embedder.Embedder {
		if cfg.EmbeddingEndpoint == "" {
			return embedder.NewDeterministic(cfg.EmbeddingDimension)
		}
		return embedder.NewHTTP(cfg.EmbeddingEndpoint, cfg.EmbeddingModel, cfg.EmbeddingDimension, cfg.BatchSize)
	})
	return gw.Get()
}

// Package main implements the census search API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/WessleyAI/census-search/engine/catalog"
	"github.com/WessleyAI/census-search/engine/chunks"
	"github.com/WessleyAI/census-search/engine/domain"
	"github.com/WessleyAI/census-search/engine/semantic"
	"github.com/WessleyAI/census-search/engine/vectorsearch"
	"github.com/WessleyAI/census-search/pkg/metrics"
	"github.com/WessleyAI/census-search/pkg/natsutil"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultChunkBaseURL = "https://67f29c41c2817a5c8a60cef7--polite-sunshine-a568af.netlify.app/chunks_by_size"
	defaultCatalogURL   = "https://67f29c41c2817a5c8a60cef7--polite-sunshine-a568af.netlify.app/datasets.json"
)

// Config holds all environment-based configuration.
type Config struct {
	Port             string
	IndexPath        string
	ChunkMapPath     string
	ChunkBaseURL     string
	CatalogURL       string
	CatalogSharedURL string
	IndexBackend     string
	QdrantURL        string
	Collection       string
	DedupeFetches    bool
	FetchTimeout     time.Duration
	CORSOrigin       string
	RateLimitRPS     float64
	RateLimitBurst   int
	NATSURL          string
	NATSSubject      string
	MetricsEnabled   bool
}

func loadConfig() (Config, error) {
	cfg := Config{
		Port:             envOr("PORT", "8080"),
		IndexPath:        envOr("INDEX_PATH", "data/census_index.faiss"),
		ChunkMapPath:     envOr("CHUNK_MAP_PATH", "data/chunk_map.json"),
		ChunkBaseURL:     envOr("CHUNK_BASE_URL", defaultChunkBaseURL),
		CatalogURL:       envOr("CATALOG_URL", defaultCatalogURL),
		CatalogSharedURL: envOr("CATALOG_SHARED_URL", ""),
		IndexBackend:     envOr("INDEX_BACKEND", "file"),
		QdrantURL:        envOr("QDRANT_URL", "localhost:6334"),
		Collection:       envOr("QDRANT_COLLECTION", "census"),
		CORSOrigin:       envOr("CORS_ORIGIN", "*"),
		NATSURL:          envOr("NATS_URL", ""),
		NATSSubject:      envOr("NATS_SUBJECT", "census.search.events"),
	}

	var err error
	if cfg.DedupeFetches, err = strconv.ParseBool(envOr("DEDUPE_CHUNK_FETCHES", "false")); err != nil {
		return cfg, fmt.Errorf("DEDUPE_CHUNK_FETCHES: %w", err)
	}
	if cfg.FetchTimeout, err = time.ParseDuration(envOr("FETCH_TIMEOUT", "0s")); err != nil {
		return cfg, fmt.Errorf("FETCH_TIMEOUT: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(envOr("RATE_LIMIT_RPS", "0"), 64); err != nil {
		return cfg, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(envOr("RATE_LIMIT_BURST", "1")); err != nil {
		return cfg, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(envOr("METRICS_ENABLED", "true")); err != nil {
		return cfg, fmt.Errorf("METRICS_ENABLED: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	switch c.IndexBackend {
	case "file":
		if c.IndexPath == "" {
			return errors.New("INDEX_PATH is required for the file backend")
		}
	case "qdrant":
		if c.QdrantURL == "" || c.Collection == "" {
			return errors.New("QDRANT_URL and QDRANT_COLLECTION are required for the qdrant backend")
		}
	default:
		return fmt.Errorf("INDEX_BACKEND must be file or qdrant, got %q", c.IndexBackend)
	}
	if c.ChunkMapPath == "" || c.ChunkBaseURL == "" {
		return errors.New("CHUNK_MAP_PATH and CHUNK_BASE_URL are required")
	}
	if c.FetchTimeout < 0 {
		return errors.New("FETCH_TIMEOUT must not be negative")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not read .env", "err", err)
	}

	cfg, err := loadConfig()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Chunk map (once per process) ---
	chunkMap, err := chunks.LoadMap(cfg.ChunkMapPath)
	if err != nil {
		return err
	}
	logger.Info("chunk map loaded", "path", cfg.ChunkMapPath, "labels", len(chunkMap))

	outbound := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.FetchTimeout,
	}

	var reg *metrics.Registry
	if cfg.MetricsEnabled {
		reg = metrics.New("census-search")
	}

	// --- Index backend ---
	var searcher vectorsearch.Searcher
	switch cfg.IndexBackend {
	case "qdrant":
		store, err := semantic.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		searcher = store
	default:
		searcher = vectorsearch.FileSearcher{Path: cfg.IndexPath}
	}

	resolver := &chunks.Resolver{
		BaseURL: cfg.ChunkBaseURL,
		Map:     chunkMap,
		Client:  outbound,
		Dedupe:  cfg.DedupeFetches,
		Logger:  logger,
		Metrics: reg,
	}

	// --- Search events ---
	var events *natsutil.Emitter[domain.SearchEvent]
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("census-search"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		events = natsutil.NewEmitter[domain.SearchEvent](nc, cfg.NATSSubject, logger)
	}

	if cfg.CatalogSharedURL == "" {
		logger.Warn("CATALOG_SHARED_URL not set; /api/datasets/shared will fail")
	}

	s := &server{
		vector:  vectorsearch.New(searcher, resolver, logger, reg),
		catalog: &catalog.Service{URL: cfg.CatalogURL, Client: outbound},
		shared:  &catalog.Service{URL: cfg.CatalogSharedURL, Client: outbound},
		events:  events,
		logger:  logger,
		metrics: reg,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "backend", cfg.IndexBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

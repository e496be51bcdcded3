package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quietpage/inkdex/internal/config"
	"github.com/quietpage/inkdex/internal/db"
	dbredis "github.com/quietpage/inkdex/internal/db/redis"
	"github.com/quietpage/inkdex/internal/domain"
	"github.com/quietpage/inkdex/internal/gateway"
	logpkg "github.com/quietpage/inkdex/internal/logger"
	"github.com/quietpage/inkdex/internal/metrics"
	catalogrepo "github.com/quietpage/inkdex/internal/repository/catalog"
	"github.com/quietpage/inkdex/internal/repository/embcache"
	openaiemb "github.com/quietpage/inkdex/internal/transport/openai"
	embeddinguc "github.com/quietpage/inkdex/internal/usecase/embedding"
	healthuc "github.com/quietpage/inkdex/internal/usecase/health"
	searchuc "github.com/quietpage/inkdex/internal/usecase/search"
)

// app is the composition root shared by every subcommand.
type app struct {
	env      string
	cfg      config.Config
	logger   *zap.Logger
	store    db.Store
	catalog  *catalogrepo.Repo
	fetcher  *gateway.Client
	embedder domain.Embedder // nil when no provider credential is configured

	searchSvc *searchuc.Service
	embedSvc  *embeddinguc.Service
	healthSvc *healthuc.Service
}

// newApp loads configuration, connects the store, and wires every service.
func newApp(ctx context.Context) (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}

	// Explicit registration keeps subcommands from double-registering when
	// run in tests; the HTTP middleware registers its own vecs via init().
	metrics.RegisterGatewayMetrics()
	metrics.RegisterEmbeddingMetrics()

	catalog := catalogrepo.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions)
	fetcher := gateway.New(
		cfg.Gateway.PrimaryURL,
		cfg.Gateway.FallbackURL,
		time.Duration(cfg.Gateway.TimeoutSec)*time.Second,
		logger,
	)

	embedder, err := buildEmbedder(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	searchSvc := searchuc.New(catalog, fetcher, embedder, searchuc.Config{
		TitleLimit:       cfg.Search.TitleLimit,
		KNNTopK:          cfg.Search.KNNTopK,
		ResultLimit:      cfg.Search.ResultLimit,
		SnippetLength:    cfg.Search.SnippetLength,
		FetchConcurrency: cfg.Gateway.FetchConcurrent,
	}, logger)

	embedSvc := embeddinguc.New(
		catalog, fetcher, embedder,
		cfg.Embedding.Dimensions, cfg.Embedding.MaxInputChars, logger,
	)

	var embChecker healthuc.EmbeddingChecker
	if embedder != nil {
		embChecker = newEmbeddingHealthChecker(embedder)
	}
	healthSvc := healthuc.New(store, embChecker)

	return &app{
		env:       env,
		cfg:       cfg,
		logger:    logger,
		store:     store,
		catalog:   catalog,
		fetcher:   fetcher,
		embedder:  embedder,
		searchSvc: searchSvc,
		embedSvc:  embedSvc,
		healthSvc: healthSvc,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// buildEmbedder assembles the provider chain: OpenAI-compatible transport
// wrapped in the store-backed cache. An absent credential returns nil — the
// signal every service treats as "semantic features off".
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) (domain.Embedder, error) {
	base, err := openaiemb.NewEmbedder(&openaiemb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	if err != nil {
		if errors.Is(err, domain.ErrProviderCredentialMissing) {
			logger.Info("no embedding credential configured, semantic features disabled")
			return nil, nil
		}
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return embcache.New(base, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger), nil
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

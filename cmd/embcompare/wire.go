package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/embcompare/internal/config"
	"github.com/kailas-cloud/embcompare/internal/db"
	dbChromem "github.com/kailas-cloud/embcompare/internal/db/chromem"
	dbQdrant "github.com/kailas-cloud/embcompare/internal/db/qdrant"
	dbValkey "github.com/kailas-cloud/embcompare/internal/db/valkey"
	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/metrics"
	"github.com/kailas-cloud/embcompare/internal/repository/embcache"
	openaiEmb "github.com/kailas-cloud/embcompare/internal/transport/openai"
	vertexEmb "github.com/kailas-cloud/embcompare/internal/transport/vertex"
	voyageEmb "github.com/kailas-cloud/embcompare/internal/transport/voyage"
	compareuc "github.com/kailas-cloud/embcompare/internal/usecase/compare"
	embeddinguc "github.com/kailas-cloud/embcompare/internal/usecase/embedding"
	"github.com/kailas-cloud/embcompare/internal/usecase/gateway"
	healthuc "github.com/kailas-cloud/embcompare/internal/usecase/health"
	"github.com/kailas-cloud/embcompare/internal/usecase/retry"
)

// app is the composition root shared by serve and compare.
type app struct {
	store   db.Store
	compare *compareuc.Service
	health  *healthuc.Service
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp connects the vector store and assembles every provider pipeline.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	store, err := newStore(cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}

	readiness := time.Duration(cfg.VectorStore.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("vector store not ready: %w", err)
	}
	logger.Info("Connected to vector store",
		zap.String("driver", cfg.VectorStore.Driver),
		zap.Strings("addrs", cfg.VectorStore.Addrs),
	)

	// Only valkey-compatible stores implement KVStore.
	var kv db.KVStore
	if cfg.EmbeddingCache.Enabled {
		kv, _ = store.(db.KVStore)
	}

	embedders := make(map[string]domain.Embedder, len(cfg.Providers))
	checkers := make(map[string]healthuc.ProviderChecker, len(cfg.Providers))
	for _, p := range cfg.Providers {
		base, err := newBaseEmbedder(ctx, p, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}
		emb := buildEmbedder(base, p, kv, cfg.EmbeddingCache, logger)
		embedders[p.Name] = emb
		if _, ok := base.(domain.HealthChecker); ok {
			if hc, ok := emb.(domain.HealthChecker); ok {
				checkers[p.Name] = hc
			}
		}
		logger.Info("Embedder created",
			zap.String("provider", p.Name),
			zap.String("kind", p.Kind),
			zap.String("model", p.Model),
			zap.Int("dimensions", p.Dimensions),
			zap.String("credentials", p.CredentialRef()),
		)
	}

	table, err := domain.NewNamespaceTable(cfg.DomainProviders())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("namespace table: %w", err)
	}

	searcher := gateway.New(store, gateway.Config{
		BackendName:  cfg.VectorStore.Driver,
		MaxTopK:      cfg.Compare.MaxTopK,
		ReturnFields: []string{cfg.VectorStore.TextField},
	})

	compareSvc, err := compareuc.New(table, embedders, searcher, compareuc.Config{
		DefaultTopK:     cfg.Compare.DefaultTopK,
		MaxTopK:         cfg.Compare.MaxTopK,
		PipelineTimeout: cfg.Compare.PipelineTimeout(),
		CollectStats:    cfg.Compare.CollectStats,
		Retry: retry.Policy{
			MaxAttempts: cfg.Compare.Retry.MaxAttempts,
			BaseDelay:   cfg.Compare.Retry.BaseDelay(),
			MaxDelay:    cfg.Compare.Retry.MaxDelay(),
		},
	}, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		store:   store,
		compare: compareSvc,
		health:  healthuc.New(store, checkers, healthuc.DefaultTimeout),
	}, nil
}

func newStore(cfg config.VectorStoreConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		return dbValkey.NewStore(dbValkey.Config{
			Addrs:       cfg.Addrs,
			Username:    cfg.Username,
			Password:    cfg.Password,
			DB:          cfg.DB,
			VectorField: cfg.VectorField,
		})
	case config.DriverQdrant:
		return dbQdrant.NewStore(dbQdrant.Config{
			Host:      cfg.Qdrant.Host,
			Port:      cfg.Qdrant.Port,
			APIKey:    cfg.Qdrant.APIKey,
			UseTLS:    cfg.Qdrant.UseTLS,
			TextField: cfg.TextField,
		})
	case config.DriverChromem:
		return dbChromem.NewStore(dbChromem.Config{
			Path:     cfg.Chromem.Path,
			Compress: cfg.Chromem.Compress,
		})
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", cfg.Driver)
	}
}

func newBaseEmbedder(ctx context.Context, p config.ProviderConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch domain.ProviderKind(p.Kind) {
	case domain.KindOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			Model:      p.Model,
			Dimensions: p.Dimensions,
			Provider:   p.Name,
			Logger:     logger,
		}), nil
	case domain.KindVoyage:
		return voyageEmb.NewEmbedder(&voyageEmb.Config{
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			Model:      p.Model,
			Dimensions: p.Dimensions,
			Provider:   p.Name,
			Logger:     logger,
		}), nil
	case domain.KindVertex:
		return vertexEmb.NewEmbedder(ctx, &vertexEmb.Config{
			Project:         p.Project,
			Region:          p.Region,
			Model:           p.Model,
			Dimensions:      p.Dimensions,
			Provider:        p.Name,
			CredentialsFile: p.CredentialsFile,
			AccessToken:     p.APIKey,
			BaseURL:         p.BaseURL,
			Logger:          logger,
		})
	default:
		return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}

// buildEmbedder assembles the decorator chain: base -> Cached -> Instrumented -> Throttled.
func buildEmbedder(
	base domain.Embedder,
	p config.ProviderConfig,
	kv db.KVStore,
	cacheCfg config.EmbeddingCacheConfig,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if kv != nil {
		embedder = embcache.New(base, kv, embcache.Options{
			Provider:   p.Name,
			Model:      p.Model,
			Dimensions: p.Dimensions,
			TTL:        time.Duration(cacheCfg.TTLSec) * time.Second,
			KeyPrefix:  cacheCfg.KeyPrefix,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, p.Name, p.Model, logger)

	// The limiter gates every query, cached or not.
	return embeddinguc.NewThrottledEmbedder(embedder, p.Name, p.RequestsPerMinute)
}

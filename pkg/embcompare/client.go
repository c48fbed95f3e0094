package embcompare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/embcompare/internal/db"
	dbChromem "github.com/kailas-cloud/embcompare/internal/db/chromem"
	dbQdrant "github.com/kailas-cloud/embcompare/internal/db/qdrant"
	dbValkey "github.com/kailas-cloud/embcompare/internal/db/valkey"
	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/formatter"
	compareuc "github.com/kailas-cloud/embcompare/internal/usecase/compare"
	embeddinguc "github.com/kailas-cloud/embcompare/internal/usecase/embedding"
	"github.com/kailas-cloud/embcompare/internal/usecase/gateway"
	healthuc "github.com/kailas-cloud/embcompare/internal/usecase/health"
	"github.com/kailas-cloud/embcompare/internal/usecase/retry"
)

const defaultReadinessTimeout = 10 * time.Second

// compareUseCase is the internal interface for comparisons.
type compareUseCase interface {
	Compare(ctx context.Context, req compareuc.Request) (domain.ComparisonReport, error)
	Providers() []domain.ProviderConfig
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the embcompare SDK entry point.
type Client struct {
	store      db.Store
	compareSvc compareUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a Client and connects to the vector database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("embcompare: vector database required (use WithValkey, WithRedis, WithQdrant or WithChromem)")
	}
	if len(cfg.providers) == 0 {
		return nil, fmt.Errorf("embcompare: %w (use WithProvider)", ErrNoProviders)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("embcompare: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:       cfg.addrs,
			Password:    cfg.password,
			VectorField: cfg.vectorField,
		})
		if err != nil {
			return nil, fmt.Errorf("embcompare: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "qdrant":
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			Host:   cfg.qdrantHost,
			Port:   cfg.qdrantPort,
			APIKey: cfg.qdrantKey,
		})
		if err != nil {
			return nil, fmt.Errorf("embcompare: create qdrant store: %w", err)
		}
		return s, nil
	case "chromem":
		if cfg.chromemDB == nil {
			return nil, errors.New("embcompare: chromem database is nil")
		}
		return dbChromem.NewStoreFromDB(cfg.chromemDB), nil
	default:
		return nil, fmt.Errorf("embcompare: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	providers := make([]domain.ProviderConfig, 0, len(cfg.providers))
	embedders := make(map[string]domain.Embedder, len(cfg.providers))
	for _, e := range cfg.providers {
		if e.embedder == nil {
			return nil, fmt.Errorf("embcompare: provider %q has no embedder", e.provider.Name)
		}
		ns := make(map[domain.SearchDomain]string, len(e.provider.Namespaces))
		for d, n := range e.provider.Namespaces {
			sd, err := domain.ParseSearchDomain(d)
			if err != nil {
				return nil, fmt.Errorf("embcompare: provider %q: %w", e.provider.Name, err)
			}
			ns[sd] = n
		}
		providers = append(providers, domain.ProviderConfig{
			Name:          e.provider.Name,
			Model:         e.provider.Model,
			Dimensions:    e.provider.Dimensions,
			CredentialRef: "sdk",
			Namespaces:    ns,
		})
		embedders[e.provider.Name] = embeddinguc.NewThrottledEmbedder(
			&embedderAdapter{inner: e.embedder}, e.provider.Name, e.provider.RequestsPerMinute,
		)
	}

	table, err := domain.NewNamespaceTable(providers)
	if err != nil {
		return nil, fmt.Errorf("embcompare: %w", err)
	}

	searcher := gateway.New(store, gateway.Config{BackendName: cfg.driver, MaxTopK: cfg.maxTopK})
	compareSvc, err := compareuc.New(table, embedders, searcher, compareuc.Config{
		DefaultTopK:     cfg.defaultTopK,
		MaxTopK:         cfg.maxTopK,
		PipelineTimeout: cfg.pipelineTimeout,
		Retry: retry.Policy{
			MaxAttempts: cfg.maxAttempts,
			BaseDelay:   cfg.baseDelay,
			MaxDelay:    cfg.maxDelay,
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("embcompare: %w", err)
	}

	return &Client{
		store:      store,
		compareSvc: compareSvc,
		healthSvc:  healthuc.New(store, nil, healthuc.DefaultTimeout),
		obs:        obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Compare runs one query against every selected provider.
// Provider failures are reported inside the Report; only invalid requests,
// an empty provider selection and superseded runs return an error.
func (c *Client) Compare(ctx context.Context, req Request) (_ *Report, err error) {
	start := time.Now()
	defer func() { c.obs.observe("compare", start, err) }()

	report, err := c.compareSvc.Compare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	c.obs.observeReport(&report)
	return &report, nil
}

// Providers returns the configured provider names in comparison order.
func (c *Client) Providers() []string {
	providers := c.compareSvc.Providers()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	return names
}

// Export renders a report as the JSON export document.
func Export(r *Report) ([]byte, error) {
	return formatter.NewJSON().Format(r)
}

// ExportFileName returns the timestamped export file name for a report.
func ExportFileName(r *Report) string {
	return formatter.FileName(r.Timestamp)
}

// Render draws a report as side-by-side provider columns for a terminal of the given width.
func Render(r *Report, width int) (string, error) {
	out, err := formatter.NewTerminal(width).Format(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Package compare fans one query out to every configured provider and
// merges the settled pipelines into a comparison report.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/embcompare/internal/domain"
	logpkg "github.com/kailas-cloud/embcompare/internal/logger"
	"github.com/kailas-cloud/embcompare/internal/metrics"
	"github.com/kailas-cloud/embcompare/internal/usecase/aggregate"
	"github.com/kailas-cloud/embcompare/internal/usecase/retry"
)

const tracerName = "github.com/kailas-cloud/embcompare/internal/usecase/compare"

// Defaults applied by New for zero Config fields.
const (
	DefaultTopK            = 10
	DefaultMaxTopK         = domain.MaxTopK
	DefaultPipelineTimeout = 30 * time.Second
)

// Config tunes the dispatcher.
type Config struct {
	DefaultTopK     int
	MaxTopK         int
	PipelineTimeout time.Duration
	Retry           retry.Policy
	// CollectStats fetches namespace statistics after a successful search.
	CollectStats bool
}

func (c Config) withDefaults() Config {
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = DefaultTopK
	}
	if c.MaxTopK <= 0 || c.MaxTopK > domain.MaxTopK {
		c.MaxTopK = DefaultMaxTopK
	}
	if c.DefaultTopK > c.MaxTopK {
		c.DefaultTopK = c.MaxTopK
	}
	if c.PipelineTimeout <= 0 {
		c.PipelineTimeout = DefaultPipelineTimeout
	}
	return c
}

// Request is one comparison query.
type Request struct {
	Query  string
	Domain string
	// TopK of zero selects the configured default.
	TopK int
	// Providers restricts the run to a subset. Empty means all.
	Providers []string
	// Namespaces overrides the configured namespace per provider.
	Namespaces map[string]string
	// SessionID groups runs; a newer run on the same session supersedes the older.
	SessionID string
}

// Service is the Query Dispatcher.
type Service struct {
	table     *domain.NamespaceTable
	embedders map[string]domain.Embedder
	searcher  Searcher
	sessions  *Sessions
	cfg       Config
	logger    *zap.Logger
	tracer    trace.Tracer

	now   func() time.Time
	newID func() string
}

// New creates a dispatcher. Every provider in the table needs an embedder.
func New(
	table *domain.NamespaceTable,
	embedders map[string]domain.Embedder,
	searcher Searcher,
	cfg Config,
	logger *zap.Logger,
) (*Service, error) {
	for _, p := range table.Providers() {
		if embedders[p.Name] == nil {
			return nil, fmt.Errorf("no embedder for provider %q", p.Name)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		table:     table,
		embedders: embedders,
		searcher:  searcher,
		sessions:  NewSessions(),
		cfg:       cfg.withDefaults(),
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// WithTracer replaces the tracer provider (the global otel provider by default).
func (s *Service) WithTracer(tp trace.TracerProvider) *Service {
	s.tracer = tp.Tracer(tracerName)
	return s
}

// Providers returns the configured providers in order.
func (s *Service) Providers() []domain.ProviderConfig { return s.table.Providers() }

// Sessions exposes the session registry.
func (s *Service) Sessions() *Sessions { return s.sessions }

// Compare runs every resolved pipeline and returns the merged report.
// Only request validation, ErrNoProviders and ErrRunSuperseded are returned
// as errors; pipeline failures are recorded in the report.
func (s *Service) Compare(ctx context.Context, req Request) (domain.ComparisonReport, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.ComparisonReport{}, s.reject(req.Domain, fmt.Errorf("%w: query is empty", domain.ErrInvalidRequest))
	}
	d, err := domain.ParseSearchDomain(req.Domain)
	if err != nil {
		return domain.ComparisonReport{}, s.reject(req.Domain, err)
	}
	topK := req.TopK
	if topK == 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK < 1 || topK > s.cfg.MaxTopK {
		return domain.ComparisonReport{}, s.reject(string(d),
			fmt.Errorf("%w: top_k must be between 1 and %d, got %d", domain.ErrInvalidRequest, s.cfg.MaxTopK, req.TopK))
	}

	targets, err := s.resolve(d, req)
	if err != nil {
		return domain.ComparisonReport{}, s.reject(string(d), err)
	}

	if req.SessionID != "" {
		var release func()
		ctx, release = s.sessions.Begin(ctx, req.SessionID)
		defer release()
	}

	run := aggregate.RunInfo{
		ID:        s.newID(),
		Query:     query,
		Domain:    d,
		TopK:      topK,
		Timestamp: s.now().UTC(),
	}
	ctx, log := logpkg.With(ctx, s.logger, zap.String("run_id", run.ID))

	ctx, span := s.tracer.Start(ctx, "compare.run", trace.WithAttributes(
		attribute.String("run_id", run.ID),
		attribute.String("domain", string(d)),
		attribute.Int("top_k", topK),
		attribute.Int("providers", len(targets)),
	))
	defer span.End()

	outcomes := make([]domain.PipelineOutcome, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			outcomes[i] = s.runPipeline(ctx, t, query, topK)
			return nil
		})
	}
	_ = g.Wait()

	if errors.Is(context.Cause(ctx), domain.ErrRunSuperseded) {
		metrics.ComparisonRunsTotal.WithLabelValues(string(d), "superseded").Inc()
		log.Info("Comparison superseded", zap.String("session_id", req.SessionID))
		return domain.ComparisonReport{}, domain.ErrRunSuperseded
	}

	report := aggregate.Aggregate(run, outcomes)

	result := "completed"
	if report.Summary.NoSuccessfulProviders {
		result = "no_success"
	}
	metrics.ComparisonRunsTotal.WithLabelValues(string(d), result).Inc()
	span.SetAttributes(
		attribute.Int("succeeded", report.Summary.Succeeded),
		attribute.Int("failed", report.Summary.Failed),
	)
	log.Info("Comparison completed",
		zap.String("domain", string(d)),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed),
		zap.String("best_quality", report.Summary.BestQuality),
		zap.String("fastest", report.Summary.Fastest),
	)
	return report, nil
}

// Namespace resolves a provider's namespace for a domain and reads its statistics.
func (s *Service) Namespace(ctx context.Context, provider, searchDomain string) (domain.Namespace, domain.NamespaceStats, error) {
	d, err := domain.ParseSearchDomain(searchDomain)
	if err != nil {
		return domain.Namespace{}, domain.NamespaceStats{}, err
	}
	if _, ok := s.table.Provider(provider); !ok {
		return domain.Namespace{}, domain.NamespaceStats{}, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
	}
	ns, ok := s.table.Lookup(provider, d)
	if !ok {
		return domain.Namespace{}, domain.NamespaceStats{}, domain.NewError(domain.StageSearch, domain.KindNamespaceNotFound,
			fmt.Sprintf("provider %q has no namespace for %s", provider, d), nil)
	}
	st, err := s.searcher.Stats(ctx, ns)
	if err != nil {
		return ns, domain.NamespaceStats{}, fmt.Errorf("namespace stats: %w", err)
	}
	return ns, st, nil
}

type target struct {
	provider  domain.ProviderConfig
	embedder  domain.Embedder
	namespace domain.Namespace
}

// resolve selects providers in configuration order. Providers without a
// namespace for the domain are skipped unless the request overrides it.
func (s *Service) resolve(d domain.SearchDomain, req Request) ([]target, error) {
	var subset map[string]bool
	if len(req.Providers) > 0 {
		subset = make(map[string]bool, len(req.Providers))
		for _, name := range req.Providers {
			name = strings.TrimSpace(name)
			if _, ok := s.table.Provider(name); !ok {
				return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
			}
			subset[name] = true
		}
	}
	for name := range req.Namespaces {
		if _, ok := s.table.Provider(name); !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
		}
	}

	var out []target
	for _, p := range s.table.Providers() {
		if subset != nil && !subset[p.Name] {
			continue
		}
		ns, ok := s.table.Lookup(p.Name, d)
		if override := strings.TrimSpace(req.Namespaces[p.Name]); override != "" {
			ns, ok = domain.Namespace{Name: override, Provider: p.Name, Dimensions: p.Dimensions}, true
		}
		if !ok {
			continue
		}
		out = append(out, target{provider: p, embedder: s.embedders[p.Name], namespace: ns})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w for domain %s", domain.ErrNoProviders, d)
	}
	return out, nil
}

func (s *Service) reject(searchDomain string, err error) error {
	label := searchDomain
	if _, perr := domain.ParseSearchDomain(searchDomain); perr != nil {
		label = "unknown"
	}
	metrics.ComparisonRunsTotal.WithLabelValues(label, "rejected").Inc()
	return err
}

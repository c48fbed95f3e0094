// Package gateway validates and runs nearest-neighbor queries against provider namespaces.
package gateway

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/embcompare/internal/db"
	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/metrics"
)

// DefaultMaxTopK bounds the number of matches requested per namespace.
const DefaultMaxTopK = domain.MaxTopK

// Config tunes the gateway.
type Config struct {
	// BackendName labels metrics ("valkey", "qdrant", "chromem").
	BackendName  string
	MaxTopK      int
	ReturnFields []string
}

// Service is the Vector Search Gateway.
type Service struct {
	backend      Backend
	name         string
	maxTopK      int
	returnFields []string
}

// New creates a gateway over a backend.
func New(backend Backend, cfg Config) *Service {
	maxTopK := cfg.MaxTopK
	if maxTopK <= 0 || maxTopK > domain.MaxTopK {
		maxTopK = DefaultMaxTopK
	}
	name := cfg.BackendName
	if name == "" {
		name = "unknown"
	}
	return &Service{backend: backend, name: name, maxTopK: maxTopK, returnFields: cfg.ReturnFields}
}

// MaxTopK returns the upper bound accepted by Search.
func (s *Service) MaxTopK() int { return s.maxTopK }

// Search returns up to topK matches ordered by ascending distance.
// The vector length is checked against the namespace before the backend is contacted.
func (s *Service) Search(ctx context.Context, ns domain.Namespace, vector []float32, topK int) ([]domain.SearchMatch, error) {
	if ns.Name == "" {
		return nil, domain.NewError(domain.StageSearch, domain.KindInvalidRequest, "namespace is empty", nil)
	}
	if len(vector) != ns.Dimensions {
		return nil, domain.NewDimensionMismatch(ns.Dimensions, len(vector))
	}
	if topK < 1 || topK > s.maxTopK {
		return nil, domain.NewError(domain.StageSearch, domain.KindInvalidRequest,
			fmt.Sprintf("top_k must be between 1 and %d, got %d", s.maxTopK, topK), nil)
	}

	start := time.Now()
	res, err := s.backend.SearchKNN(ctx, &db.KNNQuery{
		Namespace:    ns.Name,
		Vector:       vector,
		K:            topK,
		ReturnFields: s.returnFields,
	})
	metrics.SearchDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(s.name, "error").Inc()
		return nil, s.classify(ns.Name, err)
	}
	metrics.SearchRequestsTotal.WithLabelValues(s.name, "success").Inc()

	entries := slices.Clone(res.Entries)
	slices.SortStableFunc(entries, func(a, b db.SearchEntry) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	matches := make([]domain.SearchMatch, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, domain.NewSearchMatch(e.Key, e.Distance, e.Fields))
		if len(matches) == topK {
			break
		}
	}
	return matches, nil
}

// Stats reports the approximate row count and vector width of a namespace.
func (s *Service) Stats(ctx context.Context, ns domain.Namespace) (domain.NamespaceStats, error) {
	info, err := s.backend.NamespaceInfo(ctx, ns.Name)
	if err != nil {
		return domain.NamespaceStats{}, s.classify(ns.Name, err)
	}
	return domain.NamespaceStats{ApproxCount: info.ApproxCount, Dimensions: info.Dimensions}, nil
}

func (s *Service) classify(namespace string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, db.ErrNamespaceNotFound):
		return domain.NewError(domain.StageSearch, domain.KindNamespaceNotFound,
			fmt.Sprintf("namespace %q does not exist", namespace), err)
	default:
		return domain.NewError(domain.StageSearch, domain.KindBackendUnavailable,
			fmt.Sprintf("%s query failed", s.name), err)
	}
}

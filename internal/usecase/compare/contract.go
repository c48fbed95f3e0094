package compare

import (
	"context"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// Searcher runs validated nearest-neighbor queries against a namespace.
type Searcher interface {
	Search(ctx context.Context, ns domain.Namespace, vector []float32, topK int) ([]domain.SearchMatch, error)
	Stats(ctx context.Context, ns domain.Namespace) (domain.NamespaceStats, error)
}

package gateway

import (
	"context"

	"github.com/kailas-cloud/embcompare/internal/db"
)

// Backend is the vector database contract the gateway queries.
type Backend interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	NamespaceInfo(ctx context.Context, namespace string) (*db.NamespaceInfo, error)
}

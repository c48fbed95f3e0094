package db

import (
	"context"
	"time"
)

// Store is the vector database facade used by the search gateway.
type Store interface {
	Pinger
	Searcher
	NamespaceInspector
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs nearest-neighbor queries against a namespace.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// NamespaceInspector reports namespace size and vector width.
type NamespaceInspector interface {
	NamespaceInfo(ctx context.Context, namespace string) (*NamespaceInfo, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

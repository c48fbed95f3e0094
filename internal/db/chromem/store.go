// Package chromem implements the vector store facade over an embedded chromem-go database.
package chromem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/embcompare/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config selects the database location. An empty Path keeps everything in memory.
type Config struct {
	Path     string
	Compress bool
}

// Store implements db.Store. Namespaces map to chromem collections.
type Store struct {
	db *chromem.DB
}

// NewStore opens a persistent database, or an in-memory one when Path is empty.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return &Store{db: chromem.NewDB()}, nil
	}

	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	d, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}
	return &Store{db: d}, nil
}

// NewStoreFromDB wraps an existing database.
func NewStoreFromDB(d *chromem.DB) *Store {
	return &Store{db: d}
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Ping always succeeds for the embedded database.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op; persistent writes are flushed per document.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// SearchKNN queries a collection by vector. Similarity is converted to cosine distance.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	collection := s.db.GetCollection(q.Namespace, nil)
	if collection == nil {
		return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("%w: %s", db.ErrNamespaceNotFound, q.Namespace)}
	}

	// chromem requires nResults <= document count
	k := q.K
	count := collection.Count()
	if count == 0 {
		return &db.SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	results, err := collection.QueryEmbedding(ctx, q.Vector, k, nil, nil)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(results))
	for _, r := range results {
		fields := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			fields[k] = v
		}
		if r.Content != "" {
			fields["text"] = r.Content
		}
		entries = append(entries, db.SearchEntry{
			Key:      r.ID,
			Distance: 1 - float64(r.Similarity),
			Fields:   filterFields(fields, q.ReturnFields),
		})
	}
	return &db.SearchResult{Total: count, Entries: entries}, nil
}

// NamespaceInfo reports the document count. chromem does not expose vector width.
func (s *Store) NamespaceInfo(_ context.Context, namespace string) (*db.NamespaceInfo, error) {
	collection := s.db.GetCollection(namespace, nil)
	if collection == nil {
		return nil, &db.Error{Op: db.OpCollection, Err: fmt.Errorf("%w: %s", db.ErrNamespaceNotFound, namespace)}
	}
	return &db.NamespaceInfo{Name: namespace, ApproxCount: int64(collection.Count())}, nil
}

func filterFields(fields map[string]any, keep []string) map[string]any {
	if len(keep) == 0 {
		return fields
	}
	out := make(map[string]any, len(keep))
	for _, k := range keep {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

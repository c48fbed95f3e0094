// Package qdrant implements the vector store facade over Qdrant's gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/embcompare/internal/db"
)

var _ db.Store = (*Store)(nil)

const defaultMaxMessageSize = 16 * 1024 * 1024

// Config holds connection parameters for a Qdrant store.
type Config struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	MaxMessageSize int
	// TextField is the payload key copied into match metadata as "text".
	TextField string
}

// client is the subset of *qdrant.Client the store uses.
type client interface {
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

// Store implements db.Store. Namespaces map to Qdrant collections.
type Store struct {
	client    client
	textField string
}

// NewStore connects to Qdrant over gRPC.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return newStore(c, cfg.TextField), nil
}

func newStore(c client, textField string) *Store {
	if textField == "" {
		textField = "text"
	}
	return &Store{client: c, textField: textField}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the gRPC connection.
func (s *Store) Close() {
	_ = s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// SearchKNN queries a collection. Qdrant returns cosine similarity; it is converted to distance.
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

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.Namespace,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          qdrant.PtrOf(uint64(q.K)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, wrapErr(db.OpQuery, q.Namespace, err)
	}

	entries := make([]db.SearchEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, db.SearchEntry{
			Key:      pointID(p.GetId()),
			Distance: 1 - float64(p.GetScore()),
			Fields:   s.payloadFields(p.GetPayload(), q.ReturnFields),
		})
	}
	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// NamespaceInfo reads point count and vector size from collection info.
func (s *Store) NamespaceInfo(ctx context.Context, namespace string) (*db.NamespaceInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, namespace)
	if err != nil {
		return nil, wrapErr(db.OpCollection, namespace, err)
	}
	out := &db.NamespaceInfo{Name: namespace}
	if info.PointsCount != nil {
		out.ApproxCount = int64(*info.PointsCount)
	}
	out.Dimensions = int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	return out, nil
}

func wrapErr(op, namespace string, err error) error {
	if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %s", db.ErrNamespaceNotFound, namespace)}
	}
	return &db.Error{Op: op, Err: err}
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return fmt.Sprintf("%d", id.GetNum())
}

// payloadFields flattens scalar payload values. When fields is non-empty only those keys are kept.
func (s *Store) payloadFields(payload map[string]*qdrant.Value, fields []string) map[string]any {
	var keep map[string]bool
	if len(fields) > 0 {
		keep = make(map[string]bool, len(fields))
		for _, f := range fields {
			keep[f] = true
		}
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		name := k
		if k == s.textField {
			name = "text"
		}
		if keep != nil && !keep[name] && !keep[k] {
			continue
		}
		switch val := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[name] = val.StringValue
		case *qdrant.Value_IntegerValue:
			out[name] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[name] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			out[name] = val.BoolValue
		}
	}
	return out
}

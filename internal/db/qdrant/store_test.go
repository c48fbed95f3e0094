package qdrant

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/embcompare/internal/db"
)

type fakeClient struct {
	points  []*qdrant.ScoredPoint
	info    *qdrant.CollectionInfo
	err     error
	lastReq *qdrant.QueryPoints
}

func (f *fakeClient) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.lastReq = req
	return f.points, f.err
}

func (f *fakeClient) GetCollectionInfo(_ context.Context, _ string) (*qdrant.CollectionInfo, error) {
	return f.info, f.err
}

func (f *fakeClient) HealthCheck(_ context.Context) (*qdrant.HealthCheckReply, error) {
	return &qdrant.HealthCheckReply{}, f.err
}

func (f *fakeClient) Close() error { return nil }

func strVal(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func TestSearchKNN_ConvertsSimilarityToDistance(t *testing.T) {
	fc := &fakeClient{points: []*qdrant.ScoredPoint{
		{
			Id:      qdrant.NewIDNum(7),
			Score:   0.75,
			Payload: map[string]*qdrant.Value{"title": strVal("Senior Data Engineer"), "lang": strVal("en")},
		},
		{
			Id:    qdrant.NewIDUUID("5c56c793-69f3-4fbf-87e6-c4bf54c28c26"),
			Score: 0.5,
			Payload: map[string]*qdrant.Value{
				"title": strVal("Data Engineer"),
				"rank":  {Kind: &qdrant.Value_IntegerValue{IntegerValue: 3}},
			},
		},
	}}
	s := newStore(fc, "title")

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{Namespace: "titles", Vector: []float32{1, 0}, K: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fc.lastReq.GetCollectionName() != "titles" || fc.lastReq.GetLimit() != 2 {
		t.Errorf("unexpected request: %v", fc.lastReq)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	first := res.Entries[0]
	if first.Key != "7" {
		t.Errorf("expected numeric id 7, got %q", first.Key)
	}
	if math.Abs(first.Distance-0.25) > 1e-6 {
		t.Errorf("expected distance 0.25, got %f", first.Distance)
	}
	if first.Fields["text"] != "Senior Data Engineer" {
		t.Errorf("text field not mapped: %v", first.Fields)
	}
	if res.Entries[1].Key != "5c56c793-69f3-4fbf-87e6-c4bf54c28c26" {
		t.Errorf("unexpected uuid id %q", res.Entries[1].Key)
	}
	if res.Entries[1].Fields["rank"] != int64(3) {
		t.Errorf("integer payload not kept: %v", res.Entries[1].Fields)
	}
}

func TestSearchKNN_ReturnFieldsFilter(t *testing.T) {
	fc := &fakeClient{points: []*qdrant.ScoredPoint{{
		Id:      qdrant.NewIDNum(1),
		Score:   0.9,
		Payload: map[string]*qdrant.Value{"text": strVal("x"), "secret": strVal("y")},
	}}}
	s := newStore(fc, "")

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Namespace: "n", Vector: []float32{1}, K: 1, ReturnFields: []string{"text"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.Entries[0].Fields["secret"]; ok {
		t.Error("unrequested field returned")
	}
}

func TestSearchKNN_NotFound(t *testing.T) {
	s := newStore(&fakeClient{err: status.Error(grpccodes.NotFound, "collection missing")}, "")

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{Namespace: "n", Vector: []float32{1}, K: 1})
	if !errors.Is(err, db.ErrNamespaceNotFound) {
		t.Errorf("expected ErrNamespaceNotFound, got %v", err)
	}
}

func TestSearchKNN_Unavailable(t *testing.T) {
	s := newStore(&fakeClient{err: status.Error(grpccodes.Unavailable, "down")}, "")

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{Namespace: "n", Vector: []float32{1}, K: 1})
	if err == nil || errors.Is(err, db.ErrNamespaceNotFound) {
		t.Errorf("expected generic backend error, got %v", err)
	}
}

func TestNamespaceInfo(t *testing.T) {
	count := uint64(1200)
	fc := &fakeClient{info: &qdrant.CollectionInfo{
		PointsCount: &count,
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     768,
					Distance: qdrant.Distance_Cosine,
				}),
			},
		},
	}}
	s := newStore(fc, "")

	info, err := s.NamespaceInfo(context.Background(), "titles")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ApproxCount != 1200 || info.Dimensions != 768 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestNewStore_RequiresHost(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty host")
	}
}

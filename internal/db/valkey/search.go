package valkey

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/embcompare/internal/db"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// The namespace is the FT index name. Scores are returned as cosine distance.
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

	scoreField := s.scoreField()
	queryStr := fmt.Sprintf("*=>[KNN %d @%s $BLOB]", q.K, s.vectorField)

	args := []string{q.Namespace, queryStr}

	if len(q.ReturnFields) > 0 {
		fields := append([]string{}, q.ReturnFields...)
		fields = append(fields, scoreField)
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	args = append(args,
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"LIMIT", "0", strconv.Itoa(q.K),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isMissingIndex(err) {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %s", db.ErrNamespaceNotFound, q.Namespace)}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw, scoreField, s.vectorField)
}

// NamespaceInfo reads document count and vector dimensions via FT.INFO.
func (s *Store) NamespaceInfo(ctx context.Context, namespace string) (*db.NamespaceInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(namespace).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isMissingIndex(err) {
			return nil, &db.Error{Op: db.OpIndexInfo, Err: fmt.Errorf("%w: %s", db.ErrNamespaceNotFound, namespace)}
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	info := &db.NamespaceInfo{Name: namespace}
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		switch strings.ToLower(key) {
		case "num_docs":
			if n, ok := messageInt(raw[i+1]); ok {
				info.ApproxCount = n
			}
		case "attributes", "fields":
			if d, ok := findDimensions(raw[i+1]); ok {
				info.Dimensions = int(d)
			}
		}
	}
	return info, nil
}

func (s *Store) scoreField() string {
	return "__" + s.vectorField + "_score"
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage, scoreField, vectorField string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		pairs := parseFieldPairs(fields)

		// The score is already cosine distance. Rows without one cannot be ranked.
		d, err := strconv.ParseFloat(pairs[scoreField], 64)
		if err != nil {
			continue
		}
		entry := db.SearchEntry{Key: key, Distance: d, Fields: make(map[string]any, len(pairs))}
		delete(pairs, scoreField)
		delete(pairs, vectorField)
		for k, v := range pairs {
			entry.Fields[k] = v
		}

		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Distance < entries[b].Distance
	})

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// findDimensions walks FT.INFO attribute descriptions looking for the vector width.
// Redis reports it as "dim", valkey-search as "dimensions".
func findDimensions(msg rueidis.RedisMessage) (int64, bool) {
	arr, err := msg.ToArray()
	if err != nil {
		return 0, false
	}
	for i := range arr {
		if s, err := arr[i].ToString(); err == nil && i+1 < len(arr) {
			switch strings.ToLower(s) {
			case "dim", "dimensions":
				if n, ok := messageInt(arr[i+1]); ok {
					return n, true
				}
			}
		}
		if d, ok := findDimensions(arr[i]); ok {
			return d, true
		}
	}
	return 0, false
}

// messageInt reads an integer that the server may encode as an integer, string or double.
func messageInt(msg rueidis.RedisMessage) (int64, bool) {
	if n, err := msg.AsInt64(); err == nil {
		return n, true
	}
	if s, err := msg.ToString(); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	if f, err := msg.AsFloat64(); err == nil {
		return int64(f), true
	}
	return 0, false
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

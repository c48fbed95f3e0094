package domain

import (
	"context"
	"math"
)

// Embedder is the shared text vectorization contract between layers.
// Every provider adapter implements it with identical semantics.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ValidateVector reports whether v is usable for a nearest-neighbor query.
// Length is not checked here; it is validated against the namespace before search.
func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return NewError(StageEmbed, KindMalformed, "provider returned an empty vector", nil)
	}
	for _, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return NewError(StageEmbed, KindMalformed, "provider returned non-finite values", nil)
		}
	}
	return nil
}

package embcompare

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// Embedder converts query text to a vector.
// Return errors built with RateLimited, Unavailable or AuthFailure so the
// comparison can retry transient failures and label the rest.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		if _, ok := domain.AsError(err); ok || ctx.Err() != nil {
			return domain.EmbeddingResult{}, err
		}
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// RateLimited marks a provider throttling response. Retried after retryAfter when positive.
func RateLimited(retryAfter time.Duration, detail string) error {
	return domain.NewRateLimited(retryAfter, detail, nil)
}

// Unavailable marks a transient provider failure. Retried.
func Unavailable(detail string, err error) error {
	return domain.NewError(domain.StageEmbed, domain.KindUnavailable, detail, err)
}

// AuthFailure marks rejected credentials. Never retried.
func AuthFailure(detail string, err error) error {
	return domain.NewError(domain.StageEmbed, domain.KindAuthFailure, detail, err)
}

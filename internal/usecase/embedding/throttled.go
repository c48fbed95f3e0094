package embedding

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/metrics"
)

// ThrottledEmbedder enforces a client-side request rate for one provider.
// Each provider owns its limiter; no limit state is shared across providers.
type ThrottledEmbedder struct {
	inner    domain.Embedder
	limiter  *rate.Limiter
	provider string
}

// NewThrottledEmbedder limits inner to requestsPerMinute with a burst of one.
// A non-positive rate returns inner unchanged.
func NewThrottledEmbedder(inner domain.Embedder, provider string, requestsPerMinute int) domain.Embedder {
	if requestsPerMinute <= 0 {
		return inner
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &ThrottledEmbedder{
		inner:    inner,
		limiter:  rate.NewLimiter(rate.Every(every), 1),
		provider: provider,
	}
}

// Embed waits for the limiter, then delegates. A cancelled wait surfaces the context error.
func (t *ThrottledEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return domain.EmbeddingResult{}, ctx.Err()
		}
		// Wait fails early when the deadline is closer than the next token.
		return domain.EmbeddingResult{}, domain.NewRateLimited(0, "client-side rate limit would exceed deadline", err)
	}
	metrics.EmbeddingThrottleWait.WithLabelValues(t.provider).Observe(time.Since(start).Seconds())
	return t.inner.Embed(ctx, text)
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (t *ThrottledEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := t.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

package compare

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/embcompare/internal/domain"
	logpkg "github.com/kailas-cloud/embcompare/internal/logger"
	"github.com/kailas-cloud/embcompare/internal/metrics"
	"github.com/kailas-cloud/embcompare/internal/usecase/retry"
)

// runPipeline embeds and searches for one provider. It always returns an
// outcome within the pipeline timeout, even if a call ignores its context.
func (s *Service) runPipeline(ctx context.Context, t target, query string, topK int) domain.PipelineOutcome {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "compare.pipeline", trace.WithAttributes(
		attribute.String("provider", t.provider.Name),
		attribute.String("model", t.provider.Model),
		attribute.String("namespace", t.namespace.Name),
	))
	defer span.End()
	ctx, log := logpkg.With(ctx, s.logger, zap.String("provider", t.provider.Name))

	pctx, cancel := context.WithTimeout(ctx, s.cfg.PipelineTimeout)
	defer cancel()

	var attempts atomic.Int32
	done := make(chan domain.PipelineOutcome, 1)
	go func() {
		done <- s.execute(pctx, t, query, topK, &attempts)
	}()

	var out domain.PipelineOutcome
	select {
	case out = <-done:
	case <-pctx.Done():
		out = domain.PipelineOutcome{Failure: s.interrupted(pctx, "")}
	}

	out.Provider = t.provider.Name
	out.Model = t.provider.Model
	out.Namespace = t.namespace
	out.Elapsed = time.Since(start)
	out.Attempts = int(attempts.Load())

	s.record(log, span, out)
	return out
}

func (s *Service) execute(ctx context.Context, t target, query string, topK int, attempts *atomic.Int32) domain.PipelineOutcome {
	log := logpkg.FromContextOr(ctx, s.logger)
	emb, _, err := retry.Do(ctx, s.policy(log, t.provider.Name, domain.StageEmbed), nil,
		func(ctx context.Context) (domain.EmbeddingResult, error) {
			attempts.Add(1)
			return t.embedder.Embed(ctx, query)
		})
	if err != nil {
		return domain.PipelineOutcome{Failure: s.failure(ctx, domain.StageEmbed, err)}
	}

	matches, _, err := retry.Do(ctx, s.policy(log, t.provider.Name, domain.StageSearch), nil,
		func(ctx context.Context) ([]domain.SearchMatch, error) {
			attempts.Add(1)
			return s.searcher.Search(ctx, t.namespace, emb.Embedding, topK)
		})
	if err != nil {
		return domain.PipelineOutcome{Failure: s.failure(ctx, domain.StageSearch, err)}
	}

	out := domain.PipelineOutcome{Success: &domain.Success{Matches: matches, Tokens: emb.TotalTokens}}
	if s.cfg.CollectStats {
		st, serr := s.searcher.Stats(ctx, t.namespace)
		if serr != nil {
			log.Debug("Namespace stats unavailable",
				zap.String("namespace", t.namespace.Name),
				zap.Error(serr),
			)
		} else {
			out.Stats = &st
		}
	}
	return out
}

func (s *Service) policy(log *zap.Logger, provider string, stage domain.Stage) retry.Policy {
	p := s.cfg.Retry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		kind := string(domain.KindOf(err))
		if kind == "" {
			kind = "unclassified"
		}
		metrics.RetryAttemptsTotal.WithLabelValues(provider, string(stage), kind).Inc()
		log.Warn("Retrying after transient failure",
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
	return p
}

// failure converts a pipeline error into a typed failure. The pipeline
// context decides first: once it is done the failure is a timeout or a
// cancellation regardless of which call observed it.
func (s *Service) failure(pctx context.Context, stage domain.Stage, err error) *domain.Failure {
	if pctx.Err() != nil {
		return s.interrupted(pctx, stage)
	}

	f := &domain.Failure{Stage: stage, RetryExhausted: retry.IsExhausted(err)}
	if de, ok := domain.AsError(err); ok {
		f.Kind = de.Kind
		if de.Stage != "" {
			f.Stage = de.Stage
		}
		f.Detail = de.Detail
		if f.Detail == "" {
			f.Detail = de.Error()
		}
		f.Hint = de.Hint
		return f
	}

	f.Kind = domain.KindUnavailable
	if stage == domain.StageSearch {
		f.Kind = domain.KindBackendUnavailable
	}
	f.Detail = err.Error()
	return f
}

// interrupted describes a pipeline stopped by its deadline or by the run's
// cancellation.
func (s *Service) interrupted(pctx context.Context, stage domain.Stage) *domain.Failure {
	f := &domain.Failure{Kind: domain.KindTimeout, Stage: domain.StageDispatch}
	if errors.Is(pctx.Err(), context.DeadlineExceeded) {
		f.Detail = fmt.Sprintf("pipeline did not complete within %s", s.cfg.PipelineTimeout)
	} else {
		f.Kind = domain.KindCanceled
		f.Detail = "pipeline canceled"
		if errors.Is(context.Cause(pctx), domain.ErrRunSuperseded) {
			f.Detail = "pipeline canceled: run superseded"
		}
	}
	if stage != "" {
		f.Detail += " (during " + string(stage) + ")"
	}
	return f
}

func (s *Service) record(log *zap.Logger, span trace.Span, out domain.PipelineOutcome) {
	metrics.PipelineDuration.WithLabelValues(out.Provider).Observe(out.Elapsed.Seconds())
	span.SetAttributes(attribute.Int("attempts", out.Attempts))

	fields := []zap.Field{
		zap.String("namespace", out.Namespace.Name),
		zap.Duration("elapsed", out.Elapsed),
		zap.Int("attempts", out.Attempts),
	}
	if out.Succeeded() {
		metrics.PipelineOutcomesTotal.WithLabelValues(out.Provider, "success").Inc()
		span.SetAttributes(attribute.Int("matches", len(out.Success.Matches)))
		log.Info("Pipeline succeeded", append(fields, zap.Int("matches", len(out.Success.Matches)))...)
		return
	}

	f := out.Failure
	metrics.PipelineOutcomesTotal.WithLabelValues(out.Provider, string(f.Kind)).Inc()
	span.SetStatus(codes.Error, f.Detail)
	log.Info("Pipeline failed", append(fields,
		zap.String("error_kind", string(f.Kind)),
		zap.String("stage", string(f.Stage)),
		zap.String("detail", f.Detail),
		zap.Bool("retry_exhausted", f.RetryExhausted),
	)...)
}

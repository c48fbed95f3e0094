package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/metrics"
	"github.com/kailas-cloud/embcompare/internal/transport/httperr"
)

// Embedder is an embedding provider using the OpenAI (or OpenAI-compatible) API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Provider   string
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI embedding provider. An empty BaseURL uses api.openai.com.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     logger,
	}
}

// Embed implements domain.Embedder with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)
	model := string(e.model)

	if err != nil {
		classified := classifyError(err)
		metrics.ObserveEmbedding(e.provider, model, "error", duration.Seconds(), 0, 0)
		e.logger.Debug("OpenAI embedding call failed",
			zap.String("provider", e.provider),
			zap.Duration("duration", duration),
			zap.Error(classified),
		)
		return domain.EmbeddingResult{}, classified
	}

	if len(resp.Data) == 0 {
		metrics.ObserveEmbedding(e.provider, model, "error", duration.Seconds(), 0, 0)
		return domain.EmbeddingResult{}, domain.NewError(domain.StageEmbed, domain.KindMalformed, "empty embedding response", nil)
	}
	vec := resp.Data[0].Embedding
	if err := domain.ValidateVector(vec); err != nil {
		metrics.ObserveEmbedding(e.provider, model, "error", duration.Seconds(), 0, 0)
		return domain.EmbeddingResult{}, err
	}

	metrics.ObserveEmbedding(e.provider, model, "success", duration.Seconds(),
		resp.Usage.PromptTokens, resp.Usage.TotalTokens)

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyError maps go-openai errors onto domain kinds.
// The client does not expose response headers, so Retry-After is not available here.
func classifyError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return httperr.FromStatus(reqErr.HTTPStatusCode, nil, reqErr.Body)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		classified := httperr.FromStatus(apiErr.HTTPStatusCode, nil, nil)
		if apiErr.Message != "" {
			classified.Detail += ": " + apiErr.Message
		}
		return classified
	}

	return httperr.FromTransport(err)
}

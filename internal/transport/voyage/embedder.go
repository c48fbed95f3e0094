// Package voyage implements domain.Embedder over the Voyage AI embeddings REST API.
package voyage

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/metrics"
	"github.com/kailas-cloud/embcompare/internal/transport/httperr"
)

// DefaultBaseURL is the public Voyage API root.
const DefaultBaseURL = "https://api.voyageai.com/v1"

// Config holds the Voyage provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Provider   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Embedder calls POST {base}/embeddings with input_type=query.
type Embedder struct {
	apiKey     string
	url        string
	model      string
	dimensions int
	provider   string
	client     *http.Client
	logger     *zap.Logger
}

type embedRequest struct {
	Input           []string `json:"input"`
	Model           string   `json:"model"`
	InputType       string   `json:"input_type"`
	OutputDimension int      `json:"output_dimension,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewEmbedder creates a Voyage embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		apiKey:     cfg.APIKey,
		url:        strings.TrimRight(base, "/") + "/embeddings",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		client:     client,
		logger:     logger,
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if e.apiKey == "" {
		return domain.EmbeddingResult{}, domain.NewError(domain.StageEmbed, domain.KindAuthFailure, "missing Voyage API key", nil)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.apiKey)

	req := embedRequest{
		Input:           []string{text},
		Model:           e.model,
		InputType:       "query",
		OutputDimension: e.dimensions,
	}

	start := time.Now()
	var resp embedResponse
	err := httperr.PostJSON(ctx, e.client, e.url, header, req, &resp)
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveEmbedding(e.provider, e.model, "error", duration.Seconds(), 0, 0)
		e.logger.Debug("Voyage embedding call failed",
			zap.String("provider", e.provider),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Data) == 0 {
		metrics.ObserveEmbedding(e.provider, e.model, "error", duration.Seconds(), 0, 0)
		return domain.EmbeddingResult{}, domain.NewError(domain.StageEmbed, domain.KindMalformed, "empty embedding response", nil)
	}
	vec := resp.Data[0].Embedding
	if err := domain.ValidateVector(vec); err != nil {
		metrics.ObserveEmbedding(e.provider, e.model, "error", duration.Seconds(), 0, 0)
		return domain.EmbeddingResult{}, err
	}

	// Voyage reports only total tokens; for a single query they are all prompt tokens.
	tokens := resp.Usage.TotalTokens
	metrics.ObserveEmbedding(e.provider, e.model, "success", duration.Seconds(), tokens, tokens)

	return domain.EmbeddingResult{Embedding: vec, PromptTokens: tokens, TotalTokens: tokens}, nil
}

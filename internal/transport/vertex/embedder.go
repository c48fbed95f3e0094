// Package vertex implements domain.Embedder over Vertex AI text embedding models.
package vertex

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/metrics"
	"github.com/kailas-cloud/embcompare/internal/transport/httperr"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Config holds the Vertex AI provider settings.
// Credentials resolve in order: TokenSource, AccessToken, CredentialsFile, application default credentials.
type Config struct {
	Project         string
	Region          string
	Model           string
	Dimensions      int
	Provider        string
	CredentialsFile string
	AccessToken     string
	TokenSource     oauth2.TokenSource
	// BaseURL overrides https://{region}-aiplatform.googleapis.com.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Embedder calls the :predict endpoint with task_type RETRIEVAL_QUERY.
type Embedder struct {
	url        string
	model      string
	dimensions int
	provider   string
	tokens     oauth2.TokenSource
	client     *http.Client
	logger     *zap.Logger
}

type instance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type"`
}

type parameters struct {
	OutputDimensionality int `json:"outputDimensionality,omitempty"`
}

type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type predictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values     []float32 `json:"values"`
			Statistics struct {
				TokenCount float64 `json:"token_count"`
				Truncated  bool    `json:"truncated"`
			} `json:"statistics"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// NewEmbedder creates a Vertex AI embedding provider.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("vertex: project is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("vertex: region is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("vertex: model is required")
	}

	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Region)
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
		url: fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
			strings.TrimRight(base, "/"), cfg.Project, cfg.Region, cfg.Model),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		tokens:     oauth2.ReuseTokenSource(nil, ts),
		client:     client,
		logger:     logger,
	}, nil
}

func tokenSource(ctx context.Context, cfg *Config) (oauth2.TokenSource, error) {
	switch {
	case cfg.TokenSource != nil:
		return cfg.TokenSource, nil
	case cfg.AccessToken != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken}), nil
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("vertex: read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope) //nolint:staticcheck // service-account files only
		if err != nil {
			return nil, fmt.Errorf("vertex: parse credentials: %w", err)
		}
		return creds.TokenSource, nil
	default:
		creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("vertex: default credentials: %w", err)
		}
		return creds.TokenSource, nil
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	tok, err := e.tokens.Token()
	if err != nil {
		metrics.ObserveEmbedding(e.provider, e.model, "error", time.Since(start).Seconds(), 0, 0)
		return domain.EmbeddingResult{}, domain.NewError(domain.StageEmbed, domain.KindAuthFailure, "obtain access token", err)
	}

	header := http.Header{}
	tok.SetAuthHeader(&http.Request{Header: header})

	req := predictRequest{
		Instances:  []instance{{Content: text, TaskType: "RETRIEVAL_QUERY"}},
		Parameters: parameters{OutputDimensionality: e.dimensions},
	}

	var resp predictResponse
	err = httperr.PostJSON(ctx, e.client, e.url, header, req, &resp)
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveEmbedding(e.provider, e.model, "error", duration.Seconds(), 0, 0)
		e.logger.Debug("Vertex embedding call failed",
			zap.String("provider", e.provider),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Predictions) == 0 {
		metrics.ObserveEmbedding(e.provider, e.model, "error", duration.Seconds(), 0, 0)
		return domain.EmbeddingResult{}, domain.NewError(domain.StageEmbed, domain.KindMalformed, "empty predictions", nil)
	}
	emb := resp.Predictions[0].Embeddings
	if err := domain.ValidateVector(emb.Values); err != nil {
		metrics.ObserveEmbedding(e.provider, e.model, "error", duration.Seconds(), 0, 0)
		return domain.EmbeddingResult{}, err
	}

	tokens := int(emb.Statistics.TokenCount)
	metrics.ObserveEmbedding(e.provider, e.model, "success", duration.Seconds(), tokens, tokens)
	if emb.Statistics.Truncated {
		e.logger.Warn("Vertex truncated query input", zap.String("provider", e.provider))
	}

	return domain.EmbeddingResult{Embedding: emb.Values, PromptTokens: tokens, TotalTokens: tokens}, nil
}

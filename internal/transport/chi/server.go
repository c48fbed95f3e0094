package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/formatter"
	logpkg "github.com/kailas-cloud/embcompare/internal/logger"
	"github.com/kailas-cloud/embcompare/internal/metrics"
	compareuc "github.com/kailas-cloud/embcompare/internal/usecase/compare"
	healthuc "github.com/kailas-cloud/embcompare/internal/usecase/health"
)

// maxBodyBytes caps the compare request body.
const maxBodyBytes = 64 << 10

// Comparer runs comparisons and exposes provider configuration.
type Comparer interface {
	Compare(ctx context.Context, req compareuc.Request) (domain.ComparisonReport, error)
	Providers() []domain.ProviderConfig
	Namespace(ctx context.Context, provider, searchDomain string) (domain.Namespace, domain.NamespaceStats, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API.
type Server struct {
	compare       Comparer
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(compare Comparer, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		compare:       compare,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/compare", s.Compare)
		r.Get("/providers", s.ListProviders)
		r.Get("/namespaces/{provider}/{domain}", s.GetNamespace)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// CompareRequest is the body of POST /v1/compare.
type CompareRequest struct {
	Query      string            `json:"query"`
	Domain     string            `json:"domain"`
	TopK       int               `json:"top_k,omitempty"`
	Providers  []string          `json:"providers,omitempty"`
	Namespaces map[string]string `json:"namespaces,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
}

// Compare handles POST /v1/compare. With ?download=1 the export document is
// returned as an attachment.
func (s *Server) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	report, err := s.compare.Compare(r.Context(), compareuc.Request{
		Query:      req.Query,
		Domain:     req.Domain,
		TopK:       req.TopK,
		Providers:  req.Providers,
		Namespaces: req.Namespaces,
		SessionID:  req.SessionID,
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		w.Header().Set("Content-Disposition", `attachment; filename="`+formatter.FileName(report.Timestamp)+`"`)
	}
	writeJSON(w, http.StatusOK, formatter.NewDocument(&report))
}

// ProviderResponse describes one configured provider.
type ProviderResponse struct {
	Name          string            `json:"name"`
	Kind          string            `json:"kind"`
	Model         string            `json:"model"`
	Dimensions    int               `json:"dimensions"`
	CredentialRef string            `json:"credential_ref,omitempty"`
	Namespaces    map[string]string `json:"namespaces"`
}

// ListProviders handles GET /v1/providers.
func (s *Server) ListProviders(w http.ResponseWriter, _ *http.Request) {
	providers := s.compare.Providers()
	items := make([]ProviderResponse, len(providers))
	for i, p := range providers {
		ns := make(map[string]string, len(p.Namespaces))
		for d, n := range p.Namespaces {
			ns[string(d)] = n
		}
		items[i] = ProviderResponse{
			Name:          p.Name,
			Kind:          string(p.Kind),
			Model:         p.Model,
			Dimensions:    p.Dimensions,
			CredentialRef: p.CredentialRef,
			Namespaces:    ns,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// NamespaceResponse describes a provider namespace.
type NamespaceResponse struct {
	Provider        string `json:"provider"`
	Domain          string `json:"domain"`
	Namespace       string `json:"namespace"`
	Dimensions      int    `json:"dimensions"`
	ApproxCount     int64  `json:"approx_count"`
	IndexDimensions int    `json:"index_dimensions,omitempty"`
	DimensionsMatch bool   `json:"dimensions_match"`
}

// GetNamespace handles GET /v1/namespaces/{provider}/{domain}.
func (s *Server) GetNamespace(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	searchDomain := chi.URLParam(r, "domain")

	ns, st, err := s.compare.Namespace(r.Context(), provider, searchDomain)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, NamespaceResponse{
		Provider:        provider,
		Domain:          searchDomain,
		Namespace:       ns.Name,
		Dimensions:      ns.Dimensions,
		ApproxCount:     st.ApproxCount,
		IndexDimensions: st.Dimensions,
		DimensionsMatch: st.Dimensions == 0 || st.Dimensions == ns.Dimensions,
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

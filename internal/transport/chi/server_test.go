package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/embcompare/internal/domain"
	"github.com/kailas-cloud/embcompare/internal/formatter"
	compareuc "github.com/kailas-cloud/embcompare/internal/usecase/compare"
	healthuc "github.com/kailas-cloud/embcompare/internal/usecase/health"
)

// --- Mocks ---

type mockComparer struct {
	report  domain.ComparisonReport
	err     error
	lastReq compareuc.Request

	ns      domain.Namespace
	stats   domain.NamespaceStats
	nsErr   error
	configs []domain.ProviderConfig
}

func (m *mockComparer) Compare(_ context.Context, req compareuc.Request) (domain.ComparisonReport, error) {
	m.lastReq = req
	return m.report, m.err
}

func (m *mockComparer) Providers() []domain.ProviderConfig { return m.configs }

func (m *mockComparer) Namespace(_ context.Context, _, _ string) (domain.Namespace, domain.NamespaceStats, error) {
	return m.ns, m.stats, m.nsErr
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func testReport() domain.ComparisonReport {
	return domain.ComparisonReport{
		RunID:     "run-1",
		Query:     "Senior Data Engineer",
		Domain:    domain.DomainTitles,
		TopK:      5,
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Providers: []string{"openai"},
		Results: map[string]domain.ProviderResult{
			"openai": {Outcome: domain.PipelineOutcome{
				Provider: "openai",
				Success:  &domain.Success{},
			}},
		},
		Summary: domain.Summary{Succeeded: 1, Fastest: "openai"},
	}
}

func newTestServer(c *mockComparer, h *mockHealth, keys ...string) http.Handler {
	if h == nil {
		h = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewServer(c, h, zap.NewNop()).Routes(keys)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Tests ---

func TestCompare_OK(t *testing.T) {
	c := &mockComparer{report: testReport()}
	h := newTestServer(c, nil)

	rr := do(t, h, "POST", "/v1/compare",
		`{"query":"Senior Data Engineer","domain":"titles","top_k":5,"providers":["openai"],"session_id":"tab-1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Disposition") != "" {
		t.Error("plain compare must not be an attachment")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	var doc formatter.Document
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.RunID != "run-1" || doc.Summary.Fastest != "openai" {
		t.Errorf("unexpected document: %+v", doc)
	}

	if c.lastReq.Query != "Senior Data Engineer" || c.lastReq.Domain != "titles" || c.lastReq.TopK != 5 ||
		c.lastReq.SessionID != "tab-1" || len(c.lastReq.Providers) != 1 {
		t.Errorf("request not forwarded: %+v", c.lastReq)
	}
}

func TestCompare_Download(t *testing.T) {
	h := newTestServer(&mockComparer{report: testReport()}, nil)

	rr := do(t, h, "POST", "/v1/compare?download=1", `{"query":"q","domain":"titles"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	want := `attachment; filename="model_comparison_20260314_092653.json"`
	if got := rr.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition: got %q, want %q", got, want)
	}
}

func TestCompare_BadBody(t *testing.T) {
	h := newTestServer(&mockComparer{}, nil)

	for _, body := range []string{`{`, `{"query":"q","unknown":1}`} {
		rr := do(t, h, "POST", "/v1/compare", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: got %d, want 400", body, rr.Code)
		}
		if decodeError(t, rr).Code != CodeBadRequest {
			t.Errorf("body %s: unexpected code", body)
		}
	}
}

func TestCompare_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"invalid", fmt.Errorf("%w: query is empty", domain.ErrInvalidRequest), http.StatusBadRequest, CodeValidationFailed},
		{"unknown provider", fmt.Errorf("%w: %q", domain.ErrUnknownProvider, "x"), http.StatusNotFound, CodeUnknownProvider},
		{"no providers", fmt.Errorf("%w for domain skills", domain.ErrNoProviders), http.StatusUnprocessableEntity, CodeNoProviders},
		{"superseded", domain.ErrRunSuperseded, http.StatusConflict, CodeRunSuperseded},
		{"internal", errors.New("dial tcp 10.0.0.1:6379: refused"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(&mockComparer{err: tc.err}, nil)
			rr := do(t, h, "POST", "/v1/compare", `{"query":"q","domain":"titles"}`)
			if rr.Code != tc.status {
				t.Fatalf("got %d, want %d", rr.Code, tc.status)
			}
			resp := decodeError(t, rr)
			if resp.Code != tc.code {
				t.Errorf("code: got %s, want %s", resp.Code, tc.code)
			}
			if strings.Contains(resp.Message, "10.0.0.1") {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestCompare_ValidationMessageIsVerbatim(t *testing.T) {
	h := newTestServer(&mockComparer{err: fmt.Errorf("%w: top_k must be between 1 and 100, got 500", domain.ErrInvalidRequest)}, nil)
	rr := do(t, h, "POST", "/v1/compare", `{"query":"q","domain":"titles","top_k":500}`)
	if msg := decodeError(t, rr).Message; !strings.Contains(msg, "top_k must be between 1 and 100") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestListProviders(t *testing.T) {
	h := newTestServer(&mockComparer{configs: []domain.ProviderConfig{{
		Name:          "openai",
		Kind:          domain.KindOpenAI,
		Model:         "text-embedding-3-small",
		Dimensions:    1536,
		CredentialRef: "env:OPENAI_API_KEY",
		Namespaces:    map[domain.SearchDomain]string{domain.DomainTitles: "titles_openai"},
	}}}, nil)

	rr := do(t, h, "GET", "/v1/providers", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp struct {
		Items []ProviderResponse `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Namespaces["titles"] != "titles_openai" || resp.Items[0].Kind != "openai" {
		t.Errorf("unexpected providers: %+v", resp.Items)
	}
}

func TestGetNamespace(t *testing.T) {
	c := &mockComparer{
		ns:    domain.Namespace{Name: "titles_vertex", Provider: "vertex", Dimensions: 768},
		stats: domain.NamespaceStats{ApproxCount: 1200, Dimensions: 1536},
	}
	h := newTestServer(c, nil)

	rr := do(t, h, "GET", "/v1/namespaces/vertex/titles", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	var resp NamespaceResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Namespace != "titles_vertex" || resp.ApproxCount != 1200 || resp.DimensionsMatch {
		t.Errorf("unexpected namespace response: %+v", resp)
	}
	if resp.Provider != "vertex" || resp.Domain != "titles" {
		t.Errorf("url params not carried: %+v", resp)
	}
}

func TestGetNamespace_NotFound(t *testing.T) {
	c := &mockComparer{nsErr: domain.NewError(domain.StageSearch, domain.KindNamespaceNotFound, "no namespace", nil)}
	rr := do(t, newTestServer(c, nil), "GET", "/v1/namespaces/vertex/skills", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
	if decodeError(t, rr).Code != CodeNamespaceNotFound {
		t.Error("unexpected code")
	}
}

func TestGetNamespace_BackendDown(t *testing.T) {
	c := &mockComparer{nsErr: fmt.Errorf("namespace stats: %w",
		domain.NewError(domain.StageSearch, domain.KindBackendUnavailable, "", errors.New("dial tcp 10.0.0.1")))}
	rr := do(t, newTestServer(c, nil), "GET", "/v1/namespaces/vertex/titles", "")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("got %d, want 502", rr.Code)
	}
	if msg := decodeError(t, rr).Message; strings.Contains(msg, "10.0.0.1") {
		t.Errorf("internal details leaked: %q", msg)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		code   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		h := newTestServer(&mockComparer{}, &mockHealth{report: healthuc.Report{
			Status: tc.status,
			Checks: map[string]healthuc.CheckResult{healthuc.StoreCheck: healthuc.CheckOK},
		}})
		rr := do(t, h, "GET", "/health", "")
		if rr.Code != tc.code {
			t.Errorf("%s: got %d, want %d", tc.status, rr.Code, tc.code)
		}
		var resp HealthResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != string(tc.status) || resp.Checks[healthuc.StoreCheck] != "ok" {
			t.Errorf("unexpected health body: %+v", resp)
		}
	}
}

func TestRoutes_NotFoundAndMethod(t *testing.T) {
	h := newTestServer(&mockComparer{}, nil)
	if rr := do(t, h, "GET", "/v1/unknown", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown route: got %d", rr.Code)
	}
	if rr := do(t, h, "GET", "/v1/compare", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: got %d", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := JSONRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	if decodeError(t, rr).Code != CodeInternalError {
		t.Error("expected internal_error code")
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("expected panic to be logged")
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewServer(&mockComparer{}, &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}, zap.New(core)).Routes(nil)

	do(t, h, "GET", "/health", "")

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one canonical log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/health" || fields["status"] != int64(200) {
		t.Errorf("unexpected log fields: %v", fields)
	}
	if fields["request_id"] == "" {
		t.Error("expected request_id")
	}
}

package chi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	for _, keys := range [][]string{nil, {""}, {"", ""}} {
		handler := BearerAuthMiddleware(keys)(okHandler())

		req := httptest.NewRequest("GET", "/v1/providers", http.NoBody)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("keys %q: got %d, want %d", keys, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_Headers(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"key1", "key2"})(okHandler())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"lowercase scheme", "bearer key1", http.StatusUnauthorized},
		{"wrong key", "Bearer wrong-key", http.StatusUnauthorized},
		{"key prefix", "Bearer key", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"first key", "Bearer key1", http.StatusOK},
		{"second key", "Bearer key2", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/providers", http.NoBody)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("got %d, want %d", rr.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized {
				if resp := decodeError(t, rr); resp.Code != CodeUnauthorized {
					t.Errorf("error code: got %s, want %s", resp.Code, CodeUnauthorized)
				}
			}
		})
	}
}

func TestAuthMiddleware_ServiceRoutes(t *testing.T) {
	const compareBody = `{"query":"Senior Data Engineer","domain":"titles"}`

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"compare without token", "POST", "/v1/compare", compareBody, "", http.StatusUnauthorized},
		{"compare with token", "POST", "/v1/compare", compareBody, "secret", http.StatusOK},
		{"providers without token", "GET", "/v1/providers", "", "", http.StatusUnauthorized},
		{"providers with token", "GET", "/v1/providers", "", "secret", http.StatusOK},
		{"namespace with wrong token", "GET", "/v1/namespaces/openai/titles", "", "other", http.StatusUnauthorized},
		{"health without token", "GET", "/health", "", "", http.StatusOK},
		{"metrics without token", "GET", "/metrics", "", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmp := &mockComparer{report: testReport()}
			h := newTestServer(cmp, nil, "secret")

			req := httptest.NewRequest(tc.method, tc.path, http.NoBody)
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			}
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("got %d, want %d: %s", rr.Code, tc.want, rr.Body.String())
			}
			if tc.path == "/v1/compare" {
				ran := cmp.lastReq.Query != ""
				if ran != (tc.want == http.StatusOK) {
					t.Errorf("comparison ran=%v for status %d", ran, rr.Code)
				}
			}
		})
	}
}

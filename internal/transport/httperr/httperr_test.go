package httperr

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
	"unicode/utf8"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

func TestFromStatus_Kinds(t *testing.T) {
	tests := []struct {
		status int
		want   domain.ErrorKind
	}{
		{http.StatusUnauthorized, domain.KindAuthFailure},
		{http.StatusForbidden, domain.KindAuthFailure},
		{http.StatusTooManyRequests, domain.KindRateLimited},
		{http.StatusRequestTimeout, domain.KindUnavailable},
		{http.StatusInternalServerError, domain.KindUnavailable},
		{http.StatusServiceUnavailable, domain.KindUnavailable},
		{http.StatusBadRequest, domain.KindMalformed},
		{http.StatusUnprocessableEntity, domain.KindMalformed},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			err := FromStatus(tc.status, nil, nil)
			if err.Kind != tc.want {
				t.Errorf("status %d: got %s, want %s", tc.status, err.Kind, tc.want)
			}
			if err.Stage != domain.StageEmbed {
				t.Errorf("expected embed stage, got %s", err.Stage)
			}
		})
	}
}

func TestFromStatus_RetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "5")

	err := FromStatus(http.StatusTooManyRequests, h, []byte(`{"detail":"slow down"}`))
	if err.RetryAfter != 5*time.Second {
		t.Errorf("expected 5s, got %v", err.RetryAfter)
	}
	if !strings.Contains(err.Detail, "slow down") {
		t.Errorf("detail not extracted: %q", err.Detail)
	}
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Error("expected ErrRateLimited")
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"0", 0},
		{"-3", 0},
		{"2", 2 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{now.Add(10 * time.Second).Format(http.TimeFormat), 10 * time.Second},
		{now.Add(-10 * time.Second).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tc := range tests {
		if got := RetryAfter(tc.in, now); got != tc.want {
			t.Errorf("RetryAfter(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"bad input"}`, "bad input"},
		{`{"message":"quota"}`, "quota"},
		{`{"error":{"message":"invalid key"}}`, "invalid key"},
		{`{"error":"nope"}`, "nope"},
		{`plain text`, "plain text"},
		{`{}`, ""},
	}
	for _, tc := range tests {
		if got := Detail([]byte(tc.body)); got != tc.want {
			t.Errorf("Detail(%s) = %q, want %q", tc.body, got, tc.want)
		}
	}

	long := strings.Repeat("x", 500)
	if got := Detail([]byte(long)); len(got) != maxDetailLen+3 {
		t.Errorf("expected truncation, got len %d", len(got))
	}

	// "é" is two bytes; the leading "x" puts the byte limit inside a rune.
	accented := "x" + strings.Repeat("é", 300)
	got := Detail([]byte(accented))
	if !utf8.ValidString(got) {
		t.Errorf("truncated detail is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") || len(got) > maxDetailLen+3 {
		t.Errorf("unexpected truncation: len %d", len(got))
	}
}

func TestFromTransport(t *testing.T) {
	if err := FromTransport(context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("context error must pass through, got %v", err)
	}
	err := FromTransport(errors.New("dial tcp: connection refused"))
	if domain.KindOf(err) != domain.KindUnavailable {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_, _ = w.Write([]byte(`{"echo":"` + in["text"] + `"}`))
	}))
	defer server.Close()

	h := http.Header{}
	h.Set("Authorization", "Bearer k")

	var out struct {
		Echo string `json:"echo"`
	}
	if err := PostJSON(context.Background(), server.Client(), server.URL, h, map[string]string{"text": "hi"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Echo != "hi" {
		t.Errorf("unexpected echo %q", out.Echo)
	}

	err := PostJSON(context.Background(), server.Client(), server.URL, nil, map[string]string{}, &out)
	if domain.KindOf(err) != domain.KindAuthFailure {
		t.Errorf("expected auth failure, got %v", err)
	}
}

func TestPostJSON_BadBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var out struct{}
	err := PostJSON(context.Background(), server.Client(), server.URL, nil, struct{}{}, &out)
	if domain.KindOf(err) != domain.KindMalformed {
		t.Errorf("expected malformed, got %v", err)
	}
}

package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindAuthFailure, ErrAuthFailure},
		{KindRateLimited, ErrRateLimited},
		{KindUnavailable, ErrUnavailable},
		{KindMalformed, ErrMalformed},
		{KindDimensionMismatch, ErrVectorDimMismatch},
		{KindNamespaceNotFound, ErrNamespaceNotFound},
		{KindBackendUnavailable, ErrBackendUnavailable},
		{KindInvalidRequest, ErrInvalidRequest},
		{KindTimeout, ErrTimeout},
		{KindCanceled, ErrCanceled},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewError(StageEmbed, tt.kind, "detail", nil))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is(%v, %v)", err, tt.sentinel)
			}
			if KindOf(err) != tt.kind {
				t.Errorf("KindOf = %q, want %q", KindOf(err), tt.kind)
			}
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewError(StageSearch, KindBackendUnavailable, "ft.search failed", cause)

	if got := err.Error(); got != "backend_unavailable: ft.search failed: context deadline exceeded" {
		t.Errorf("unexpected message %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}

func TestRetryable(t *testing.T) {
	retryable := map[ErrorKind]bool{
		KindRateLimited:        true,
		KindUnavailable:        true,
		KindBackendUnavailable: true,
		KindAuthFailure:        false,
		KindMalformed:          false,
		KindDimensionMismatch:  false,
		KindNamespaceNotFound:  false,
		KindInvalidRequest:     false,
		KindTimeout:            false,
		KindCanceled:           false,
	}
	for kind, want := range retryable {
		if got := IsRetryable(NewError(StageEmbed, kind, "", nil)); got != want {
			t.Errorf("IsRetryable(%s) = %v, want %v", kind, got, want)
		}
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("unclassified errors must not be retryable")
	}
}

func TestSuggestedDelay(t *testing.T) {
	err := fmt.Errorf("call: %w", NewRateLimited(3*time.Second, "429", nil))
	if got := SuggestedDelay(err); got != 3*time.Second {
		t.Errorf("SuggestedDelay = %v, want 3s", got)
	}
	if got := SuggestedDelay(errors.New("plain")); got != 0 {
		t.Errorf("SuggestedDelay = %v, want 0", got)
	}
}

func TestNewDimensionMismatch(t *testing.T) {
	err := NewDimensionMismatch(768, 1536)
	if err.Detail != "dimension mismatch: expected 768, got 1536" {
		t.Errorf("unexpected detail %q", err.Detail)
	}
	if !strings.Contains(err.Hint, "text-embedding-3-small") {
		t.Errorf("unexpected hint %q", err.Hint)
	}
	if err.Stage != StageSearch || !errors.Is(err, ErrVectorDimMismatch) {
		t.Errorf("unexpected classification: %+v", err)
	}

	if h := NewDimensionMismatch(768, 42).Hint; h != "" {
		t.Errorf("expected no hint for unknown width, got %q", h)
	}
}

// Package httperr classifies embedding provider HTTP failures into domain error kinds.
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

const maxDetailLen = 200

// FromStatus maps a non-2xx provider response to a classified embed-stage error.
func FromStatus(status int, header http.Header, body []byte) *domain.Error {
	detail := fmt.Sprintf("HTTP %d", status)
	if msg := Detail(body); msg != "" {
		detail += ": " + msg
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewError(domain.StageEmbed, domain.KindAuthFailure, detail, nil)
	case status == http.StatusTooManyRequests:
		var retryAfter time.Duration
		if header != nil {
			retryAfter = RetryAfter(header.Get("Retry-After"), time.Now())
		}
		return domain.NewRateLimited(retryAfter, detail, nil)
	case status == http.StatusRequestTimeout || status >= 500:
		return domain.NewError(domain.StageEmbed, domain.KindUnavailable, detail, nil)
	default:
		return domain.NewError(domain.StageEmbed, domain.KindMalformed, detail, nil)
	}
}

// FromTransport classifies a failure that produced no HTTP response.
// Context errors are returned unchanged so the caller can tell timeout from cancellation.
func FromTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewError(domain.StageEmbed, domain.KindUnavailable, "request failed", err)
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func RetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Detail extracts a short message from common JSON error bodies.
func Detail(body []byte) string {
	var parsed struct {
		Detail  string          `json:"detail"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return truncate(strings.TrimSpace(string(body)))
	}
	switch {
	case parsed.Detail != "":
		return truncate(parsed.Detail)
	case parsed.Message != "":
		return truncate(parsed.Message)
	case len(parsed.Error) > 0:
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(parsed.Error, &nested) == nil && nested.Message != "" {
			return truncate(nested.Message)
		}
		var s string
		if json.Unmarshal(parsed.Error, &s) == nil {
			return truncate(s)
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

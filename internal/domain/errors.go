package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoProviders signals that no provider resolves for the requested domain.
	ErrNoProviders = errors.New("no providers configured")
	// ErrInvalidRequest signals a comparison request that fails validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRunSuperseded signals that a newer run on the same session cancelled this one.
	ErrRunSuperseded = errors.New("run superseded by a newer comparison")
	// ErrUnknownProvider signals a provider name absent from configuration.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrAuthFailure signals rejected or missing provider credentials.
	ErrAuthFailure = errors.New("auth failure")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable signals a network failure or provider outage.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrMalformed signals that the provider returned no usable vector.
	ErrMalformed = errors.New("malformed embedding response")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrNamespaceNotFound signals a missing namespace in the vector database.
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrBackendUnavailable signals a vector database failure.
	ErrBackendUnavailable = errors.New("vector backend unavailable")
	// ErrTimeout signals a pipeline that did not settle within its deadline.
	ErrTimeout = errors.New("pipeline timeout")
	// ErrCanceled signals a pipeline cancelled before it settled.
	ErrCanceled = errors.New("pipeline canceled")
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

// Embedding stage kinds.
const (
	KindAuthFailure ErrorKind = "auth_failure"
	KindRateLimited ErrorKind = "rate_limited"
	KindUnavailable ErrorKind = "unavailable"
	KindMalformed   ErrorKind = "malformed"
)

// Search stage kinds.
const (
	KindDimensionMismatch  ErrorKind = "dimension_mismatch"
	KindNamespaceNotFound  ErrorKind = "namespace_not_found"
	KindBackendUnavailable ErrorKind = "backend_unavailable"
	KindInvalidRequest     ErrorKind = "invalid_request"
)

// Dispatcher kinds.
const (
	KindTimeout  ErrorKind = "timeout"
	KindCanceled ErrorKind = "canceled"
)

var kindSentinels = map[ErrorKind]error{
	KindAuthFailure:        ErrAuthFailure,
	KindRateLimited:        ErrRateLimited,
	KindUnavailable:        ErrUnavailable,
	KindMalformed:          ErrMalformed,
	KindDimensionMismatch:  ErrVectorDimMismatch,
	KindNamespaceNotFound:  ErrNamespaceNotFound,
	KindBackendUnavailable: ErrBackendUnavailable,
	KindInvalidRequest:     ErrInvalidRequest,
	KindTimeout:            ErrTimeout,
	KindCanceled:           ErrCanceled,
}

// Retryable reports whether failures of this kind are transient.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindUnavailable, KindBackendUnavailable:
		return true
	default:
		return false
	}
}

// Stage names the pipeline step that produced an error.
type Stage string

const (
	// StageEmbed is the provider embedding call.
	StageEmbed Stage = "embed"
	// StageSearch is the vector database query.
	StageSearch Stage = "search"
	// StageDispatch is the dispatcher itself (timeouts, cancellation).
	StageDispatch Stage = "dispatch"
)

// Error is a classified pipeline error.
type Error struct {
	Kind   ErrorKind
	Stage  Stage
	Detail string
	// Hint is an optional remediation note shown next to Detail.
	Hint string
	// RetryAfter is the provider-suggested delay for rate limited responses.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel error that corresponds to the kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// NewError creates a classified error.
func NewError(stage Stage, kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Detail: detail, Err: err}
}

// NewRateLimited creates an embed-stage rate limit error with an optional suggested delay.
func NewRateLimited(retryAfter time.Duration, detail string, err error) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Stage:      StageEmbed,
		Detail:     detail,
		RetryAfter: retryAfter,
		Err:        err,
	}
}

// NewDimensionMismatch creates the search-stage dimension error with a model hint.
func NewDimensionMismatch(expected, got int) *Error {
	e := &Error{
		Kind:   KindDimensionMismatch,
		Stage:  StageSearch,
		Detail: fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got),
	}
	if model, ok := ModelForDimensions(got); ok {
		e.Hint = fmt.Sprintf("a %d-dimensional vector is typical of %s", got, model)
	}
	return e
}

// AsError extracts a classified error from the chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of a classified error, or "" if err is unclassified.
func KindOf(err error) ErrorKind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return ""
}

// IsRetryable reports whether err carries a transient kind.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// SuggestedDelay returns the provider-suggested retry delay carried by err, if any.
func SuggestedDelay(err error) time.Duration {
	if de, ok := AsError(err); ok {
		return de.RetryAfter
	}
	return 0
}

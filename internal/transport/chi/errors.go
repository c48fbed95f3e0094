package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// ErrorCode is a machine-readable error code in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeUnknownProvider    ErrorCode = "unknown_provider"
	CodeNoProviders        ErrorCode = "no_providers"
	CodeRunSuperseded      ErrorCode = "run_superseded"
	CodeNamespaceNotFound  ErrorCode = "namespace_not_found"
	CodeBackendUnavailable ErrorCode = "backend_unavailable"
	CodeRequestCanceled    ErrorCode = "request_canceled"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// clientErrors carry messages built from request data; they are returned verbatim.
var clientErrors = []error{
	domain.ErrInvalidRequest,
	domain.ErrUnknownProvider,
	domain.ErrNoProviders,
	domain.ErrNamespaceNotFound,
}

// safeDomainMessage returns a message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	for _, s := range []error{domain.ErrRunSuperseded, domain.ErrBackendUnavailable} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

// StatusClientClosedRequest is the de facto status for a client that went away.
const StatusClientClosedRequest = 499

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnknownProvider, http.StatusNotFound, CodeUnknownProvider),
		sentinelHandler(domain.ErrNoProviders, http.StatusUnprocessableEntity, CodeNoProviders),
		sentinelHandler(domain.ErrRunSuperseded, http.StatusConflict, CodeRunSuperseded),
		sentinelHandler(domain.ErrNamespaceNotFound, http.StatusNotFound, CodeNamespaceNotFound),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusBadGateway, CodeBackendUnavailable),
		sentinelHandler(context.Canceled, StatusClientClosedRequest, CodeRequestCanceled),
	}
}

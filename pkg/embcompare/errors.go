package embcompare

import "github.com/kailas-cloud/embcompare/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNoProviders     = domain.ErrNoProviders
	ErrInvalidRequest  = domain.ErrInvalidRequest
	ErrUnknownProvider = domain.ErrUnknownProvider
	ErrRunSuperseded   = domain.ErrRunSuperseded
	ErrAuthFailure     = domain.ErrAuthFailure
	ErrRateLimited     = domain.ErrRateLimited
	ErrUnavailable     = domain.ErrUnavailable
)

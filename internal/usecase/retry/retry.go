// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// Policy configures exponential backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// OnRetry is called before each backoff sleep. Optional.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns 3 attempts starting at 1s, doubling, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// Delay returns the backoff before attempt n+1 (n is 1-based), capped at MaxDelay.
func (p Policy) Delay(n int) time.Duration {
	p = p.withDefaults()
	d := float64(p.BaseDelay)
	for i := 1; i < n; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return time.Duration(d)
}

// Stats reports how an operation settled.
type Stats struct {
	Attempts   int
	TotalDelay time.Duration
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// Retryable reports whether err is worth another attempt.
type Retryable func(err error) bool

// Do calls op until it succeeds, returns a non-retryable error, or MaxAttempts is reached.
// A suggested delay carried by the error (domain.SuggestedDelay) replaces the computed
// backoff for that attempt, still capped at MaxDelay.
func Do[T any](ctx context.Context, p Policy, retryable Retryable, op func(ctx context.Context) (T, error)) (T, Stats, error) {
	p = p.withDefaults()
	if retryable == nil {
		retryable = domain.IsRetryable
	}

	var zero T
	var st Stats
	for attempt := 1; ; attempt++ {
		st.Attempts = attempt
		res, err := op(ctx)
		if err == nil {
			return res, st, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return zero, st, err
		}
		if attempt >= p.MaxAttempts {
			return zero, st, &ExhaustedError{Attempts: attempt, Err: err}
		}

		delay := p.Delay(attempt)
		if suggested := domain.SuggestedDelay(err); suggested > 0 {
			delay = min(suggested, p.MaxDelay)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, st, err
		case <-t.C:
		}
		st.TotalDelay += delay
	}
}

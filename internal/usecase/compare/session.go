package compare

import (
	"context"
	"sync"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// Sessions tracks the in-flight run per session key.
// Starting a run on a key cancels the run already in flight on that key.
type Sessions struct {
	mu   sync.Mutex
	seq  uint64
	runs map[string]sessionRun
}

type sessionRun struct {
	id     uint64
	cancel context.CancelCauseFunc
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{runs: make(map[string]sessionRun)}
}

// Begin registers a run for key and returns its context. The previous run on
// the same key is cancelled with cause domain.ErrRunSuperseded.
// The returned release func must be called when the run settles.
func (s *Sessions) Begin(ctx context.Context, key string) (context.Context, func()) {
	runCtx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	s.seq++
	id := s.seq
	if prev, ok := s.runs[key]; ok {
		prev.cancel(domain.ErrRunSuperseded)
	}
	s.runs[key] = sessionRun{id: id, cancel: cancel}
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		if cur, ok := s.runs[key]; ok && cur.id == id {
			delete(s.runs, key)
		}
		s.mu.Unlock()
		cancel(context.Canceled)
	}
	return runCtx, release
}

// Active returns the number of sessions with a run in flight.
func (s *Sessions) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

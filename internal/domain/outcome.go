package domain

import "time"

// NamespaceStats describes a namespace as reported by the vector database.
type NamespaceStats struct {
	ApproxCount int64
	Dimensions  int
}

// Success is the payload of a pipeline that embedded and searched successfully.
type Success struct {
	Matches []SearchMatch
	Tokens  int
}

// Failure is the typed reason a pipeline produced no matches.
type Failure struct {
	Kind           ErrorKind
	Stage          Stage
	Detail         string
	Hint           string
	RetryExhausted bool
}

// PipelineOutcome is the per-provider result of one comparison run.
// Exactly one of Success and Failure is set.
type PipelineOutcome struct {
	Provider  string
	Model     string
	Namespace Namespace
	Elapsed   time.Duration
	// Attempts counts embed and search calls, including retries.
	Attempts int
	Success  *Success
	Failure  *Failure
	// Stats is best-effort and may be nil.
	Stats *NamespaceStats
}

// Succeeded reports whether the pipeline produced matches (possibly zero).
func (o PipelineOutcome) Succeeded() bool { return o.Success != nil }

// Matches returns the ordered matches of a successful pipeline.
func (o PipelineOutcome) Matches() []SearchMatch {
	if o.Success == nil {
		return nil
	}
	return o.Success.Matches
}

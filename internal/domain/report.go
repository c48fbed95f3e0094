package domain

import "time"

// Band is a descriptive quality label for a match distance.
type Band string

const (
	// BandExcellent marks distance <= 0.3.
	BandExcellent Band = "excellent"
	// BandGood marks distance <= 0.7.
	BandGood Band = "good"
	// BandFair marks distance > 0.7.
	BandFair Band = "fair"
)

// RankedMatch is a match with its 1-based rank and quality band.
type RankedMatch struct {
	Rank  int
	Match SearchMatch
	Band  Band
}

// ProviderStats summarizes one successful pipeline.
type ProviderStats struct {
	Count        int
	MeanDistance float64
	MinDistance  float64
	MaxDistance  float64
	Elapsed      time.Duration
	Bands        map[Band]int
}

// ProviderResult is one provider's column in the report.
type ProviderResult struct {
	Outcome PipelineOutcome
	Matches []RankedMatch
	// Stats is nil for failed pipelines and for successes without matches.
	Stats *ProviderStats
}

// Summary is the cross-provider comparison over successful pipelines.
type Summary struct {
	BestQuality           string
	Fastest               string
	Succeeded             int
	Failed                int
	NoSuccessfulProviders bool
}

// ComparisonReport is the immutable result of one comparison run.
type ComparisonReport struct {
	RunID     string
	Query     string
	Domain    SearchDomain
	TopK      int
	Timestamp time.Time
	// Providers lists provider names in configuration order.
	Providers []string
	Results   map[string]ProviderResult
	Summary   Summary
}

// Outcome returns the pipeline outcome for a provider.
func (r *ComparisonReport) Outcome(provider string) (PipelineOutcome, bool) {
	res, ok := r.Results[provider]
	if !ok {
		return PipelineOutcome{}, false
	}
	return res.Outcome, true
}

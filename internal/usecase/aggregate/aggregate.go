// Package aggregate merges pipeline outcomes into a comparison report.
package aggregate

import (
	"time"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// Band thresholds on cosine distance. Inclusive upper bounds.
const (
	ExcellentMax = 0.3
	GoodMax      = 0.7
)

// RunInfo identifies the run a report is built for.
type RunInfo struct {
	ID        string
	Query     string
	Domain    domain.SearchDomain
	TopK      int
	Timestamp time.Time
}

// BandFor classifies a distance. Bands never filter or reorder matches.
func BandFor(distance float64) domain.Band {
	switch {
	case distance <= ExcellentMax:
		return domain.BandExcellent
	case distance <= GoodMax:
		return domain.BandGood
	default:
		return domain.BandFair
	}
}

// Aggregate builds the report. It is pure: the same run and outcomes always
// produce the same report. Outcome order is the provider order.
func Aggregate(run RunInfo, outcomes []domain.PipelineOutcome) domain.ComparisonReport {
	rep := domain.ComparisonReport{
		RunID:     run.ID,
		Query:     run.Query,
		Domain:    run.Domain,
		TopK:      run.TopK,
		Timestamp: run.Timestamp,
		Providers: make([]string, 0, len(outcomes)),
		Results:   make(map[string]domain.ProviderResult, len(outcomes)),
	}

	var (
		bestMean    float64
		fastest     time.Duration
		haveBest    bool
		haveFastest bool
	)
	for _, o := range outcomes {
		rep.Providers = append(rep.Providers, o.Provider)
		res := domain.ProviderResult{Outcome: o}

		if !o.Succeeded() {
			rep.Summary.Failed++
			rep.Results[o.Provider] = res
			continue
		}
		rep.Summary.Succeeded++

		res.Matches = rank(o.Matches())
		res.Stats = stats(res.Matches, o.Elapsed)
		rep.Results[o.Provider] = res

		// Strict comparisons keep the earliest provider on ties.
		if res.Stats != nil && (!haveBest || res.Stats.MeanDistance < bestMean) {
			bestMean = res.Stats.MeanDistance
			rep.Summary.BestQuality = o.Provider
			haveBest = true
		}
		if !haveFastest || o.Elapsed < fastest {
			fastest = o.Elapsed
			rep.Summary.Fastest = o.Provider
			haveFastest = true
		}
	}
	rep.Summary.NoSuccessfulProviders = rep.Summary.Succeeded == 0
	return rep
}

func rank(matches []domain.SearchMatch) []domain.RankedMatch {
	if len(matches) == 0 {
		return nil
	}
	out := make([]domain.RankedMatch, len(matches))
	for i, m := range matches {
		out[i] = domain.RankedMatch{Rank: i + 1, Match: m, Band: BandFor(m.Distance())}
	}
	return out
}

// stats returns nil for an empty match list.
func stats(matches []domain.RankedMatch, elapsed time.Duration) *domain.ProviderStats {
	if len(matches) == 0 {
		return nil
	}
	st := &domain.ProviderStats{
		Count:       len(matches),
		MinDistance: matches[0].Match.Distance(),
		MaxDistance: matches[0].Match.Distance(),
		Elapsed:     elapsed,
		Bands:       map[domain.Band]int{},
	}
	var sum float64
	for _, m := range matches {
		d := m.Match.Distance()
		sum += d
		st.MinDistance = min(st.MinDistance, d)
		st.MaxDistance = max(st.MaxDistance, d)
		st.Bands[m.Band]++
	}
	st.MeanDistance = sum / float64(len(matches))
	return st
}

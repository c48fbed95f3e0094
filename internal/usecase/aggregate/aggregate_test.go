package aggregate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

var run = RunInfo{
	ID:        "run-1",
	Query:     "Senior Data Engineer",
	Domain:    domain.DomainTitles,
	TopK:      3,
	Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
}

func success(provider string, elapsed time.Duration, distances ...float64) domain.PipelineOutcome {
	matches := make([]domain.SearchMatch, len(distances))
	for i, d := range distances {
		matches[i] = domain.NewSearchMatch(provider+"-"+string(rune('a'+i)), d, map[string]any{"text": "t"})
	}
	return domain.PipelineOutcome{
		Provider: provider,
		Elapsed:  elapsed,
		Attempts: 2,
		Success:  &domain.Success{Matches: matches},
	}
}

func failure(provider string, kind domain.ErrorKind) domain.PipelineOutcome {
	return domain.PipelineOutcome{
		Provider: provider,
		Elapsed:  time.Millisecond,
		Attempts: 1,
		Failure:  &domain.Failure{Kind: kind, Stage: domain.StageSearch, Detail: "x"},
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		d    float64
		want domain.Band
	}{
		{0, domain.BandExcellent},
		{0.25, domain.BandExcellent},
		{0.3, domain.BandExcellent},
		{0.3000001, domain.BandGood},
		{0.5, domain.BandGood},
		{0.7, domain.BandGood},
		{0.7000001, domain.BandFair},
		{0.9, domain.BandFair},
		{2, domain.BandFair},
	}
	for _, tc := range tests {
		if got := BandFor(tc.d); got != tc.want {
			t.Errorf("BandFor(%v) = %s, want %s", tc.d, got, tc.want)
		}
	}
}

func TestAggregate_BandsAndStats(t *testing.T) {
	rep := Aggregate(run, []domain.PipelineOutcome{success("openai", 40*time.Millisecond, 0.25, 0.5, 0.9)})

	res := rep.Results["openai"]
	if len(res.Matches) != 3 {
		t.Fatalf("expected 3 ranked matches, got %d", len(res.Matches))
	}
	wantBands := []domain.Band{domain.BandExcellent, domain.BandGood, domain.BandFair}
	for i, m := range res.Matches {
		if m.Rank != i+1 {
			t.Errorf("match %d: rank %d", i, m.Rank)
		}
		if m.Band != wantBands[i] {
			t.Errorf("match %d: band %s, want %s", i, m.Band, wantBands[i])
		}
	}

	st := res.Stats
	if st == nil {
		t.Fatal("expected stats")
	}
	if st.Count != 3 || st.MinDistance != 0.25 || st.MaxDistance != 0.9 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if math.Abs(st.MeanDistance-0.55) > 1e-9 {
		t.Errorf("expected mean 0.55, got %f", st.MeanDistance)
	}
	if st.Bands[domain.BandExcellent] != 1 || st.Bands[domain.BandGood] != 1 || st.Bands[domain.BandFair] != 1 {
		t.Errorf("unexpected band counts: %v", st.Bands)
	}
}

func TestAggregate_Summary(t *testing.T) {
	rep := Aggregate(run, []domain.PipelineOutcome{
		success("openai", 120*time.Millisecond, 0.2, 0.3),
		success("voyage", 80*time.Millisecond, 0.1, 0.2),
		failure("vertex", domain.KindNamespaceNotFound),
	})

	if rep.Summary.BestQuality != "voyage" {
		t.Errorf("expected voyage best quality, got %q", rep.Summary.BestQuality)
	}
	if rep.Summary.Fastest != "voyage" {
		t.Errorf("expected voyage fastest, got %q", rep.Summary.Fastest)
	}
	if rep.Summary.Succeeded != 2 || rep.Summary.Failed != 1 || rep.Summary.NoSuccessfulProviders {
		t.Errorf("unexpected summary: %+v", rep.Summary)
	}
	if !reflect.DeepEqual(rep.Providers, []string{"openai", "voyage", "vertex"}) {
		t.Errorf("provider order not preserved: %v", rep.Providers)
	}
	if rep.Results["vertex"].Stats != nil || rep.Results["vertex"].Matches != nil {
		t.Error("failed provider must have no stats or matches")
	}
	if o, ok := rep.Outcome("vertex"); !ok || o.Failure.Kind != domain.KindNamespaceNotFound {
		t.Errorf("failure outcome not carried: %+v", o)
	}
}

func TestAggregate_TiesBreakByProviderOrder(t *testing.T) {
	rep := Aggregate(run, []domain.PipelineOutcome{
		success("b", 50*time.Millisecond, 0.4),
		success("a", 50*time.Millisecond, 0.4),
	})
	if rep.Summary.BestQuality != "b" || rep.Summary.Fastest != "b" {
		t.Errorf("expected first provider to win ties, got %+v", rep.Summary)
	}
}

func TestAggregate_EmptySuccess(t *testing.T) {
	rep := Aggregate(run, []domain.PipelineOutcome{
		success("empty", time.Millisecond),
		success("full", 5*time.Millisecond, 0.6),
	})
	if rep.Summary.BestQuality != "full" {
		t.Errorf("zero-match success must not win best quality, got %q", rep.Summary.BestQuality)
	}
	if rep.Summary.Fastest != "empty" {
		t.Errorf("zero-match success is still eligible for fastest, got %q", rep.Summary.Fastest)
	}
	if rep.Results["empty"].Stats != nil {
		t.Error("expected nil stats for empty success")
	}
}

func TestAggregate_NoSuccesses(t *testing.T) {
	rep := Aggregate(run, []domain.PipelineOutcome{
		failure("openai", domain.KindAuthFailure),
		failure("voyage", domain.KindTimeout),
	})
	if !rep.Summary.NoSuccessfulProviders {
		t.Error("expected NoSuccessfulProviders")
	}
	if rep.Summary.BestQuality != "" || rep.Summary.Fastest != "" {
		t.Errorf("expected empty summary winners, got %+v", rep.Summary)
	}
	if len(rep.Results) != 2 {
		t.Errorf("expected every provider in results, got %d", len(rep.Results))
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	outcomes := []domain.PipelineOutcome{
		success("openai", 120*time.Millisecond, 0.2, 0.35, 0.8),
		failure("vertex", domain.KindDimensionMismatch),
		success("voyage", 80*time.Millisecond, 0.15),
	}
	first := Aggregate(run, outcomes)
	for range 5 {
		if got := Aggregate(run, outcomes); !reflect.DeepEqual(first, got) {
			t.Fatal("aggregate is not deterministic")
		}
	}
	if first.RunID != run.ID || first.Query != run.Query || !first.Timestamp.Equal(run.Timestamp) {
		t.Errorf("run info not carried: %+v", first)
	}
}

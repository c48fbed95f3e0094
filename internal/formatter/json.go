package formatter

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/embcompare/internal/domain"
)

// jsonFormatter formats the export document.
type jsonFormatter struct{}

// NewJSON creates a JSON export formatter.
func NewJSON() Formatter {
	return &jsonFormatter{}
}

func (f *jsonFormatter) Format(report *domain.ComparisonReport) ([]byte, error) {
	return json.MarshalIndent(NewDocument(report), "", "  ")
}

// Document is the JSON export of a comparison report.
type Document struct {
	RunID     string                 `json:"run_id"`
	Query     string                 `json:"query"`
	Domain    string                 `json:"domain"`
	TopK      int                    `json:"top_k"`
	Timestamp time.Time              `json:"timestamp"`
	Providers []string               `json:"providers"`
	Models    map[string]ModelOutput `json:"models"`
	Summary   SummaryOutput          `json:"summary"`
}

// ModelOutput is one provider's section of the export.
type ModelOutput struct {
	Namespace     string         `json:"namespace"`
	Model         string         `json:"model"`
	Dimensions    int            `json:"dimensions"`
	Results       []MatchOutput  `json:"results"`
	SearchTimeMS  int64          `json:"search_time_ms"`
	Attempts      int            `json:"attempts"`
	Tokens        int            `json:"tokens,omitempty"`
	Stats         *StatsOutput   `json:"stats,omitempty"`
	NamespaceInfo *NamespaceInfo `json:"namespace_info,omitempty"`
	Error         *ErrorOutput   `json:"error,omitempty"`
}

// MatchOutput is one ranked match.
type MatchOutput struct {
	Rank     int            `json:"rank"`
	ID       string         `json:"id"`
	Distance float64        `json:"distance"`
	Band     string         `json:"band"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StatsOutput summarizes a provider's matches.
type StatsOutput struct {
	Count        int            `json:"count"`
	MeanDistance float64        `json:"mean_distance"`
	MinDistance  float64        `json:"min_distance"`
	MaxDistance  float64        `json:"max_distance"`
	Bands        map[string]int `json:"bands"`
}

// NamespaceInfo is the best-effort namespace description.
type NamespaceInfo struct {
	ApproxCount int64 `json:"approx_count"`
	Dimensions  int   `json:"dimensions,omitempty"`
}

// ErrorOutput describes a failed pipeline.
type ErrorOutput struct {
	Kind           string `json:"kind"`
	Stage          string `json:"stage"`
	Detail         string `json:"detail"`
	Hint           string `json:"hint,omitempty"`
	RetryExhausted bool   `json:"retry_exhausted"`
}

// SummaryOutput is the cross-provider summary.
type SummaryOutput struct {
	BestQuality           string `json:"best_quality,omitempty"`
	Fastest               string `json:"fastest,omitempty"`
	Succeeded             int    `json:"succeeded"`
	Failed                int    `json:"failed"`
	NoSuccessfulProviders bool   `json:"no_successful_providers"`
}

// NewDocument converts a report into its export document.
func NewDocument(report *domain.ComparisonReport) *Document {
	doc := &Document{
		RunID:     report.RunID,
		Query:     report.Query,
		Domain:    string(report.Domain),
		TopK:      report.TopK,
		Timestamp: report.Timestamp,
		Providers: report.Providers,
		Models:    make(map[string]ModelOutput, len(report.Results)),
		Summary: SummaryOutput{
			BestQuality:           report.Summary.BestQuality,
			Fastest:               report.Summary.Fastest,
			Succeeded:             report.Summary.Succeeded,
			Failed:                report.Summary.Failed,
			NoSuccessfulProviders: report.Summary.NoSuccessfulProviders,
		},
	}
	for name, res := range report.Results {
		doc.Models[name] = modelOutput(res)
	}
	return doc
}

func modelOutput(res domain.ProviderResult) ModelOutput {
	o := res.Outcome
	out := ModelOutput{
		Namespace:    o.Namespace.Name,
		Model:        o.Model,
		Dimensions:   o.Namespace.Dimensions,
		Results:      make([]MatchOutput, 0, len(res.Matches)),
		SearchTimeMS: o.Elapsed.Milliseconds(),
		Attempts:     o.Attempts,
	}
	for _, m := range res.Matches {
		out.Results = append(out.Results, MatchOutput{
			Rank:     m.Rank,
			ID:       m.Match.ID(),
			Distance: m.Match.Distance(),
			Band:     string(m.Band),
			Metadata: m.Match.Metadata(),
		})
	}
	if o.Success != nil {
		out.Tokens = o.Success.Tokens
	}
	if st := res.Stats; st != nil {
		bands := make(map[string]int, len(st.Bands))
		for b, n := range st.Bands {
			bands[string(b)] = n
		}
		out.Stats = &StatsOutput{
			Count:        st.Count,
			MeanDistance: st.MeanDistance,
			MinDistance:  st.MinDistance,
			MaxDistance:  st.MaxDistance,
			Bands:        bands,
		}
	}
	if o.Stats != nil {
		out.NamespaceInfo = &NamespaceInfo{ApproxCount: o.Stats.ApproxCount, Dimensions: o.Stats.Dimensions}
	}
	if f := o.Failure; f != nil {
		out.Error = &ErrorOutput{
			Kind:           string(f.Kind),
			Stage:          string(f.Stage),
			Detail:         f.Detail,
			Hint:           f.Hint,
			RetryExhausted: f.RetryExhausted,
		}
	}
	return out
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Comparison pipeline Prometheus metrics.
var (
	ComparisonRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "comparison_runs_total",
			Help:      "Comparison runs by result",
		},
		[]string{"domain", "result"}, // "completed" / "no_success" / "superseded" / "rejected"
	)

	PipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pipeline_outcomes_total",
			Help:      "Per-provider pipeline outcomes; result is success or the failure kind",
		},
		[]string{"provider", "result"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Embed-then-search pipeline duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retry_attempts_total",
			Help:      "Retries scheduled after a transient failure",
		},
		[]string{"provider", "stage", "error_type"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Vector database queries by result",
		},
		[]string{"backend", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "Vector database query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers comparison metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ComparisonRunsTotal)
	prometheus.MustRegister(PipelineOutcomesTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	pipelineMetricsRegistered = true
}

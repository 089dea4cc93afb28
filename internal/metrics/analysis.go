package metrics

import "github.com/prometheus/client_golang/prometheus"

// Analysis pipeline Prometheus metrics.
var (
	IndexDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tableadvisor",
			Name:      "similarity_index_degraded_total",
			Help:      "Similarity index operations that degraded to an empty result",
		},
		[]string{"op"},
	)

	ParserTierTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tableadvisor",
			Name:      "response_parser_tier_total",
			Help:      "Model responses resolved per parser tier",
		},
		[]string{"tier"},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tableadvisor",
			Name:      "recommendations_total",
			Help:      "Recommendations emitted after aggregation",
		},
		[]string{"category", "source"},
	)

	QueryTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tableadvisor",
			Name:      "query_analysis_timeouts_total",
			Help:      "Model-assisted query analyses abandoned after the per-query timeout",
		},
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tableadvisor",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of analysis stages in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"}, // heuristic / model / aggregate
	)
)

var analysisMetricsRegistered bool

// RegisterAnalysisMetrics registers Prometheus analysis metrics. Must be called once from main.
func RegisterAnalysisMetrics() {
	if analysisMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexDegradedTotal)
	prometheus.MustRegister(ParserTierTotal)
	prometheus.MustRegister(RecommendationsTotal)
	prometheus.MustRegister(QueryTimeoutsTotal)
	prometheus.MustRegister(AnalysisDuration)
	analysisMetricsRegistered = true
}

// RegisterAll registers every collector in this package.
func RegisterAll() {
	RegisterEmbeddingMetrics()
	RegisterGenerationMetrics()
	RegisterAnalysisMetrics()
	RegisterHTTPMetrics()
}

package engine

import (
	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/analyzer"
)

// Status describes how much of the pipeline ran at full fidelity.
// Degradation is informational: the run still produced whatever it could.
type Status struct {
	LLMEnabled          bool
	VectorDBEnabled     bool
	GenerationAvailable bool
	IndexDegradedOps    int64
	TimedOutQueries     int
	EmbeddingTiers      map[domain.EmbeddingTier]int
	ParserTiers         map[analyzer.ParseTier]int
}

// Degraded reports whether any optional dependency was unavailable or any query was abandoned.
func (s Status) Degraded() bool {
	return (s.LLMEnabled && !s.GenerationAvailable) || s.IndexDegradedOps > 0 || s.TimedOutQueries > 0
}

// Result is the output of one run.
type Result struct {
	Recommendations []domain.Recommendation
	Tables          int
	QueriesAnalyzed int
	HeuristicCount  int
	ModelCount      int
	Status          Status
}

package httpapi

import (
	"sync"
	"time"
)

// Phase names the stage a run is in.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseCollecting Phase = "collecting"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseReporting  Phase = "reporting"
	PhaseDone       Phase = "done"
)

// Progress is the run state exposed on /status. Safe for concurrent use.
type Progress struct {
	mu        sync.Mutex
	phase     Phase
	done      int
	total     int
	startedAt time.Time
	now       func() time.Time
}

// ProgressView is the JSON shape of Progress.
type ProgressView struct {
	Phase          Phase   `json:"phase"`
	QueriesDone    int     `json:"queries_done"`
	QueriesTotal   int     `json:"queries_total"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// NewProgress starts tracking at PhaseStarting.
func NewProgress() *Progress {
	return &Progress{phase: PhaseStarting, startedAt: time.Now(), now: time.Now}
}

// SetPhase moves the run to the next stage.
func (p *Progress) SetPhase(ph Phase) {
	p.mu.Lock()
	p.phase = ph
	p.mu.Unlock()
}

// Update records model-analysis progress. Counts never move backwards.
func (p *Progress) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = max(p.done, done)
	p.total = total
}

// View returns a consistent copy.
func (p *Progress) View() ProgressView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProgressView{
		Phase:          p.phase,
		QueriesDone:    p.done,
		QueriesTotal:   p.total,
		ElapsedSeconds: p.now().Sub(p.startedAt).Seconds(),
	}
}

package heuristic

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// RuleSet evaluates every rule against one table. It holds no mutable state and is safe
// for concurrent use.
type RuleSet struct {
	thresholds Thresholds
	rules      []Rule
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a RuleSet.
type Option func(*RuleSet)

// WithRules replaces the built-in rules.
func WithRules(rules ...Rule) Option {
	return func(s *RuleSet) { s.rules = rules }
}

// WithClock fixes the time used for age-based rules.
func WithClock(now func() time.Time) Option {
	return func(s *RuleSet) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *RuleSet) { s.logger = l }
}

// New creates a rule set with the given thresholds.
func New(t Thresholds, opts ...Option) *RuleSet {
	s := &RuleSet{
		thresholds: t,
		rules:      DefaultRules(),
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Evaluate applies every rule to the table and its queries. Each produced recommendation
// is stamped with the table id and the heuristic source; rules never suppress each other.
func (s *RuleSet) Evaluate(table *domain.TableMetadata, queries []domain.QueryRecord) []domain.Recommendation {
	in := Input{Table: table, Queries: queries, Now: s.now()}
	id := table.ID()

	var out []domain.Recommendation
	for _, r := range s.rules {
		rec, ok := r.Apply(s.thresholds, in)
		if !ok {
			continue
		}
		rec.TableID = id
		rec.Source = domain.SourceHeuristic
		if err := rec.Validate(); err != nil {
			s.logger.Warn("rule produced invalid recommendation",
				zap.String("rule", r.Name), zap.String("table", id), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	s.logger.Debug("heuristics evaluated",
		zap.String("table", id), zap.Int("queries", len(queries)), zap.Int("recommendations", len(out)))
	return out
}

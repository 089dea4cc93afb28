package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the kind of optimization a recommendation proposes.
type Category string

const (
	CategoryPartitioning      Category = "partitioning"
	CategoryClustering        Category = "clustering"
	CategoryQueryOptimization Category = "query_optimization"
	CategoryMaterializedView  Category = "materialized_view"
	CategoryDataType          Category = "data_type"
	CategoryLifecycle         Category = "lifecycle"
	CategoryGovernance        Category = "governance"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryPartitioning,
	CategoryClustering,
	CategoryQueryOptimization,
	CategoryMaterializedView,
	CategoryDataType,
	CategoryLifecycle,
	CategoryGovernance,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// categoryAliases maps normalized free-text labels to categories.
var categoryAliases = map[string]Category{
	"partitioning":      CategoryPartitioning,
	"partition":         CategoryPartitioning,
	"partitioned":       CategoryPartitioning,
	"sharding":          CategoryPartitioning,
	"clustering":        CategoryClustering,
	"cluster":           CategoryClustering,
	"queryoptimization": CategoryQueryOptimization,
	"query":             CategoryQueryOptimization,
	"queryrewrite":      CategoryQueryOptimization,
	"optimization":      CategoryQueryOptimization,
	"materializedview":  CategoryMaterializedView,
	"materialized":      CategoryMaterializedView,
	"mv":                CategoryMaterializedView,
	"view":              CategoryMaterializedView,
	"datatype":          CategoryDataType,
	"datatypes":         CategoryDataType,
	"schema":            CategoryDataType,
	"schemadesign":      CategoryDataType,
	"type":              CategoryDataType,
	"lifecycle":         CategoryLifecycle,
	"expiration":        CategoryLifecycle,
	"retention":         CategoryLifecycle,
	"storage":           CategoryLifecycle,
	"governance":        CategoryGovernance,
	"labels":            CategoryGovernance,
	"labeling":          CategoryGovernance,
	"documentation":     CategoryGovernance,
	"description":       CategoryGovernance,
}

// ParseCategory maps loosely formatted text ("Query Optimization", "MATERIALIZED_VIEW") to a category.
func ParseCategory(s string) (Category, bool) {
	key := normalizeLabel(s)
	if c, ok := categoryAliases[key]; ok {
		return c, true
	}
	for _, k := range categoryStems {
		if strings.Contains(key, k.stem) {
			return k.category, true
		}
	}
	return "", false
}

// categoryStems are tried in order when no alias matches exactly.
var categoryStems = []struct {
	stem     string
	category Category
}{
	{"materialized", CategoryMaterializedView},
	{"partition", CategoryPartitioning},
	{"cluster", CategoryClustering},
	{"datatype", CategoryDataType},
	{"schema", CategoryDataType},
	{"lifecycle", CategoryLifecycle},
	{"expir", CategoryLifecycle},
	{"governance", CategoryGovernance},
	{"label", CategoryGovernance},
	{"query", CategoryQueryOptimization},
}

// Priority ranks how urgently a recommendation should be acted on.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities: High is 0, Medium 1, Low 2, unknown last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() < 3
}

// ParsePriority maps free text to a priority.
func ParsePriority(s string) (Priority, bool) {
	switch normalizeLabel(s) {
	case "high", "critical", "urgent", "p0", "p1":
		return PriorityHigh, true
	case "medium", "moderate", "normal", "p2":
		return PriorityMedium, true
	case "low", "minor", "p3":
		return PriorityLow, true
	}
	return "", false
}

// Source records which component produced a recommendation.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceModel     Source = "model"
)

// Impact is an estimated savings range in percent.
// Indirect impacts (governance) carry no numeric range.
type Impact struct {
	Low      float64
	High     float64
	Indirect bool
}

// NewImpact builds a range, swapping the bounds when given out of order.
func NewImpact(low, high float64) Impact {
	if low > high {
		low, high = high, low
	}
	return Impact{Low: low, High: high}
}

// IndirectImpact is the impact of recommendations with no direct cost effect.
func IndirectImpact() Impact {
	return Impact{Indirect: true}
}

func (i Impact) String() string {
	switch {
	case i.Indirect:
		return "indirect"
	case i.Low == i.High:
		return fmt.Sprintf("%g%%+", i.Low)
	default:
		return fmt.Sprintf("%g-%g%%", i.Low, i.High)
	}
}

// Recommendation is one typed, prioritized optimization proposal.
type Recommendation struct {
	TableID        string
	Category       Category
	Description    string
	Impact         Impact
	Priority       Priority
	Source         Source
	Implementation string
	// Detail carries supplementary text, e.g. a model description merged into a heuristic finding.
	Detail  string
	QueryID string
}

var (
	errEmptyTable    = errors.New("table id is empty")
	errInvalidImpact = errors.New("impact low exceeds high")
)

// Validate checks the record invariants.
func (r *Recommendation) Validate() error {
	if r.TableID == "" {
		return errEmptyTable
	}
	if !r.Category.Valid() {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if !r.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", r.Priority)
	}
	if r.Impact.Low > r.Impact.High {
		return errInvalidImpact
	}
	return nil
}

func normalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

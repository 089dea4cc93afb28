package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/aggregate"
)

// Summary condenses a run's recommendations for the operator.
type Summary struct {
	Total      int
	ByCategory map[domain.Category]int
	ByPriority map[domain.Priority]int
	ByTable    map[string]int
	Top        []domain.Recommendation
}

// Summarize counts recommendations and keeps the first topN, which are the highest
// priority ones because the input is already ordered.
func Summarize(recs []domain.Recommendation, topN int) Summary {
	s := Summary{
		Total:      len(recs),
		ByCategory: aggregate.CountBy(recs, func(r domain.Recommendation) domain.Category { return r.Category }),
		ByPriority: aggregate.CountBy(recs, func(r domain.Recommendation) domain.Priority { return r.Priority }),
		ByTable:    aggregate.CountBy(recs, func(r domain.Recommendation) string { return r.TableID }),
	}
	if topN > len(recs) {
		topN = len(recs)
	}
	if topN > 0 {
		s.Top = slices.Clone(recs[:topN])
	}
	return s
}

// Tables returns table ids ordered by recommendation count, then name.
func (s Summary) Tables() []string {
	out := make([]string, 0, len(s.ByTable))
	for t := range s.ByTable {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b string) int {
		if d := s.ByTable[b] - s.ByTable[a]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return out
}

// Write renders the summary as aligned text.
func (s Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)

	fmt.Fprintf(tw, "Recommendations: %d\n\n", s.Total)

	fmt.Fprintln(tw, "CATEGORY\tCOUNT")
	for _, c := range domain.Categories {
		if n := s.ByCategory[c]; n > 0 {
			fmt.Fprintf(tw, "%s\t%d\n", c, n)
		}
	}

	fmt.Fprintln(tw, "\nPRIORITY\tCOUNT")
	for _, p := range []domain.Priority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		fmt.Fprintf(tw, "%s\t%d\n", p, s.ByPriority[p])
	}

	fmt.Fprintln(tw, "\nTABLE\tCOUNT")
	for _, t := range s.Tables() {
		fmt.Fprintf(tw, "%s\t%d\n", t, s.ByTable[t])
	}

	if len(s.Top) > 0 {
		fmt.Fprintln(tw, "\n#\tPRIORITY\tTABLE\tCATEGORY\tIMPACT\tDESCRIPTION")
		for i, r := range s.Top {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				i+1, r.Priority, r.TableID, r.Category, r.Impact, r.Description)
		}
	}
	return tw.Flush()
}

// Log emits the summary counts at Info level.
func (s Summary) Log(logger *zap.Logger) {
	byCategory := make(map[string]int, len(s.ByCategory))
	for c, n := range s.ByCategory {
		byCategory[string(c)] = n
	}
	byPriority := make(map[string]int, len(s.ByPriority))
	for p, n := range s.ByPriority {
		byPriority[string(p)] = n
	}

	logger.Info("Recommendation summary",
		zap.Int("total", s.Total),
		zap.Any("by_category", byCategory),
		zap.Any("by_priority", byPriority),
		zap.Int("tables", len(s.ByTable)),
	)
	for i, r := range s.Top {
		logger.Info("Top recommendation",
			zap.Int("rank", i+1),
			zap.String("table", r.TableID),
			zap.String("category", string(r.Category)),
			zap.String("priority", string(r.Priority)),
			zap.String("impact", r.Impact.String()),
			zap.String("description", r.Description),
		)
	}
}

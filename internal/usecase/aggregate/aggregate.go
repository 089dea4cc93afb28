// Package aggregate merges heuristic and model recommendations into the final ordered list.
package aggregate

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// modelNotePrefix marks model text folded into a heuristic recommendation.
const modelNotePrefix = "Model: "

type groupKey struct {
	table    string
	category domain.Category
}

// Aggregate merges the two candidate lists, orders them High, Medium, Low and truncates to
// limit. Heuristic recommendations are kept as is; a model recommendation whose
// (table, category) already has a heuristic one is folded into that one's Detail. Model
// recommendations repeating the same description for a group are dropped. Within a priority
// the input order is kept, heuristics first. A non-positive limit keeps everything.
func Aggregate(heuristic, model []domain.Recommendation, limit int) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(heuristic)+len(model))
	anchor := make(map[groupKey]int)
	for _, r := range heuristic {
		k := groupKey{r.TableID, r.Category}
		if _, ok := anchor[k]; !ok {
			anchor[k] = len(out)
		}
		out = append(out, r)
	}

	seen := make(map[groupKey]map[string]bool)
	for _, r := range model {
		k := groupKey{r.TableID, r.Category}
		desc := strings.TrimSpace(r.Description)
		norm := strings.ToLower(desc)
		if seen[k] == nil {
			seen[k] = make(map[string]bool)
		}
		if seen[k][norm] {
			continue
		}
		seen[k][norm] = true

		if i, ok := anchor[k]; ok {
			if desc != "" {
				out[i].Detail = appendNote(out[i].Detail, modelNotePrefix+desc)
			}
			continue
		}
		out = append(out, r)
	}

	slices.SortStableFunc(out, func(a, b domain.Recommendation) int {
		return a.Priority.Rank() - b.Priority.Rank()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func appendNote(detail, note string) string {
	if detail == "" {
		return note
	}
	return detail + "\n" + note
}

// CountBy tallies recommendations by an arbitrary key.
func CountBy[K comparable](recs []domain.Recommendation, key func(domain.Recommendation) K) map[K]int {
	out := make(map[K]int)
	for _, r := range recs {
		out[key(r)]++
	}
	return out
}

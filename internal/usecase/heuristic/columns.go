package heuristic

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

const maxClusterColumns = 4

var (
	temporalTypes    = map[string]bool{"DATE": true, "TIMESTAMP": true, "DATETIME": true}
	clusterableTypes = map[string]bool{
		"STRING": true, "INTEGER": true, "INT64": true, "BOOL": true, "BOOLEAN": true,
	}
	integerTypes = map[string]bool{"INTEGER": true, "INT64": true}

	partitionKeywords = []string{"date", "time", "created", "updated", "timestamp", "day"}
	clusterKeywords   = []string{"id", "key", "code", "category", "type", "status", "region", "country"}
	numericLikeNames  = []string{"_id", "count", "amount", "date", "time"}
	timestampLike     = []string{"timestamp", "_ts", "_at", "epoch", "_time", "unix"}
)

func keywordScore(name string, keywords []string) int {
	n := strings.ToLower(name)
	score := 0
	for _, k := range keywords {
		if strings.Contains(n, k) {
			score++
		}
	}
	return score
}

// PartitionCandidates returns temporal columns, best name match first.
func PartitionCandidates(cols []domain.Column) []string {
	type scored struct {
		name  string
		score int
	}
	var cands []scored
	for _, c := range cols {
		if temporalTypes[strings.ToUpper(c.Type)] && !c.IsNested() {
			cands = append(cands, scored{c.Name, keywordScore(c.Name, partitionKeywords)})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.name
	}
	return out
}

// ClusterCandidates returns up to four clusterable columns. Columns in preferred
// (typically those seen in query filters) come first, then the best name matches.
func ClusterCandidates(cols []domain.Column, preferred []string, exclude string) []string {
	var out []string
	seen := map[string]bool{strings.ToLower(exclude): true}
	add := func(name string) {
		if len(out) < maxClusterColumns && !seen[strings.ToLower(name)] {
			seen[strings.ToLower(name)] = true
			out = append(out, name)
		}
	}

	clusterable := make(map[string]bool)
	for _, c := range cols {
		if clusterableTypes[strings.ToUpper(c.Type)] && !c.IsNested() {
			clusterable[strings.ToLower(c.Name)] = true
		}
	}
	for _, p := range preferred {
		if clusterable[strings.ToLower(p)] {
			add(p)
		}
	}

	type scored struct {
		name  string
		score int
	}
	var cands []scored
	for _, c := range cols {
		if clusterable[strings.ToLower(c.Name)] {
			if s := keywordScore(c.Name, clusterKeywords); s > 0 {
				cands = append(cands, scored{c.Name, s})
			}
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	for _, c := range cands {
		add(c.name)
	}
	return out
}

package heuristic

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

var (
	lineComment   = regexp.MustCompile(`--[^\n]*`)
	blockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLiteral = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)
	numberLiteral = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	inList        = regexp.MustCompile(`\bin\s*\(\s*\?(?:\s*,\s*\?)*\s*\)`)
	whitespace    = regexp.MustCompile(`\s+`)
	groupBy       = regexp.MustCompile(`\bgroup\s+by\b`)
)

// NormalizeShape reduces a query to its literal-free shape: lowercased, comments and
// literals replaced, IN lists collapsed, whitespace squeezed. Identifiers are preserved,
// so queries differing only in filter values share a shape.
func NormalizeShape(sql string) string {
	s := blockComment.ReplaceAllString(sql, " ")
	s = lineComment.ReplaceAllString(s, " ")
	s = stringLiteral.ReplaceAllString(s, "?")
	s = strings.ToLower(s)
	s = numberLiteral.ReplaceAllString(s, "?")
	s = inList.ReplaceAllString(s, "in (?)")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// HasGroupBy reports whether a normalized shape aggregates.
func HasGroupBy(shape string) bool {
	return groupBy.MatchString(shape)
}

// RepeatedAggregation finds the most frequent GROUP BY shape in queries.
// Repeats count query records; ExecutionCount is ignored.
func RepeatedAggregation(queries []domain.QueryRecord) (shape string, repeats int) {
	counts := make(map[string]int)
	var order []string
	for _, q := range queries {
		s := NormalizeShape(q.Text)
		if !HasGroupBy(s) {
			continue
		}
		if _, ok := counts[s]; !ok {
			order = append(order, s)
		}
		counts[s]++
	}
	// first-seen order keeps ties deterministic
	for _, s := range order {
		if counts[s] > repeats {
			shape, repeats = s, counts[s]
		}
	}
	return shape, repeats
}

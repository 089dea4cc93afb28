package heuristic

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

const comparison = `(?:=|!=|<>|<=|>=|<|>|\bnot\s+in\b|\bin\b|\bnot\s+like\b|\blike\b|\bbetween\b|\bis\b)`

var (
	whereClause = regexp.MustCompile(
		`(?is)\bwhere\b(.*?)(?:\bgroup\s+by\b|\border\s+by\b|\bhaving\b|\blimit\b|\bqualify\b|\bwindow\b|\bunion\b|;|$)`)
	bareOperand    = regexp.MustCompile(`(?i)([A-Za-z_][\w.]*)\s*` + comparison)
	wrappedOperand = regexp.MustCompile(`(?i)\(\s*([A-Za-z_][\w.]*)\s*\)\s*` + comparison)
)

// FilterColumns returns the table columns that appear on the left side of a comparison
// in the query's WHERE clauses, in order of first appearance, without the partition column.
func FilterColumns(sql string, table *domain.TableMetadata) []string {
	s := blockComment.ReplaceAllString(sql, " ")
	s = lineComment.ReplaceAllString(s, " ")
	s = stringLiteral.ReplaceAllString(s, "?")

	byLower := make(map[string]string, len(table.Columns))
	for _, c := range table.Columns {
		byLower[strings.ToLower(c.Name)] = c.Name
	}
	partition := strings.ToLower(table.PartitionColumn())

	var out []string
	seen := make(map[string]bool)
	for _, clause := range whereClause.FindAllStringSubmatch(s, -1) {
		for _, re := range []*regexp.Regexp{bareOperand, wrappedOperand} {
			for _, m := range re.FindAllStringSubmatch(clause[1], -1) {
				ident := strings.ToLower(m[1])
				if i := strings.LastIndex(ident, "."); i >= 0 {
					ident = ident[i+1:]
				}
				name, ok := byLower[ident]
				if !ok || ident == partition || seen[ident] {
					continue
				}
				seen[ident] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// DistinctFilterColumns unions FilterColumns over a table's queries.
func DistinctFilterColumns(queries []domain.QueryRecord, table *domain.TableMetadata) []string {
	var out []string
	seen := make(map[string]bool)
	for _, q := range queries {
		for _, c := range FilterColumns(q.Text, table) {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// ScanRatio is bytes scanned per execution relative to table size, averaged over queries.
// It returns 0 when there is nothing to average.
func ScanRatio(queries []domain.QueryRecord, sizeBytes int64) float64 {
	if sizeBytes <= 0 || len(queries) == 0 {
		return 0
	}
	var sum float64
	for _, q := range queries {
		sum += float64(q.BytesScanned) / (float64(sizeBytes) * float64(q.Executions()))
	}
	return sum / float64(len(queries))
}

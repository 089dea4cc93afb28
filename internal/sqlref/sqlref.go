// Package sqlref pulls candidate table references out of raw SQL text.
// It is a pattern matcher over FROM/JOIN clauses, not a SQL parser.
package sqlref

import (
	"regexp"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	// EXTRACT(DAY FROM ts) and friends use FROM for a column.
	extractCall = regexp.MustCompile(`(?i)\b(?:EXTRACT|SUBSTRING|TRIM)\s*\([^()]*\)`)
	fromJoin    = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([^\s,;()]+)`)

	identPart   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*\*?$`)
	projectPart = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-:]*$`)
	quotedItem  = regexp.MustCompile(`['"]([^'"]*)['"]`)
)

// keywords that follow FROM/JOIN without naming a table.
var reserved = map[string]bool{
	"select": true, "unnest": true, "lateral": true, "where": true, "with": true,
	"values": true, "table": true, "dual": true, "each": true, "inner": true,
	"left": true, "right": true, "full": true, "cross": true, "outer": true,
}

// Extract returns the distinct valid table references after FROM and JOIN, in order of appearance.
// Quoting (backticks, brackets) is removed; identifier case is preserved.
func Extract(sql string) []string {
	sql = blockComment.ReplaceAllString(sql, " ")
	sql = lineComment.ReplaceAllString(sql, " ")
	sql = extractCall.ReplaceAllString(sql, " ")

	var out []string
	seen := make(map[string]bool)
	for _, m := range fromJoin.FindAllStringSubmatch(sql, -1) {
		ref := Clean(m[1])
		if !IsTableRef(ref) || seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// Clean strips quoting characters and trailing punctuation from a raw reference.
func Clean(raw string) string {
	s := strings.NewReplacer("`", "", "[", "", "]", "", `"`, "").Replace(raw)
	return strings.TrimRight(strings.TrimSpace(s), ".;,")
}

// IsTableRef reports whether s looks like [project.]dataset.table or a bare table name.
func IsTableRef(s string) bool {
	if s == "" {
		return false
	}
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return false
	}
	if len(parts) == 1 && reserved[strings.ToLower(s)] {
		return false
	}

	// last two parts are dataset and table, anything before is the project
	for i, p := range parts {
		if i < len(parts)-2 {
			if !projectPart.MatchString(p) {
				return false
			}
			continue
		}
		if !identPart.MatchString(p) {
			return false
		}
	}
	return true
}

// ParseList reads a table list serialized as "['a', 'b']", `["a","b"]` or "a, b".
// Invalid entries are dropped.
func ParseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	var items []string
	if strings.ContainsAny(s, `'"`) {
		for _, m := range quotedItem.FindAllStringSubmatch(s, -1) {
			items = append(items, m[1])
		}
	} else {
		items = strings.Split(s, ",")
	}

	var out []string
	for _, it := range items {
		if ref := Clean(it); IsTableRef(ref) {
			out = append(out, ref)
		}
	}
	return out
}

package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// ParseTier names the parsing strategy that produced a result.
type ParseTier string

// Parser tiers, in the order they are attempted.
const (
	TierStructured ParseTier = "structured"
	TierSanitized  ParseTier = "sanitized"
	TierFields     ParseTier = "fields"
	TierFallback   ParseTier = "fallback"
)

// candidate is one recommendation as the model wrote it, before typing.
type candidate struct {
	Table          string
	Type           string
	Description    string
	Justification  string
	Implementation string
	Savings        string
	Priority       string
}

func (c candidate) usable() bool {
	return c.Description != "" || c.Type != ""
}

// rawRecord accepts the requested keys and the aliases models tend to use instead.
type rawRecord struct {
	Table          json.RawMessage `json:"table"`
	TableName      json.RawMessage `json:"table_name"`
	Type           json.RawMessage `json:"recommendation_type"`
	Category       json.RawMessage `json:"category"`
	Description    json.RawMessage `json:"recommendation"`
	AltDescription json.RawMessage `json:"description"`
	Justification  json.RawMessage `json:"justification"`
	Implementation json.RawMessage `json:"implementation"`
	Savings        json.RawMessage `json:"estimated_savings_pct"`
	Impact         json.RawMessage `json:"impact"`
	Priority       json.RawMessage `json:"priority"`
}

func (r rawRecord) candidate() candidate {
	return candidate{
		Table:          firstNonEmpty(flexible(r.Table), flexible(r.TableName)),
		Type:           firstNonEmpty(flexible(r.Type), flexible(r.Category)),
		Description:    firstNonEmpty(flexible(r.Description), flexible(r.AltDescription)),
		Justification:  flexible(r.Justification),
		Implementation: flexible(r.Implementation),
		Savings:        firstNonEmpty(flexible(r.Savings), flexible(r.Impact)),
		Priority:       flexible(r.Priority),
	}
}

// Parse runs the tiers in order and returns the candidates of the first tier that succeeds.
// TierFallback means nothing could be recovered and the caller must synthesize a result.
// A well-formed but empty recommendation list is a structured success with no candidates.
func Parse(resp string) ([]candidate, ParseTier) {
	if c, ok := decodeStructured(resp); ok {
		return c, TierStructured
	}
	if c, ok := decodeStructured(sanitize(resp)); ok {
		return c, TierSanitized
	}
	if c := parseFields(resp); len(c) > 0 {
		return c, TierFields
	}
	return nil, TierFallback
}

// decodeStructured accepts a list, a single record, or {"recommendations": [...]}.
func decodeStructured(s string) ([]candidate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var records []rawRecord
	switch s[0] {
	case '[':
		if err := json.Unmarshal([]byte(s), &records); err != nil {
			return nil, false
		}
		if len(records) == 0 {
			return nil, true
		}
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal([]byte(s), &top); err != nil {
			return nil, false
		}
		if list, ok := top["recommendations"]; ok {
			if err := json.Unmarshal(list, &records); err != nil {
				return nil, false
			}
			if len(records) == 0 {
				return nil, true
			}
			break
		}
		var one rawRecord
		if err := json.Unmarshal([]byte(s), &one); err != nil {
			return nil, false
		}
		records = []rawRecord{one}
	default:
		return nil, false
	}

	var out []candidate
	for _, r := range records {
		if c := r.candidate(); c.usable() {
			out = append(out, c)
		}
	}
	return out, len(out) > 0
}

var (
	thinkTag     = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence    = regexp.MustCompile("```[A-Za-z]*")
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// sanitize removes reasoning tags, markdown fences and control characters, then carves the
// first balanced JSON value out of the surrounding prose.
func sanitize(s string) string {
	s = thinkTag.ReplaceAllString(s, "")
	s = codeFence.ReplaceAllString(s, "")
	s = controlChars.ReplaceAllString(s, " ")

	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	if obj >= 0 && (arr < 0 || obj < arr) {
		if carved, ok := extractBalanced(s, '{', '}'); ok {
			return carved
		}
	}
	if arr >= 0 {
		if carved, ok := extractBalanced(s, '[', ']'); ok {
			return carved
		}
	}
	return s
}

func extractBalanced(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func fieldPattern(names ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)["']?\b(?:` + strings.Join(names, "|") +
		`)["']?\s*[:=]\s*(?:"((?:[^"\\]|\\.)*)"|([^,\n}\]]+))`)
}

var (
	fieldTable          = fieldPattern("table", "table_name")
	fieldType           = fieldPattern("recommendation_type", "category")
	fieldDescription    = fieldPattern("recommendation", "description")
	fieldJustification  = fieldPattern("justification")
	fieldImplementation = fieldPattern("implementation")
	fieldSavings        = fieldPattern("estimated_savings_pct", "impact")
	fieldPriority       = fieldPattern("priority")
)

// minFields is how many known fields a chunk needs before it counts as a record.
const minFields = 2

// parseFields pulls known fields out of text that is not valid JSON, one record per
// object-like chunk.
func parseFields(s string) []candidate {
	var out []candidate
	for _, chunk := range strings.Split(s, "{") {
		c := candidate{}
		found := 0
		for _, f := range []struct {
			re  *regexp.Regexp
			dst *string
		}{
			{fieldTable, &c.Table},
			{fieldType, &c.Type},
			{fieldDescription, &c.Description},
			{fieldJustification, &c.Justification},
			{fieldImplementation, &c.Implementation},
			{fieldSavings, &c.Savings},
			{fieldPriority, &c.Priority},
		} {
			if v, ok := extractField(f.re, chunk); ok {
				*f.dst = v
				found++
			}
		}
		if found >= minFields && c.usable() {
			out = append(out, c)
		}
	}
	return out
}

func extractField(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return "", false
	}
	if m[2] >= 0 {
		raw := s[m[2]:m[3]]
		if v, err := strconv.Unquote(`"` + raw + `"`); err == nil {
			return v, true
		}
		return raw, true
	}
	v := strings.Trim(strings.TrimSpace(s[m[4]:m[5]]), `'"`)
	return v, v != ""
}

// flexible renders a JSON scalar as text; models send numbers where strings were asked for.
func flexible(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strings.TrimSpace(string(raw))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var savingsNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// defaultModelImpact applies when the model gives no usable savings estimate.
var defaultModelImpact = domain.NewImpact(10, 30)

func parseSavings(s string) domain.Impact {
	var nums []float64
	for _, m := range savingsNumber.FindAllString(s, 2) {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			nums = append(nums, min(max(v, 0), 100))
		}
	}
	switch len(nums) {
	case 0:
		return defaultModelImpact
	case 1:
		return domain.NewImpact(nums[0], nums[0])
	default:
		return domain.NewImpact(nums[0], nums[1])
	}
}

// toRecommendation types a candidate. Unknown categories fall back to the description text,
// then to QueryOptimization; unknown priorities become Medium.
func toRecommendation(c candidate, tableID string) domain.Recommendation {
	category, ok := domain.ParseCategory(c.Type)
	if !ok {
		if category, ok = domain.ParseCategory(c.Description); !ok {
			category = domain.CategoryQueryOptimization
		}
	}
	priority, ok := domain.ParsePriority(c.Priority)
	if !ok {
		priority = domain.PriorityMedium
	}
	desc := c.Description
	if desc == "" {
		desc = c.Type
	}
	return domain.Recommendation{
		TableID:        tableID,
		Category:       category,
		Description:    desc,
		Impact:         parseSavings(c.Savings),
		Priority:       priority,
		Source:         domain.SourceModel,
		Implementation: c.Implementation,
		Detail:         c.Justification,
	}
}

const snippetLen = 200

// inconclusive is the recommendation synthesized when no tier recovers anything.
func inconclusive(tableID, resp string) domain.Recommendation {
	detail := strings.TrimSpace(controlChars.ReplaceAllString(resp, " "))
	if len(detail) > snippetLen {
		detail = clip(detail, snippetLen) + "..."
	}
	return domain.Recommendation{
		TableID:        tableID,
		Category:       domain.CategoryQueryOptimization,
		Description:    "Model analysis was inconclusive; review this query manually",
		Impact:         domain.NewImpact(0, 10),
		Priority:       domain.PriorityLow,
		Source:         domain.SourceModel,
		Implementation: "Check the query for SELECT *, missing filters and repeated scans of the same data.",
		Detail:         detail,
	}
}

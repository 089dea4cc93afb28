package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

const systemPrompt = `You are a BigQuery cost optimization expert.
Analyze the SQL query and the table schemas you are given and propose concrete optimizations.
Respond with JSON only, in this shape:
{"recommendations": [{
  "table": "project.dataset.table",
  "recommendation_type": "partitioning | clustering | query_optimization | materialized_view | data_type | lifecycle | governance",
  "recommendation": "what to change",
  "justification": "why it reduces cost",
  "implementation": "SQL or steps",
  "estimated_savings_pct": "low-high",
  "priority": "high | medium | low"
}]}`

// minQueryChars keeps some of the query even under tiny budgets.
const minQueryChars = 200

// buildPrompt renders the user prompt within budget characters. The query keeps up to a
// third of the budget, target schemas come next, and similar schemas fill what is left.
func buildPrompt(q *domain.QueryRecord, targets []*domain.TableMetadata, similar []domain.SimilarSchema, budget int) string {
	var b strings.Builder

	queryBudget := max(budget/3, minQueryChars)
	b.WriteString("SQL Query:\n")
	b.WriteString(clip(strings.TrimSpace(q.Text), queryBudget))
	fmt.Fprintf(&b, "\n\nQuery metrics: %.3f GB scanned, %d executions\n",
		float64(q.BytesScanned)/(1<<30), q.Executions())

	if len(targets) == 0 {
		b.WriteString("\nTarget table: unknown (could not be resolved from the query)\n")
	}
	for _, t := range targets {
		section := "\nTarget table schema:\n" + domain.SchemaText(t)
		if b.Len()+len(section) > budget {
			section = clip(section, budget-b.Len())
		}
		b.WriteString(section)
	}

	if len(similar) > 0 && b.Len() < budget {
		header := "\nStructurally similar tables:\n"
		if b.Len()+len(header) < budget {
			b.WriteString(header)
			for _, s := range similar {
				entry := fmt.Sprintf("--- %s (similarity %.2f)\n%s", s.Payload.TableID, s.Score, s.Payload.SchemaText)
				if b.Len()+len(entry) > budget {
					break
				}
				b.WriteString(entry)
			}
		}
	}

	return clip(b.String(), budget)
}

func clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

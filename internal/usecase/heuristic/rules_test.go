package heuristic

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRuleSet(opts ...Option) *RuleSet {
	return New(DefaultThresholds(), append([]Option{WithClock(func() time.Time { return testNow })}, opts...)...)
}

func gb(n float64) int64 { return int64(n * (1 << 30)) }

func byCategory(recs []domain.Recommendation, c domain.Category) []domain.Recommendation {
	var out []domain.Recommendation
	for _, r := range recs {
		if r.Category == c {
			out = append(out, r)
		}
	}
	return out
}

// documented returns a table with governance fields set so only the rule under test fires.
func documented(name string, size float64, cols ...domain.Column) domain.TableMetadata {
	return domain.TableMetadata{
		Ref:          domain.TableRef{Project: "proj", Dataset: "sales", Table: name},
		SizeBytes:    gb(size),
		Description:  "test table",
		Labels:       map[string]string{"owner": "data"},
		LastModified: testNow.Add(-24 * time.Hour),
		Columns:      cols,
	}
}

func TestSizeWithoutPartitioning_ImpactRange(t *testing.T) {
	rs := newTestRuleSet()
	for _, size := range []float64{1, 15.6, 99, 100, 2048} {
		tbl := documented("t", size, domain.Column{Name: "created_at", Type: "TIMESTAMP"})
		recs := byCategory(rs.Evaluate(&tbl, nil), domain.CategoryPartitioning)
		if len(recs) != 1 {
			t.Fatalf("size %v: expected 1 partitioning rec, got %d", size, len(recs))
		}
		if recs[0].Impact.Low != 20 || recs[0].Impact.High != 50 {
			t.Errorf("size %v: expected 20-50, got %v", size, recs[0].Impact)
		}
		want := domain.PriorityMedium
		if size >= 100 {
			want = domain.PriorityHigh
		}
		if recs[0].Priority != want {
			t.Errorf("size %v: expected %s, got %s", size, want, recs[0].Priority)
		}
	}
}

func TestSizeWithoutPartitioning_SkipsSmallAndPartitioned(t *testing.T) {
	rs := newTestRuleSet()

	small := documented("small", 0.5)
	if recs := byCategory(rs.Evaluate(&small, nil), domain.CategoryPartitioning); len(recs) != 0 {
		t.Errorf("small table: unexpected %v", recs)
	}

	part := documented("part", 50)
	part.Partitioning = &domain.Partitioning{Type: "DAY"}
	if recs := byCategory(rs.Evaluate(&part, nil), domain.CategoryPartitioning); len(recs) != 0 {
		t.Errorf("partitioned table: unexpected %v", recs)
	}
}

func TestSizeWithoutPartitioning_NamesCandidates(t *testing.T) {
	rs := newTestRuleSet()

	tbl := documented("orders", 10,
		domain.Column{Name: "order_id", Type: "STRING"},
		domain.Column{Name: "order_date", Type: "DATE"})
	rec := byCategory(rs.Evaluate(&tbl, nil), domain.CategoryPartitioning)[0]
	if !strings.Contains(rec.Description, "order_date") {
		t.Errorf("expected partition column in description: %q", rec.Description)
	}
	if !strings.Contains(rec.Implementation, "PARTITION BY order_date") {
		t.Errorf("DATE column must be used directly: %q", rec.Implementation)
	}

	ingest := documented("raw", 10, domain.Column{Name: "payload", Type: "STRING"})
	rec = byCategory(rs.Evaluate(&ingest, nil), domain.CategoryPartitioning)[0]
	if !strings.Contains(rec.Implementation, "_PARTITIONDATE") {
		t.Errorf("expected ingestion-time partitioning: %q", rec.Implementation)
	}

	huge := documented("huge", 500,
		domain.Column{Name: "event_ts", Type: "TIMESTAMP"},
		domain.Column{Name: "customer_id", Type: "STRING"})
	rec = byCategory(rs.Evaluate(&huge, nil), domain.CategoryPartitioning)[0]
	if !strings.Contains(rec.Description, "cluster on customer_id") {
		t.Errorf("very large table should name cluster columns: %q", rec.Description)
	}
	if !strings.Contains(rec.Implementation, "PARTITION BY DATE(event_ts) CLUSTER BY customer_id") {
		t.Errorf("unexpected implementation: %q", rec.Implementation)
	}
}

func TestScenario_LargeUnpartitionedTransactions(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("transactions", 15.6,
		domain.Column{Name: "transaction_id", Type: "STRING"},
		domain.Column{Name: "customer_id", Type: "STRING"},
		domain.Column{Name: "amount", Type: "NUMERIC"},
		domain.Column{Name: "transaction_date", Type: "TIMESTAMP"})
	queries := []domain.QueryRecord{
		{Text: "SELECT * FROM sales.transactions WHERE customer_id = 'c1'", BytesScanned: tbl.SizeBytes, ExecutionCount: 1},
		{Text: "SELECT * FROM sales.transactions", BytesScanned: tbl.SizeBytes * 2, ExecutionCount: 2},
	}

	recs := rs.Evaluate(&tbl, queries)

	part := byCategory(recs, domain.CategoryPartitioning)
	if len(part) != 1 || part[0].Impact.Low != 20 || part[0].Impact.High != 50 {
		t.Fatalf("expected one 20-50%% partitioning rec, got %v", part)
	}
	qo := byCategory(recs, domain.CategoryQueryOptimization)
	if len(qo) != 1 {
		t.Fatalf("expected query optimization rec, got %v", recs)
	}
	if qo[0].Priority != domain.PriorityHigh {
		t.Errorf("full scans should be high priority, got %s", qo[0].Priority)
	}
	if len(byCategory(recs, domain.CategoryClustering)) != 0 {
		t.Error("unpartitioned table must not get a clustering rec")
	}
}

func TestScenario_PartitionedUnclusteredCustomerEvents(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("customer_events", 40,
		domain.Column{Name: "event_date", Type: "DATE"},
		domain.Column{Name: "user_id", Type: "STRING"},
		domain.Column{Name: "event_type", Type: "STRING"},
		domain.Column{Name: "payload", Type: "JSON"})
	tbl.Partitioning = &domain.Partitioning{Column: "event_date", Type: "DAY"}
	queries := []domain.QueryRecord{
		{Text: "SELECT * FROM sales.customer_events WHERE event_date = '2024-01-01' AND user_id = 'u1'", BytesScanned: gb(1)},
		{Text: "SELECT count(*) FROM sales.customer_events WHERE event_type = 'click'", BytesScanned: gb(1)},
	}

	recs := rs.Evaluate(&tbl, queries)

	cl := byCategory(recs, domain.CategoryClustering)
	if len(cl) != 1 {
		t.Fatalf("expected clustering rec, got %v", recs)
	}
	if cl[0].Impact.Low != 20 || cl[0].Impact.High != 40 || cl[0].Priority != domain.PriorityMedium {
		t.Errorf("unexpected clustering rec %+v", cl[0])
	}
	if !strings.Contains(cl[0].Implementation, "'user_id'") || !strings.Contains(cl[0].Implementation, "'event_type'") {
		t.Errorf("expected filter columns in implementation: %q", cl[0].Implementation)
	}
	if len(byCategory(recs, domain.CategoryQueryOptimization)) != 0 {
		t.Error("low scan ratio must not emit query optimization")
	}
}

func TestPartitionedWithoutClustering_NeedsTwoFilterColumns(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("events", 40,
		domain.Column{Name: "event_date", Type: "DATE"},
		domain.Column{Name: "user_id", Type: "STRING"})
	tbl.Partitioning = &domain.Partitioning{Column: "event_date", Type: "DAY"}
	queries := []domain.QueryRecord{
		{Text: "SELECT * FROM events WHERE event_date = '2024-01-01' AND user_id = 'u1'"},
	}
	if recs := byCategory(rs.Evaluate(&tbl, queries), domain.CategoryClustering); len(recs) != 0 {
		t.Errorf("one filter column is not enough, got %v", recs)
	}

	tbl.Clustering = []string{"user_id"}
	queries = append(queries, domain.QueryRecord{Text: "SELECT * FROM events WHERE user_id = 'a' AND event_date > '2024-01-01'"})
	if recs := byCategory(rs.Evaluate(&tbl, queries), domain.CategoryClustering); len(recs) != 0 {
		t.Errorf("clustered table must not get a clustering rec, got %v", recs)
	}
}

func TestScenario_SmallUndocumentedDailySummary(t *testing.T) {
	rs := newTestRuleSet()
	tbl := domain.TableMetadata{
		Ref:          domain.TableRef{Project: "proj", Dataset: "reporting", Table: "daily_summary"},
		SizeBytes:    gb(0.5),
		LastModified: testNow.Add(-2 * time.Hour),
		Columns: []domain.Column{
			{Name: "summary_date", Type: "DATE"},
			{Name: "total", Type: "NUMERIC"},
		},
	}

	recs := rs.Evaluate(&tbl, nil)

	if len(recs) != 2 {
		t.Fatalf("expected exactly 2 recs, got %v", recs)
	}
	for _, r := range recs {
		if r.Category != domain.CategoryGovernance || r.Priority != domain.PriorityLow {
			t.Errorf("expected low governance rec, got %+v", r)
		}
		if !r.Impact.Indirect {
			t.Errorf("governance impact must be indirect, got %v", r.Impact)
		}
	}
}

func TestScanRatio_PartitionedRequiresFilter(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("logs", 10, domain.Column{Name: "log_date", Type: "DATE"})
	tbl.Partitioning = &domain.Partitioning{Column: "log_date", Type: "DAY"}
	queries := []domain.QueryRecord{{Text: "SELECT * FROM logs", BytesScanned: gb(6)}}

	recs := byCategory(rs.Evaluate(&tbl, queries), domain.CategoryQueryOptimization)
	if len(recs) != 1 {
		t.Fatalf("expected 1 rec, got %v", recs)
	}
	r := recs[0]
	if r.Impact.Low != 30 || r.Impact.High != 90 || r.Priority != domain.PriorityHigh {
		t.Errorf("unexpected rec %+v", r)
	}
	if !strings.Contains(r.Implementation, "require_partition_filter") {
		t.Errorf("unexpected implementation %q", r.Implementation)
	}
}

func TestDateSharded(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("events_20240101", 0.1)
	recs := byCategory(rs.Evaluate(&tbl, nil), domain.CategoryPartitioning)
	if len(recs) != 1 {
		t.Fatalf("expected 1 rec, got %v", recs)
	}
	if recs[0].Impact.Low != 50 || recs[0].Impact.High != 80 || recs[0].Priority != domain.PriorityHigh {
		t.Errorf("unexpected rec %+v", recs[0])
	}
	if !strings.Contains(recs[0].Implementation, "events_*") {
		t.Errorf("expected wildcard source: %q", recs[0].Implementation)
	}
}

func TestRepeatedAggregationRule(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("orders", 0.2, domain.Column{Name: "region", Type: "STRING"})
	var queries []domain.QueryRecord
	for i := 0; i < 3; i++ {
		queries = append(queries, domain.QueryRecord{
			Text: fmt.Sprintf("SELECT region, SUM(total) FROM orders WHERE day = '2024-01-0%d' GROUP BY region", i+1),
		})
	}
	recs := byCategory(rs.Evaluate(&tbl, queries), domain.CategoryMaterializedView)
	if len(recs) != 1 {
		t.Fatalf("expected 1 rec, got %v", recs)
	}
	if recs[0].Impact.Low != 30 || recs[0].Impact.High != 70 || recs[0].Priority != domain.PriorityMedium {
		t.Errorf("unexpected rec %+v", recs[0])
	}

	if recs := byCategory(rs.Evaluate(&tbl, queries[:2]), domain.CategoryMaterializedView); len(recs) != 0 {
		t.Errorf("two repeats are not enough, got %v", recs)
	}
}

func TestRepeatedAggregationRule_ExecutionCountDoesNotRepeat(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("orders", 0.2, domain.Column{Name: "region", Type: "STRING"})
	queries := []domain.QueryRecord{{
		Text:           "SELECT region, SUM(total) FROM orders GROUP BY region",
		ExecutionCount: 50,
	}}
	if recs := byCategory(rs.Evaluate(&tbl, queries), domain.CategoryMaterializedView); len(recs) != 0 {
		t.Errorf("one heavily executed record is not a repeated shape, got %v", recs)
	}
}

func TestLifecycle(t *testing.T) {
	rs := newTestRuleSet()

	stale := documented("archive", 0.1)
	stale.LastModified = testNow.Add(-200 * 24 * time.Hour)
	recs := byCategory(rs.Evaluate(&stale, nil), domain.CategoryLifecycle)
	if len(recs) != 1 || recs[0].Impact.Low != 10 || recs[0].Impact.High != 40 || recs[0].Priority != domain.PriorityMedium {
		t.Fatalf("unexpected lifecycle recs %v", recs)
	}

	stale.Expiration = testNow.Add(24 * time.Hour)
	if recs := byCategory(rs.Evaluate(&stale, nil), domain.CategoryLifecycle); len(recs) != 0 {
		t.Errorf("table with expiration must not get a lifecycle rec, got %v", recs)
	}

	oldPart := documented("history", 5, domain.Column{Name: "day", Type: "DATE"})
	oldPart.Partitioning = &domain.Partitioning{Column: "day", Type: "DAY"}
	oldPart.LastModified = testNow.Add(-100 * 24 * time.Hour)
	recs = byCategory(rs.Evaluate(&oldPart, nil), domain.CategoryLifecycle)
	if len(recs) != 1 || !strings.Contains(recs[0].Implementation, "partition_expiration_days") {
		t.Errorf("expected partition expiration rec, got %v", recs)
	}
}

func TestSchemaShapeRules(t *testing.T) {
	rs := newTestRuleSet()

	var cols []domain.Column
	for i := 0; i < 51; i++ {
		cols = append(cols, domain.Column{Name: fmt.Sprintf("c%d", i), Type: "FLOAT64"})
	}
	cols = append(cols,
		domain.Column{Name: "items", Type: "RECORD", Mode: "REPEATED"},
		domain.Column{Name: "created_ts", Type: "INT64"},
		domain.Column{Name: "user_id", Type: "STRING"},
		domain.Column{Name: "order_count", Type: "STRING"},
		domain.Column{Name: "order_date", Type: "STRING"},
	)
	tbl := documented("wide", 0.1, cols...)

	recs := byCategory(rs.Evaluate(&tbl, nil), domain.CategoryDataType)
	if len(recs) != 4 {
		t.Fatalf("expected wide, nested, string-heavy and integer timestamp recs, got %d: %v", len(recs), recs)
	}
	wantImpact := [][2]float64{{10, 20}, {10, 25}, {10, 30}, {5, 15}}
	for i, r := range recs {
		if r.Impact.Low != wantImpact[i][0] || r.Impact.High != wantImpact[i][1] || r.Priority != domain.PriorityLow {
			t.Errorf("rec %d: unexpected %+v", i, r)
		}
	}
}

func TestStreamingInserts(t *testing.T) {
	rs := newTestRuleSet()
	tbl := documented("stream", 0.1)
	tbl.Streaming = true
	recs := byCategory(rs.Evaluate(&tbl, nil), domain.CategoryQueryOptimization)
	if len(recs) != 1 || recs[0].Impact.String() != "50%+" || recs[0].Priority != domain.PriorityMedium {
		t.Errorf("unexpected streaming recs %v", recs)
	}
}

func TestEvaluate_StampsSourceAndTable(t *testing.T) {
	rs := newTestRuleSet()
	tbl := domain.TableMetadata{
		Ref:       domain.TableRef{Project: "p", Dataset: "d", Table: "t"},
		SizeBytes: gb(20),
	}
	recs := rs.Evaluate(&tbl, nil)
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	for _, r := range recs {
		if r.TableID != "p.d.t" || r.Source != domain.SourceHeuristic {
			t.Errorf("unstamped rec %+v", r)
		}
	}
}

func TestEvaluate_CustomRulesAndInvalidOutput(t *testing.T) {
	bad := Rule{Name: "bad", Apply: func(Thresholds, Input) (domain.Recommendation, bool) {
		return domain.Recommendation{Category: "nonsense", Priority: domain.PriorityLow}, true
	}}
	good := Rule{Name: "good", Apply: func(_ Thresholds, in Input) (domain.Recommendation, bool) {
		return domain.Recommendation{Category: domain.CategoryGovernance, Priority: domain.PriorityLow, Impact: domain.IndirectImpact()}, true
	}}
	rs := newTestRuleSet(WithRules(bad, good))
	tbl := documented("t", 1)
	recs := rs.Evaluate(&tbl, nil)
	if len(recs) != 1 || recs[0].Category != domain.CategoryGovernance {
		t.Errorf("expected only the valid rec, got %v", recs)
	}
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 150) // 300 bytes
	got := truncate(s, 199)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got)
	}
	if want := strings.Repeat("é", 99) + "..."; got != want {
		t.Errorf("truncate = %q, want %q", got, want)
	}
	if truncate("short", 200) != "short" {
		t.Error("short input must pass through")
	}
}

package heuristic

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// Input is everything a rule may look at.
type Input struct {
	Table   *domain.TableMetadata
	Queries []domain.QueryRecord
	Now     time.Time
}

// Rule is a pure function of its input producing at most one recommendation.
type Rule struct {
	Name  string
	Apply func(t Thresholds, in Input) (domain.Recommendation, bool)
}

var shardSuffix = regexp.MustCompile(`_\d{8}$`)

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "size_without_partitioning", Apply: sizeWithoutPartitioning},
		{Name: "date_sharded", Apply: dateSharded},
		{Name: "partitioned_without_clustering", Apply: partitionedWithoutClustering},
		{Name: "scan_ratio", Apply: scanRatio},
		{Name: "streaming_inserts", Apply: streamingInserts},
		{Name: "repeated_aggregation", Apply: repeatedAggregation},
		{Name: "missing_description", Apply: missingDescription},
		{Name: "missing_labels", Apply: missingLabels},
		{Name: "lifecycle", Apply: lifecycle},
		{Name: "wide_table", Apply: wideTable},
		{Name: "nested_schema", Apply: nestedSchema},
		{Name: "string_heavy", Apply: stringHeavy},
		{Name: "integer_timestamps", Apply: integerTimestamps},
	}
}

func sizeWithoutPartitioning(t Thresholds, in Input) (domain.Recommendation, bool) {
	tbl := in.Table
	size := tbl.SizeGB()
	if size < t.LargeTableGB || tbl.IsPartitioned() {
		return domain.Recommendation{}, false
	}

	priority := domain.PriorityMedium
	if size >= t.VeryLargeTableGB {
		priority = domain.PriorityHigh
	}

	id := tbl.ID()
	rec := domain.Recommendation{
		Category: domain.CategoryPartitioning,
		Impact:   domain.NewImpact(20, 50),
		Priority: priority,
	}

	cands := PartitionCandidates(tbl.Columns)
	if len(cands) == 0 {
		rec.Description = fmt.Sprintf(
			"Partition table by ingestion time: %.2f GB and no DATE/TIMESTAMP column to partition on", size)
		rec.Implementation = fmt.Sprintf(
			"CREATE OR REPLACE TABLE `%s_partitioned` PARTITION BY _PARTITIONDATE AS SELECT * FROM `%s`;", id, id)
		return rec, true
	}

	col := cands[0]
	partitionBy := col
	if c, ok := tbl.Column(col); ok && !strings.EqualFold(c.Type, "DATE") {
		partitionBy = "DATE(" + col + ")"
	}
	rec.Description = fmt.Sprintf("Partition table on %s: %.2f GB scanned in full by every query", col, size)

	var cluster []string
	if size >= t.VeryLargeTableGB {
		cluster = ClusterCandidates(tbl.Columns, DistinctFilterColumns(in.Queries, tbl), col)
	}
	clusterBy := ""
	if len(cluster) > 0 {
		rec.Description = fmt.Sprintf("Partition on %s and cluster on %s: %.2f GB table",
			col, strings.Join(cluster, ", "), size)
		clusterBy = " CLUSTER BY " + strings.Join(cluster, ", ")
	}
	rec.Implementation = fmt.Sprintf(
		"CREATE OR REPLACE TABLE `%s_partitioned` PARTITION BY %s%s AS SELECT * FROM `%s`;\n"+
			"ALTER TABLE `%s` RENAME TO `%s_old`;\nALTER TABLE `%s_partitioned` RENAME TO `%s`;",
		id, partitionBy, clusterBy, id, id, tbl.Ref.Table, id, tbl.Ref.Table)
	return rec, true
}

func dateSharded(_ Thresholds, in Input) (domain.Recommendation, bool) {
	name := in.Table.Ref.Table
	if !shardSuffix.MatchString(name) {
		return domain.Recommendation{}, false
	}
	base := name[:len(name)-9]
	return domain.Recommendation{
		Category:    domain.CategoryPartitioning,
		Description: fmt.Sprintf("Consolidate date-sharded tables %s_* into one partitioned table", base),
		Impact:      domain.NewImpact(50, 80),
		Priority:    domain.PriorityHigh,
		Implementation: fmt.Sprintf(
			"CREATE TABLE `%s.%s.%s` PARTITION BY _PARTITIONDATE AS SELECT * FROM `%s.%s.%s_*`;",
			in.Table.Ref.Project, in.Table.Ref.Dataset, base,
			in.Table.Ref.Project, in.Table.Ref.Dataset, base),
	}, true
}

func partitionedWithoutClustering(t Thresholds, in Input) (domain.Recommendation, bool) {
	tbl := in.Table
	if !tbl.IsPartitioned() || tbl.IsClustered() {
		return domain.Recommendation{}, false
	}
	filters := DistinctFilterColumns(in.Queries, tbl)
	if len(filters) < t.MinFilterColumns {
		return domain.Recommendation{}, false
	}
	cluster := ClusterCandidates(tbl.Columns, filters, tbl.PartitionColumn())
	if len(cluster) == 0 {
		cluster = filters
		if len(cluster) > maxClusterColumns {
			cluster = cluster[:maxClusterColumns]
		}
	}
	cols := strings.Join(cluster, ", ")
	return domain.Recommendation{
		Category:       domain.CategoryClustering,
		Description:    fmt.Sprintf("Cluster this partitioned table on %s: queries filter on %s", cols, strings.Join(filters, ", ")),
		Impact:         domain.NewImpact(20, 40),
		Priority:       domain.PriorityMedium,
		Implementation: fmt.Sprintf("ALTER TABLE `%s` SET OPTIONS (clustering_fields = [%s]);", tbl.ID(), quoteList(cluster)),
	}, true
}

func scanRatio(t Thresholds, in Input) (domain.Recommendation, bool) {
	ratio := ScanRatio(in.Queries, in.Table.SizeBytes)
	if ratio == 0 || ratio < t.ScanRatio {
		return domain.Recommendation{}, false
	}
	id := in.Table.ID()
	pct := ratio * 100
	if in.Table.IsPartitioned() {
		return domain.Recommendation{
			Category:       domain.CategoryQueryOptimization,
			Description:    fmt.Sprintf("Require partition filter: queries scan %.0f%% of the table on average", pct),
			Impact:         domain.NewImpact(30, 90),
			Priority:       domain.PriorityHigh,
			Implementation: fmt.Sprintf("ALTER TABLE `%s` SET OPTIONS (require_partition_filter = TRUE);", id),
		}, true
	}

	priority := domain.PriorityLow
	switch {
	case ratio > 0.9:
		priority = domain.PriorityHigh
	case ratio > 0.7:
		priority = domain.PriorityMedium
	}
	return domain.Recommendation{
		Category:       domain.CategoryQueryOptimization,
		Description:    fmt.Sprintf("Optimize queries to reduce the amount of data scanned: %.0f%% of the table read per run", pct),
		Impact:         domain.NewImpact(10, 50),
		Priority:       priority,
		Implementation: "Select only the needed columns instead of SELECT * and add selective WHERE filters.",
	}, true
}

func streamingInserts(_ Thresholds, in Input) (domain.Recommendation, bool) {
	if !in.Table.Streaming {
		return domain.Recommendation{}, false
	}
	return domain.Recommendation{
		Category:       domain.CategoryQueryOptimization,
		Description:    "Replace streaming inserts with batch loads where latency allows",
		Impact:         domain.NewImpact(50, 50),
		Priority:       domain.PriorityMedium,
		Implementation: "Stage rows in Cloud Storage and load them with scheduled load jobs.",
	}, true
}

func repeatedAggregation(t Thresholds, in Input) (domain.Recommendation, bool) {
	if t.MVMinRepeats <= 0 {
		return domain.Recommendation{}, false
	}
	shape, repeats := RepeatedAggregation(in.Queries)
	if repeats < t.MVMinRepeats {
		return domain.Recommendation{}, false
	}
	id := in.Table.ID()
	return domain.Recommendation{
		Category:    domain.CategoryMaterializedView,
		Description: fmt.Sprintf("Create materialized views for frequently queried aggregations: same GROUP BY shape ran %d times", repeats),
		Impact:      domain.NewImpact(30, 70),
		Priority:    domain.PriorityMedium,
		Implementation: fmt.Sprintf("CREATE MATERIALIZED VIEW `%s_mv_daily_agg` AS\n-- based on: %s",
			id, truncate(shape, 200)),
	}, true
}

func missingDescription(_ Thresholds, in Input) (domain.Recommendation, bool) {
	if strings.TrimSpace(in.Table.Description) != "" {
		return domain.Recommendation{}, false
	}
	return domain.Recommendation{
		Category:       domain.CategoryGovernance,
		Description:    "Add a table description",
		Impact:         domain.IndirectImpact(),
		Priority:       domain.PriorityLow,
		Implementation: fmt.Sprintf("ALTER TABLE `%s` SET OPTIONS (description = '...');", in.Table.ID()),
	}, true
}

func missingLabels(_ Thresholds, in Input) (domain.Recommendation, bool) {
	if len(in.Table.Labels) > 0 {
		return domain.Recommendation{}, false
	}
	return domain.Recommendation{
		Category:       domain.CategoryGovernance,
		Description:    "Add labels for cost attribution and ownership",
		Impact:         domain.IndirectImpact(),
		Priority:       domain.PriorityLow,
		Implementation: fmt.Sprintf("ALTER TABLE `%s` SET OPTIONS (labels = [('owner', '...'), ('env', '...')]);", in.Table.ID()),
	}, true
}

func lifecycle(t Thresholds, in Input) (domain.Recommendation, bool) {
	tbl := in.Table
	if tbl.LastModified.IsZero() {
		return domain.Recommendation{}, false
	}
	age := tbl.Age(in.Now)
	days := int(age.Hours() / 24)
	id := tbl.ID()

	if days > t.StaleDays && !tbl.HasExpiration() {
		return domain.Recommendation{
			Category:       domain.CategoryLifecycle,
			Description:    fmt.Sprintf("Set table expiration for old data: not modified for %d days", days),
			Impact:         domain.NewImpact(10, 40),
			Priority:       domain.PriorityMedium,
			Implementation: fmt.Sprintf("ALTER TABLE `%s` SET OPTIONS (expiration_timestamp = TIMESTAMP_ADD(CURRENT_TIMESTAMP(), INTERVAL 30 DAY));", id),
		}, true
	}

	if tbl.IsPartitioned() && days > t.PartitionStaleDays && tbl.SizeGB() >= t.LargeTableGB &&
		tbl.Partitioning.Expiration == 0 {
		return domain.Recommendation{
			Category:       domain.CategoryLifecycle,
			Description:    fmt.Sprintf("Set partition expiration: %.2f GB partitioned table not modified for %d days", tbl.SizeGB(), days),
			Impact:         domain.NewImpact(10, 40),
			Priority:       domain.PriorityMedium,
			Implementation: fmt.Sprintf("ALTER TABLE `%s` SET OPTIONS (partition_expiration_days = %d);", id, t.StaleDays),
		}, true
	}
	return domain.Recommendation{}, false
}

func wideTable(t Thresholds, in Input) (domain.Recommendation, bool) {
	n := len(in.Table.Columns)
	if t.WideTableColumns <= 0 || n <= t.WideTableColumns {
		return domain.Recommendation{}, false
	}
	return domain.Recommendation{
		Category:       domain.CategoryDataType,
		Description:    fmt.Sprintf("Review wide schema: %d columns; split rarely used columns into a separate table", n),
		Impact:         domain.NewImpact(10, 20),
		Priority:       domain.PriorityLow,
		Implementation: "Move infrequently queried columns to a companion table joined on the primary key.",
	}, true
}

func nestedSchema(_ Thresholds, in Input) (domain.Recommendation, bool) {
	var nested []string
	for _, c := range in.Table.Columns {
		if c.IsNested() {
			nested = append(nested, c.Name)
		}
	}
	if len(nested) == 0 {
		return domain.Recommendation{}, false
	}
	return domain.Recommendation{
		Category:       domain.CategoryDataType,
		Description:    fmt.Sprintf("Review nested and repeated fields %s: flatten the ones filtered on often", strings.Join(nested, ", ")),
		Impact:         domain.NewImpact(10, 25),
		Priority:       domain.PriorityLow,
		Implementation: "Promote frequently filtered nested fields to top-level columns.",
	}, true
}

func stringHeavy(t Thresholds, in Input) (domain.Recommendation, bool) {
	var suspects []string
	for _, c := range in.Table.Columns {
		if !strings.EqualFold(c.Type, "STRING") {
			continue
		}
		if keywordScore(c.Name, numericLikeNames) > 0 {
			suspects = append(suspects, c.Name)
		}
	}
	if t.StringColumnsThreshold <= 0 || len(suspects) < t.StringColumnsThreshold {
		return domain.Recommendation{}, false
	}
	return domain.Recommendation{
		Category:       domain.CategoryDataType,
		Description:    fmt.Sprintf("Use numeric or temporal types for STRING columns %s", strings.Join(suspects, ", ")),
		Impact:         domain.NewImpact(10, 30),
		Priority:       domain.PriorityLow,
		Implementation: "Rewrite the table casting these columns with SAFE_CAST to INT64, NUMERIC, DATE or TIMESTAMP.",
	}, true
}

func integerTimestamps(_ Thresholds, in Input) (domain.Recommendation, bool) {
	var cols []string
	for _, c := range in.Table.Columns {
		if integerTypes[strings.ToUpper(c.Type)] && keywordScore(c.Name, timestampLike) > 0 {
			cols = append(cols, c.Name)
		}
	}
	if len(cols) == 0 {
		return domain.Recommendation{}, false
	}
	return domain.Recommendation{
		Category:       domain.CategoryDataType,
		Description:    fmt.Sprintf("Convert integer timestamp columns to TIMESTAMP type: %s", strings.Join(cols, ", ")),
		Impact:         domain.NewImpact(5, 15),
		Priority:       domain.PriorityLow,
		Implementation: fmt.Sprintf("SELECT TIMESTAMP_SECONDS(%s) ...", cols[0]),
	}, true
}

func quoteList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = "'" + c + "'"
	}
	return strings.Join(q, ", ")
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

package bigquery

import (
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/sqlref"
)

// historySQL aggregates successful SELECT jobs by query text over the last @days days,
// heaviest first, capped at @limit rows.
func historySQL(project, region string) string {
	return fmt.Sprintf(`WITH jobs AS (
  SELECT
    query,
    ARRAY_TO_STRING(ARRAY(
      SELECT CONCAT(t.project_id, '.', t.dataset_id, '.', t.table_id)
      FROM UNNEST(referenced_tables) AS t
    ), ',') AS tables,
    total_bytes_processed,
    creation_time
  FROM `+"`%s`.`%s`"+`.INFORMATION_SCHEMA.JOBS_BY_PROJECT
  WHERE creation_time >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL @days DAY)
    AND job_type = 'QUERY'
    AND statement_type = 'SELECT'
    AND state = 'DONE'
    AND error_result IS NULL
)
SELECT
  query,
  ANY_VALUE(tables) AS tables,
  SUM(total_bytes_processed) AS bytes_processed,
  COUNT(*) AS executions,
  MAX(creation_time) AS last_run
FROM jobs
GROUP BY query
ORDER BY bytes_processed DESC
LIMIT @limit`, project, region)
}

type jobRow struct {
	Query          string                 `bigquery:"query"`
	Tables         bigquery.NullString    `bigquery:"tables"`
	BytesProcessed bigquery.NullInt64     `bigquery:"bytes_processed"`
	Executions     int64                  `bigquery:"executions"`
	LastRun        bigquery.NullTimestamp `bigquery:"last_run"`
}

func convertJob(row *jobRow, i int) domain.QueryRecord {
	q := domain.QueryRecord{
		ID:             fmt.Sprintf("bq-%04d", i+1),
		Text:           row.Query,
		ExecutionCount: int(row.Executions),
	}
	if row.Tables.Valid {
		q.Tables = sqlref.ParseList(row.Tables.StringVal)
	}
	if row.BytesProcessed.Valid {
		q.BytesScanned = row.BytesProcessed.Int64
	}
	if row.LastRun.Valid {
		q.Timestamp = row.LastRun.Timestamp
	}
	return q
}

func convertTable(project, dataset, table string, md *bigquery.TableMetadata) domain.TableMetadata {
	t := domain.TableMetadata{
		Ref:          domain.TableRef{Project: project, Dataset: dataset, Table: table},
		SizeBytes:    md.NumBytes,
		NumRows:      int64(md.NumRows),
		CreatedAt:    md.CreationTime,
		LastModified: md.LastModifiedTime,
		Expiration:   md.ExpirationTime,
		Labels:       md.Labels,
		Description:  md.Description,
		Streaming:    md.StreamingBuffer != nil,
		Columns:      convertSchema(md.Schema),
	}

	switch {
	case md.TimePartitioning != nil:
		tp := md.TimePartitioning
		typ := string(tp.Type)
		if typ == "" {
			typ = string(bigquery.DayPartitioningType)
		}
		t.Partitioning = &domain.Partitioning{Column: tp.Field, Type: typ, Expiration: tp.Expiration}
	case md.RangePartitioning != nil:
		t.Partitioning = &domain.Partitioning{Column: md.RangePartitioning.Field, Type: "RANGE"}
	}
	if md.Clustering != nil {
		t.Clustering = append([]string(nil), md.Clustering.Fields...)
	}
	return t
}

// convertSchema keeps top-level fields; nested RECORD children stay folded into their parent.
func convertSchema(schema bigquery.Schema) []domain.Column {
	out := make([]domain.Column, 0, len(schema))
	for _, f := range schema {
		mode := "NULLABLE"
		switch {
		case f.Repeated:
			mode = "REPEATED"
		case f.Required:
			mode = "REQUIRED"
		}
		out = append(out, domain.Column{
			Name:        f.Name,
			Type:        strings.ToUpper(string(f.Type)),
			Mode:        mode,
			Description: f.Description,
		})
	}
	return out
}

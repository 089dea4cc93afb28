package bigquery

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
)

func TestConvertTable(t *testing.T) {
	modified := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	md := &bigquery.TableMetadata{
		Description:      "orders",
		Labels:           map[string]string{"team": "sales"},
		NumBytes:         5 << 30,
		NumRows:          1000,
		LastModifiedTime: modified,
		TimePartitioning: &bigquery.TimePartitioning{Field: "order_date", Expiration: 48 * time.Hour},
		Clustering:       &bigquery.Clustering{Fields: []string{"customer_id"}},
		StreamingBuffer:  &bigquery.StreamingBuffer{EstimatedRows: 10},
		Schema: bigquery.Schema{
			{Name: "order_id", Type: bigquery.StringFieldType, Required: true},
			{Name: "order_date", Type: bigquery.DateFieldType},
			{Name: "items", Type: bigquery.RecordFieldType, Repeated: true, Schema: bigquery.Schema{
				{Name: "sku", Type: bigquery.StringFieldType},
			}},
		},
	}

	got := convertTable("p", "shop", "orders", md)

	if got.ID() != "p.shop.orders" {
		t.Errorf("ID = %q", got.ID())
	}
	if got.SizeGB() != 5 || got.NumRows != 1000 {
		t.Errorf("size = %f GB, rows = %d", got.SizeGB(), got.NumRows)
	}
	if got.PartitionColumn() != "order_date" || got.Partitioning.Type != "DAY" {
		t.Errorf("partitioning = %+v", got.Partitioning)
	}
	if !got.HasExpiration() {
		t.Error("expected partition expiration to carry over")
	}
	if len(got.Clustering) != 1 || got.Clustering[0] != "customer_id" {
		t.Errorf("clustering = %v", got.Clustering)
	}
	if !got.Streaming || !got.LastModified.Equal(modified) {
		t.Errorf("streaming = %v, modified = %v", got.Streaming, got.LastModified)
	}
	if len(got.Columns) != 3 {
		t.Fatalf("expected 3 top-level columns, got %d", len(got.Columns))
	}
	if got.Columns[0].Mode != "REQUIRED" || got.Columns[1].Mode != "NULLABLE" {
		t.Errorf("modes = %q, %q", got.Columns[0].Mode, got.Columns[1].Mode)
	}
	if !got.Columns[2].IsNested() || got.Columns[2].Type != "RECORD" {
		t.Errorf("items = %+v", got.Columns[2])
	}
}

func TestConvertTable_RangeAndUnpartitioned(t *testing.T) {
	ranged := convertTable("p", "d", "t", &bigquery.TableMetadata{
		RangePartitioning: &bigquery.RangePartitioning{Field: "bucket"},
	})
	if ranged.PartitionColumn() != "bucket" || ranged.Partitioning.Type != "RANGE" {
		t.Errorf("range partitioning = %+v", ranged.Partitioning)
	}

	plain := convertTable("p", "d", "t", &bigquery.TableMetadata{})
	if plain.IsPartitioned() || plain.IsClustered() || plain.Streaming {
		t.Errorf("unexpected layout: %+v", plain)
	}
}

func TestConvertJob(t *testing.T) {
	ts := time.Date(2026, 5, 30, 12, 0, 0, 0, time.UTC)
	row := &jobRow{
		Query:          "SELECT * FROM shop.orders",
		Tables:         bigquery.NullString{StringVal: "p.shop.orders,p.shop.customers", Valid: true},
		BytesProcessed: bigquery.NullInt64{Int64: 2048, Valid: true},
		Executions:     7,
		LastRun:        bigquery.NullTimestamp{Timestamp: ts, Valid: true},
	}

	got := convertJob(row, 0)

	if got.ID != "bq-0001" || got.ExecutionCount != 7 || got.BytesScanned != 2048 {
		t.Errorf("record = %+v", got)
	}
	if strings.Join(got.Tables, "|") != "p.shop.orders|p.shop.customers" {
		t.Errorf("tables = %v", got.Tables)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v", got.Timestamp)
	}

	empty := convertJob(&jobRow{Query: "SELECT 1"}, 4)
	if empty.Tables != nil || empty.BytesScanned != 0 || !empty.Timestamp.IsZero() || empty.ID != "bq-0005" {
		t.Errorf("null columns should map to zero values: %+v", empty)
	}
}

func TestHistorySQL(t *testing.T) {
	sql := historySQL("acme", "region-eu")
	for _, want := range []string{
		"`acme`.`region-eu`.INFORMATION_SCHEMA.JOBS_BY_PROJECT",
		"INTERVAL @days DAY",
		"LIMIT @limit",
		"GROUP BY query",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("history SQL missing %q", want)
		}
	}
}

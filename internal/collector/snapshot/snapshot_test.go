package snapshot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/collector"
	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func loadFixture(t *testing.T) *domain.Snapshot {
	t.Helper()
	src := New(filepath.Join("testdata", "snapshot.json"), collector.Options{
		MinTableSizeGB: 0.01,
		LookbackDays:   30,
		Now:            testNow,
	}, zap.NewNop())
	snap, err := src.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return snap
}

func TestCollect_Fixture(t *testing.T) {
	snap := loadFixture(t)

	if len(snap.Tables) != 2 {
		t.Fatalf("expected 2 tables after size filter, got %d", len(snap.Tables))
	}
	if len(snap.Queries) != 2 {
		t.Fatalf("expected 2 queries inside the lookback window, got %d", len(snap.Queries))
	}

	tx := snap.Tables[0]
	if tx.ID() != "acme-analytics.sales.transactions" {
		t.Errorf("ID = %q", tx.ID())
	}
	if got := tx.SizeGB(); got < 512.4 || got > 512.6 {
		t.Errorf("SizeGB = %f, want ~512.5", got)
	}
	if tx.IsPartitioned() || tx.IsClustered() {
		t.Error("transactions should be neither partitioned nor clustered")
	}
	if tx.Labels["team"] != "finance" || tx.Description == "" {
		t.Errorf("governance fields lost: %+v %q", tx.Labels, tx.Description)
	}
	if c, ok := tx.Column("transaction_date"); !ok || c.Type != "DATE" {
		t.Errorf("transaction_date column = %+v, %v", c, ok)
	}

	ev := snap.Tables[1]
	if ev.PartitionColumn() != "event_ts" || ev.Partitioning.Type != "DAY" {
		t.Errorf("partitioning = %+v", ev.Partitioning)
	}
	if strings.Join(ev.Clustering, ",") != "customer_id,event_type" {
		t.Errorf("clustering = %v", ev.Clustering)
	}
	if !ev.Streaming {
		t.Error("expected streaming flag")
	}
	if want := testNow.AddDate(0, 0, -1); !ev.LastModified.Equal(want) {
		t.Errorf("LastModified = %v, want %v", ev.LastModified, want)
	}
	if !ev.Columns[3].IsNested() {
		t.Error("payload should be nested")
	}
}

func TestCollect_ReferencedTablesForms(t *testing.T) {
	snap := loadFixture(t)

	if got := snap.Queries[0].Tables; len(got) != 1 || got[0] != "acme-analytics.sales.transactions" {
		t.Errorf("array form: %v", got)
	}
	if got := snap.Queries[1].Tables; len(got) != 1 || got[0] != "acme-analytics.events.customer_events" {
		t.Errorf("string form: %v", got)
	}
	if snap.Queries[0].ExecutionCount != 4 || snap.Queries[0].ID != "job_001" {
		t.Errorf("query 0 = %+v", snap.Queries[0])
	}
}

func TestCollect_MissingFile(t *testing.T) {
	src := New(filepath.Join("testdata", "missing.json"), collector.Options{}, zap.NewNop())
	if _, err := src.Collect(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCollect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := New(filepath.Join("testdata", "snapshot.json"), collector.Options{}, zap.NewNop())
	if _, err := src.Collect(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, s *domain.Snapshot)
	}{
		{
			name:    "invalid json",
			input:   `{"tables": [`,
			wantErr: true,
		},
		{
			name:    "table without id",
			input:   `{"tables": [{"row_count": 1}]}`,
			wantErr: true,
		},
		{
			name:  "dotted table id wins over separate parts",
			input: `{"tables": [{"project_id": "p", "table_id": "d.t", "table_size_bytes": 10}]}`,
			check: func(t *testing.T, s *domain.Snapshot) {
				if got := s.Tables[0].ID(); got != "p.d.t" {
					t.Errorf("ID = %q, want p.d.t", got)
				}
			},
		},
		{
			name:  "partitioned flag alone means ingestion time",
			input: `{"tables": [{"table_id": "d.t", "is_partitioned": true, "partition_expiration_days": 30}]}`,
			check: func(t *testing.T, s *domain.Snapshot) {
				p := s.Tables[0].Partitioning
				if p == nil || p.Column != "" || p.Type != "DAY" {
					t.Fatalf("partitioning = %+v", p)
				}
				if !s.Tables[0].HasExpiration() {
					t.Error("expected partition expiration")
				}
			},
		},
		{
			name:  "empty query text is skipped",
			input: `{"queries": [{"query_text": ""}, {"query_text": "SELECT 1", "referenced_tables": null}]}`,
			check: func(t *testing.T, s *domain.Snapshot) {
				if len(s.Queries) != 1 || s.Queries[0].Tables != nil {
					t.Errorf("queries = %+v", s.Queries)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := Decode(strings.NewReader(tc.input), testNow)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tc.check(t, snap)
		})
	}
}

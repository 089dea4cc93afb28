// Package collector defines the metadata source contract and the filtering shared by every source.
package collector

import (
	"context"
	"time"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// Source produces the read-only snapshot of one run.
type Source interface {
	Collect(ctx context.Context) (*domain.Snapshot, error)
}

// Options bound what a source hands to the analysis.
type Options struct {
	MinTableSizeGB float64
	LookbackDays   int
	Now            time.Time
}

// Filter drops tables below the size floor and queries older than the lookback window.
// Queries without a timestamp are kept. The input is not modified.
func Filter(snap *domain.Snapshot, opts Options) *domain.Snapshot {
	out := &domain.Snapshot{
		Tables:  make([]domain.TableMetadata, 0, len(snap.Tables)),
		Queries: make([]domain.QueryRecord, 0, len(snap.Queries)),
	}
	for i := range snap.Tables {
		if snap.Tables[i].SizeGB() >= opts.MinTableSizeGB {
			out.Tables = append(out.Tables, snap.Tables[i])
		}
	}

	var cutoff time.Time
	if opts.LookbackDays > 0 {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		cutoff = now.AddDate(0, 0, -opts.LookbackDays)
	}
	for i := range snap.Queries {
		q := snap.Queries[i]
		if !cutoff.IsZero() && !q.Timestamp.IsZero() && q.Timestamp.Before(cutoff) {
			continue
		}
		out.Queries = append(out.Queries, q)
	}
	return out
}

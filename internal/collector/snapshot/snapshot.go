// Package snapshot reads table metadata and query history from a JSON export.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/collector"
	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// Source loads a snapshot file on every Collect.
type Source struct {
	path   string
	opts   collector.Options
	logger *zap.Logger
}

// New creates a file-backed source.
func New(path string, opts collector.Options, logger *zap.Logger) *Source {
	return &Source{path: path, opts: opts, logger: logger}
}

// Collect reads, converts and filters the snapshot.
func (s *Source) Collect(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	now := s.opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	snap, err := Decode(f, now)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.path, err)
	}

	opts := s.opts
	opts.Now = now
	filtered := collector.Filter(snap, opts)
	s.logger.Info("Snapshot loaded",
		zap.String("path", s.path),
		zap.Int("tables", len(filtered.Tables)),
		zap.Int("tables_skipped", len(snap.Tables)-len(filtered.Tables)),
		zap.Int("queries", len(filtered.Queries)),
		zap.Int("queries_skipped", len(snap.Queries)-len(filtered.Queries)),
	)
	return filtered, nil
}

// Decode parses a snapshot document. Relative ages such as last_modified_days resolve against now.
func Decode(r io.Reader, now time.Time) (*domain.Snapshot, error) {
	var dto fileDTO
	if err := json.NewDecoder(r).Decode(&dto); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	snap := &domain.Snapshot{
		Tables:  make([]domain.TableMetadata, 0, len(dto.Tables)),
		Queries: make([]domain.QueryRecord, 0, len(dto.Queries)),
	}
	for i := range dto.Tables {
		if dto.Tables[i].TableID == "" {
			return nil, fmt.Errorf("table %d: table_id is required", i)
		}
		snap.Tables = append(snap.Tables, dto.Tables[i].toDomain(now))
	}
	for i := range dto.Queries {
		if dto.Queries[i].QueryText == "" {
			continue
		}
		snap.Queries = append(snap.Queries, dto.Queries[i].toDomain())
	}
	return snap, nil
}

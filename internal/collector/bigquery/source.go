// Package bigquery collects table metadata and query history from a live BigQuery project.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kailas-cloud/tableadvisor/internal/collector"
	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

const (
	defaultHistoryLimit = 1000
	defaultLookbackDays = 30
)

// Config identifies the project and the slice of it to scan.
type Config struct {
	Project         string
	CredentialsFile string
	Region          string   // INFORMATION_SCHEMA region qualifier, e.g. region-us
	Datasets        []string // empty = every dataset in the project
	HistoryLimit    int
}

// Source reads metadata through the BigQuery API.
type Source struct {
	client *bigquery.Client
	cfg    Config
	opts   collector.Options
	logger *zap.Logger
}

// New creates a BigQuery client for the configured project.
func New(ctx context.Context, cfg Config, opts collector.Options, logger *zap.Logger) (*Source, error) {
	if strings.ContainsAny(cfg.Project+cfg.Region, "`;") {
		return nil, fmt.Errorf("%w: project and region must be plain identifiers", domain.ErrInvalidConfig)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.Project, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	return &Source{client: client, cfg: cfg, opts: opts, logger: logger}, nil
}

// Close releases the client.
func (s *Source) Close() error {
	return s.client.Close()
}

// Ping lists one dataset to verify credentials and connectivity.
func (s *Source) Ping(ctx context.Context) error {
	it := s.client.Datasets(ctx)
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Collect scans table metadata and the query history of the lookback window.
func (s *Source) Collect(ctx context.Context) (*domain.Snapshot, error) {
	datasets, err := s.datasets(ctx)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{}
	for _, ds := range datasets {
		tables, err := s.tables(ctx, ds)
		if err != nil {
			return nil, err
		}
		snap.Tables = append(snap.Tables, tables...)
	}

	snap.Queries, err = s.history(ctx)
	if err != nil {
		// metadata rules still apply without a workload
		s.logger.Warn("Query history unavailable, continuing with metadata only", zap.Error(err))
	}

	filtered := collector.Filter(snap, s.opts)
	s.logger.Info("BigQuery metadata collected",
		zap.String("project", s.cfg.Project),
		zap.Int("datasets", len(datasets)),
		zap.Int("tables", len(filtered.Tables)),
		zap.Int("queries", len(filtered.Queries)),
	)
	return filtered, nil
}

func (s *Source) datasets(ctx context.Context) ([]string, error) {
	if len(s.cfg.Datasets) > 0 {
		return s.cfg.Datasets, nil
	}

	it := s.client.Datasets(ctx)
	var out []string
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list datasets: %w", err)
		}
		out = append(out, ds.DatasetID)
	}
	return out, nil
}

func (s *Source) tables(ctx context.Context, dataset string) ([]domain.TableMetadata, error) {
	it := s.client.Dataset(dataset).Tables(ctx)
	var out []domain.TableMetadata
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list tables in %s: %w", dataset, err)
		}

		md, err := t.Metadata(ctx)
		if err != nil {
			s.logger.Warn("Skipping table, metadata unavailable",
				zap.String("dataset", dataset),
				zap.String("table", t.TableID),
				zap.Error(err),
			)
			continue
		}
		if md.Type != "" && md.Type != bigquery.RegularTable {
			continue
		}
		out = append(out, convertTable(s.cfg.Project, dataset, t.TableID, md))
	}
	return out, nil
}

func (s *Source) history(ctx context.Context) ([]domain.QueryRecord, error) {
	q := s.client.Query(historySQL(s.cfg.Project, s.cfg.Region))
	days := s.opts.LookbackDays
	if days <= 0 {
		days = defaultLookbackDays
	}
	q.Parameters = []bigquery.QueryParameter{
		{Name: "days", Value: days},
		{Name: "limit", Value: s.cfg.HistoryLimit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query job history: %w", err)
	}

	var out []domain.QueryRecord
	for {
		var row jobRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to read job history row: %w", err)
		}
		out = append(out, convertJob(&row, len(out)))
	}
	return out, nil
}

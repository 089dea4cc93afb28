package schemaindex

import (
	"context"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// Disabled stands in for the index when use_vector_db is off. Every lookup misses.
type Disabled struct{}

// KeyFor returns the bare identifier; nothing is stored under it.
func (Disabled) KeyFor(tableID string) string { return tableID }

// Upsert discards the record.
func (Disabled) Upsert(context.Context, domain.SchemaEmbeddingRecord) bool { return false }

// Query returns no neighbors.
func (Disabled) Query(context.Context, []float32, int, string) []domain.SimilarSchema { return nil }

// GetByKey always misses.
func (Disabled) GetByKey(context.Context, string) (domain.SchemaEmbeddingRecord, bool) {
	return domain.SchemaEmbeddingRecord{}, false
}

// FindByPayloadField always misses.
func (Disabled) FindByPayloadField(context.Context, string, string) (domain.SchemaEmbeddingRecord, bool) {
	return domain.SchemaEmbeddingRecord{}, false
}

// Degraded is always zero: a disabled index is a choice, not an outage.
func (Disabled) Degraded() int64 { return 0 }

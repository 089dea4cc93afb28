package schemaindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/db"
	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
)

// Hash fields of a stored schema document.
const (
	FieldTableID    = "table_id"
	FieldSchemaText = "schema_text"
	FieldMetadata   = "metadata"
	FieldVector     = "vector"
)

// store is the consumer interface for the similarity index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchTag(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error)
}

// Options configures the collection.
type Options struct {
	Collection  string
	KeyPrefix   string
	Dimension   int
	Algorithm   db.VectorAlgorithm
	M           int
	EFConstruct int
}

// Repo is the Similarity Index over a RediSearch-compatible store.
// Backend failures are logged and reported as empty results, never returned.
type Repo struct {
	store     store
	opts      Options
	indexName string
	docPrefix string
	logger    *zap.Logger

	mu    sync.Mutex
	ready bool

	degraded atomic.Int64
}

// New creates a similarity index repository. The FT index is created on first use.
func New(s store, opts Options, logger *zap.Logger) *Repo {
	return &Repo{
		store:     s,
		opts:      opts,
		indexName: opts.KeyPrefix + opts.Collection + ":idx",
		docPrefix: opts.KeyPrefix + opts.Collection + ":",
		logger:    logger,
	}
}

// KeyFor maps a table identifier to its stable document key.
// Identifiers carry dots, dashes and colons, so they are hashed into a name-based UUID.
func (r *Repo) KeyFor(tableID string) string {
	return r.docPrefix + uuid.NewSHA1(uuid.NameSpaceDNS, []byte(tableID)).String()
}

// Upsert stores or replaces a record by key. It reports whether the write reached the backend.
func (r *Repo) Upsert(ctx context.Context, rec domain.SchemaEmbeddingRecord) bool {
	if len(rec.Vector) != r.opts.Dimension {
		r.degrade("upsert", fmt.Errorf("key %s: got %d dimensions, want %d: %w",
			rec.Key, len(rec.Vector), r.opts.Dimension, domain.ErrDimensionMismatch))
		return false
	}
	if err := r.ensureIndex(ctx); err != nil {
		r.degrade("upsert", err)
		return false
	}

	meta, err := json.Marshal(rec.Payload.Metadata)
	if err != nil {
		r.degrade("upsert", fmt.Errorf("marshal metadata: %w", err))
		return false
	}

	fields := map[string]string{
		FieldTableID:    rec.Payload.TableID,
		FieldSchemaText: rec.Payload.SchemaText,
		FieldMetadata:   string(meta),
		FieldVector:     db.EncodeVector(rec.Vector),
	}
	if err := r.store.HSet(ctx, rec.Key, fields); err != nil {
		r.degrade("upsert", err)
		return false
	}
	return true
}

// Query returns up to topK nearest schemas, best first, skipping excludeTableID when set.
func (r *Repo) Query(ctx context.Context, vector []float32, topK int, excludeTableID string) []domain.SimilarSchema {
	if topK <= 0 || len(vector) != r.opts.Dimension {
		return nil
	}
	if err := r.ensureIndex(ctx); err != nil {
		r.degrade("query", err)
		return nil
	}

	q := &db.KNNQuery{
		IndexName:    r.indexName,
		VectorField:  FieldVector,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{FieldTableID, FieldSchemaText, FieldMetadata},
	}
	if excludeTableID != "" {
		q.Exclude = []db.TagFilter{{Field: FieldTableID, Value: excludeTableID}}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		r.degrade("query", err)
		return nil
	}

	out := make([]domain.SimilarSchema, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, domain.SimilarSchema{
			Key:     e.Key,
			Payload: r.payload(e.Fields),
			Score:   e.Score,
		})
	}
	return out
}

// GetByKey fetches one record.
func (r *Repo) GetByKey(ctx context.Context, key string) (domain.SchemaEmbeddingRecord, bool) {
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.degrade("get", err)
		}
		return domain.SchemaEmbeddingRecord{}, false
	}
	return r.record(key, fields)
}

// FindByPayloadField looks a record up by payload content instead of key.
// Only TAG-indexed fields are searchable; table_id is the one indexed.
func (r *Repo) FindByPayloadField(ctx context.Context, field, value string) (domain.SchemaEmbeddingRecord, bool) {
	if field != FieldTableID || value == "" {
		return domain.SchemaEmbeddingRecord{}, false
	}
	if err := r.ensureIndex(ctx); err != nil {
		r.degrade("find", err)
		return domain.SchemaEmbeddingRecord{}, false
	}

	sr, err := r.store.SearchTag(ctx, &db.TagQuery{
		IndexName: r.indexName,
		Field:     field,
		Value:     value,
		Limit:     1,
	})
	if err != nil {
		r.degrade("find", err)
		return domain.SchemaEmbeddingRecord{}, false
	}
	if len(sr.Entries) == 0 {
		return domain.SchemaEmbeddingRecord{}, false
	}
	e := sr.Entries[0]
	return r.record(e.Key, e.Fields)
}

// Reset drops the FT index so the next operation recreates it, for example after
// the embedding dimension changed. Stored hashes are kept and re-indexed on creation.
func (r *Repo) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.store.IndexExists(ctx, r.indexName)
	if err != nil {
		return fmt.Errorf("probe index %s: %w", r.indexName, err)
	}
	if exists {
		if err := r.store.DropIndex(ctx, r.indexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", r.indexName, err)
		}
		r.logger.Info("Similarity index dropped", zap.String("index", r.indexName))
	}
	r.ready = false
	return nil
}

// Degraded returns how many operations fell back to an empty result.
func (r *Repo) Degraded() int64 {
	return r.degraded.Load()
}

func (r *Repo) ensureIndex(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}

	def, err := db.NewIndex(r.indexName).
		Prefix(r.docPrefix).
		Tag(FieldTableID).
		Vector(FieldVector, db.VectorParams{
			Algorithm:      r.opts.Algorithm,
			Dim:            r.opts.Dimension,
			Distance:       db.DistanceCosine,
			M:              r.opts.M,
			EFConstruction: r.opts.EFConstruct,
		}).
		Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", r.indexName, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.indexName, err)
	}
	r.ready = true
	r.logger.Debug("Similarity index ready", zap.String("index", r.indexName))
	return nil
}

func (r *Repo) record(key string, fields map[string]string) (domain.SchemaEmbeddingRecord, bool) {
	rec := domain.SchemaEmbeddingRecord{Key: key, Payload: r.payload(fields)}
	if rec.Payload.TableID == "" {
		return domain.SchemaEmbeddingRecord{}, false
	}
	if blob, ok := fields[FieldVector]; ok {
		vec, err := db.DecodeVector(blob)
		if err != nil || len(vec) != r.opts.Dimension {
			r.logger.Warn("Stored vector unusable", zap.String("key", key), zap.Int("dimensions", len(vec)), zap.Error(err))
		} else {
			rec.Vector = vec
		}
	}
	return rec, true
}

func (r *Repo) payload(fields map[string]string) domain.SchemaPayload {
	p := domain.SchemaPayload{
		TableID:    fields[FieldTableID],
		SchemaText: fields[FieldSchemaText],
	}
	if raw := fields[FieldMetadata]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &p.Metadata); err != nil {
			r.logger.Debug("Ignoring malformed schema metadata", zap.String("table_id", p.TableID), zap.Error(err))
		}
	}
	return p
}

func (r *Repo) degrade(op string, err error) {
	r.degraded.Add(1)
	metrics.IndexDegradedTotal.WithLabelValues(op).Inc()
	r.logger.Warn("Similarity index unavailable, continuing without it",
		zap.String("op", op), zap.Error(fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)))
}

// Package db defines the storage contract shared by the similarity index and the
// embedding cache, plus the backend-neutral index and query types they pass around.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis backend offers. Consumers declare the narrow
// subset they call instead of depending on Store.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger checks connectivity. Health checks use it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore holds schema documents as field maps.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KVStore holds cached embedding vectors.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager owns the FT index lifecycle.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher queries FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchTag(ctx context.Context, q *TagQuery) (*SearchResult, error)
}

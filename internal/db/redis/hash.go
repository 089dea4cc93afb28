package redis

import (
	"context"

	"github.com/kailas-cloud/tableadvisor/internal/db"
)

// HSet writes fields into the hash at key, replacing values of existing fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	fv := s.b().Hset().Key(key).FieldValue()
	for name, value := range fields {
		fv = fv.FieldValue(name, value)
	}
	if err := s.do(ctx, fv.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}
	return nil
}

// HGetAll reads a whole hash. Redis answers an empty map for a missing key,
// which is reported as db.ErrKeyNotFound.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	switch {
	case err != nil:
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	case len(fields) == 0:
		return nil, db.ErrKeyNotFound
	}
	return fields, nil
}

package evalcache

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("cache miss")

// Store es el backend del cache (memoria o valkey). Put sobrescribe: dos
// escrituras concurrentes de la misma clave son equivalentes.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

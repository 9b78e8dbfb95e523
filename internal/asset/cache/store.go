package cache

import (
	"context"
	"time"
)

// Store is the cache backend contract. Implementations must treat Get misses
// and expired entries identically; DeleteByPrefix removes every entry whose
// key starts with prefix.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

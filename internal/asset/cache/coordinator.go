package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"assettrack/internal/platform/metrics"
	"assettrack/pkg/platform/circuit"
)

// Coordinator serves time-bounded-stale reads and guarantees invalidation no
// later than the commit that made them stale. Backend failures are logged and
// degrade to misses; the coordinator never propagates a cache error. A
// circuit breaker stops hammering a backend that keeps failing.
type Coordinator struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
	breaker *circuit.Breaker
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics wires cache hit/miss/invalidation counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New constructs a Coordinator. A nil store disables caching entirely: every
// read is a miss and invalidation is a no-op.
func New(store Store, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		logger:  logger,
		breaker: circuit.New("cache", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// observe feeds a backend outcome to the breaker and logs transitions.
func (c *Coordinator) observe(ctx context.Context, err error) {
	if err == nil {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "cache backend recovered", "breaker", c.breaker.Name())
		}
		return
	}
	c.metrics.ObserveCacheError()
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "cache backend circuit opened", "breaker", c.breaker.Name())
	}
}

// Invalidate removes every cached entry under the given prefixes. Callers
// invoke it only after their transaction commit is durable, so a reader can
// never repopulate the cache with pre-commit state. Invalidation is always
// attempted even with the circuit open: deletions are the correctness path,
// and a successful one doubles as the recovery probe. Safe on a nil
// Coordinator, so services built without a cache need no call-site checks.
func (c *Coordinator) Invalidate(ctx context.Context, prefixes ...string) {
	if c == nil || c.store == nil {
		return
	}
	for _, prefix := range prefixes {
		err := c.store.DeleteByPrefix(ctx, prefix)
		c.observe(ctx, err)
		if err != nil {
			c.logger.WarnContext(ctx, "cache invalidation failed",
				"prefix", prefix, "error", err)
			continue
		}
		c.metrics.ObserveCacheInvalidation()
	}
}

// get returns the raw cached bytes, degrading any backend failure to a miss.
// With the circuit open the backend is not consulted at all; TTLs still
// bound how stale a surviving entry can be once it recovers.
func (c *Coordinator) get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.store == nil || c.breaker.IsOpen() {
		return nil, false
	}
	value, ok, err := c.store.Get(ctx, key)
	c.observe(ctx, err)
	if err != nil {
		c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		return nil, false
	}
	if ok {
		c.metrics.ObserveCacheHit()
	} else {
		c.metrics.ObserveCacheMiss()
	}
	return value, ok
}

func (c *Coordinator) set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c == nil || c.store == nil || c.breaker.IsOpen() {
		return
	}
	err := c.store.Set(ctx, key, value, ttl)
	c.observe(ctx, err)
	if err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// Fetch returns the cached value for key, or runs load and caches its result.
// Concurrent misses on the same key run load once (singleflight), so a cold
// hot key cannot stampede the store. Cache failures fall through to load.
func Fetch[T any](ctx context.Context, c *Coordinator, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil || c.store == nil {
		return load(ctx)
	}

	if raw, ok := c.get(ctx, key); ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Undecodable entry: treat as miss and overwrite below.
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		value, err := load(ctx)
		if err != nil {
			return zero, err
		}
		if raw, err := json.Marshal(value); err == nil {
			c.set(ctx, key, raw, ttl)
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

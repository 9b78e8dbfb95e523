// Package service orchestrates asset mutations. Every state change runs
// inside one transaction together with its history events, and successful
// commits invalidate the affected read caches.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"assettrack/internal/asset/cache"
	"assettrack/internal/asset/store"
	"assettrack/internal/platform/metrics"
	dErrors "assettrack/pkg/domain-errors"
	"assettrack/pkg/platform/sentinel"
	"assettrack/pkg/platform/tx"
	"assettrack/pkg/requestcontext"
)

// Service is the single mutation entry point for assets, custody, leases and
// moves. Reads flow through the cache coordinator; writes never do.
type Service struct {
	stores  store.Stores
	runner  tx.Runner
	cache   *cache.Coordinator
	logger  *slog.Logger
	metrics *metrics.Metrics

	detailTTL  time.Duration
	listTTL    time.Duration
	summaryTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithCache wires the read-cache coordinator.
func WithCache(c *cache.Coordinator) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger wires structured logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics wires Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCacheTTLs overrides the per-volatility read TTLs.
func WithCacheTTLs(detail, list, summary time.Duration) Option {
	return func(s *Service) {
		s.detailTTL, s.listTTL, s.summaryTTL = detail, list, summary
	}
}

// New constructs the asset service over a store bundle and a transaction
// runner. The runner and the stores must share the same backing storage.
func New(stores store.Stores, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		stores:     stores,
		runner:     runner,
		logger:     slog.New(slog.DiscardHandler),
		detailTTL:  10 * time.Second,
		listTTL:    10 * time.Second,
		summaryTTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// actor returns the acting user's resolved display name. Background work
// (purge ticker) has no request context and is attributed to "system".
func actor(ctx context.Context) string {
	if a := requestcontext.Actor(ctx); a != "" {
		return a
	}
	return "system"
}

// invalidateAsset drops the asset's detail and audit-trail keys plus the
// shared list and summary families. Called only after a durable commit.
func (s *Service) invalidateAsset(ctx context.Context, id uuid.UUID, extra ...string) {
	prefixes := append([]string{
		cache.DetailPrefix(id),
		cache.ListPrefix,
		cache.SummaryPrefix,
		cache.HistoryPrefix(id),
	}, extra...)
	s.cache.Invalidate(ctx, prefixes...)
}

// wrapStoreErr translates sentinel store errors into coded domain errors.
func wrapStoreErr(err error, notFoundMsg, conflictMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, conflictMsg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTransient, "store unavailable")
	default:
		return err
	}
}

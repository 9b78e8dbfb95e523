package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MutationsApplied     *prometheus.CounterVec
	HistoryEventsWritten prometheus.Counter
	MovesRecorded        *prometheus.CounterVec
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	CacheInvalidations   prometheus.Counter
	CacheBackendErrors   prometheus.Counter
	StoreRetries         prometheus.Counter
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MutationsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assettrack_mutations_applied_total",
			Help: "Asset mutations committed, by operation",
		}, []string{"operation"}),
		HistoryEventsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assettrack_history_events_written_total",
			Help: "History events appended to the audit trail",
		}),
		MovesRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assettrack_moves_recorded_total",
			Help: "Move records persisted, by kind",
		}, []string{"kind"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assettrack_cache_hits_total",
			Help: "Read-cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assettrack_cache_misses_total",
			Help: "Read-cache misses",
		}),
		CacheInvalidations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assettrack_cache_invalidations_total",
			Help: "Prefix invalidations issued after commits",
		}),
		CacheBackendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assettrack_cache_backend_errors_total",
			Help: "Cache backend failures degraded to misses",
		}),
		StoreRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assettrack_store_retries_total",
			Help: "Transient store failures retried",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assettrack_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveMutation increments the mutation counter for an operation, guarding
// against a nil receiver so services can run without metrics in tests.
func (m *Metrics) ObserveMutation(operation string) {
	if m == nil {
		return
	}
	m.MutationsApplied.WithLabelValues(operation).Inc()
}

// ObserveHistoryEvents adds n written events.
func (m *Metrics) ObserveHistoryEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.HistoryEventsWritten.Add(float64(n))
}

// ObserveMove increments the move counter for a kind.
func (m *Metrics) ObserveMove(kind string) {
	if m == nil {
		return
	}
	m.MovesRecorded.WithLabelValues(kind).Inc()
}

// ObserveCacheHit records a cache hit.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// ObserveCacheMiss records a cache miss.
func (m *Metrics) ObserveCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// ObserveCacheInvalidation records a prefix invalidation.
func (m *Metrics) ObserveCacheInvalidation() {
	if m == nil {
		return
	}
	m.CacheInvalidations.Inc()
}

// ObserveCacheError records a backend failure degraded to a miss.
func (m *Metrics) ObserveCacheError() {
	if m == nil {
		return
	}
	m.CacheBackendErrors.Inc()
}

// ObserveStoreRetry records a transaction attempt retried after a transient
// store failure.
func (m *Metrics) ObserveStoreRetry() {
	if m == nil {
		return
	}
	m.StoreRetries.Inc()
}

// Package metrics holds the Prometheus instrumentation for bucketcache.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Listing sources.
const (
	SourceCache  = "cache"
	SourceRemote = "remote"
)

// Index operations.
const (
	OpGet    = "get"
	OpAdd    = "add"
	OpRemove = "remove"
	OpFlush  = "flush"
)

// Metrics holds all Prometheus metrics for the caching layer.
type Metrics struct {
	ListingsTotal     *prometheus.CounterVec   // bucketcache_listings_total{source}
	CacheMissesTotal  prometheus.Counter       // bucketcache_cache_misses_total
	IndexOpsTotal     *prometheus.CounterVec   // bucketcache_index_operations_total{op}
	CacheDegraded     *prometheus.CounterVec   // bucketcache_cache_degraded_total{op}
	SwapConflicts     prometheus.Counter       // bucketcache_index_swap_conflicts_total
	HydratedItems     prometheus.Counter       // bucketcache_hydrated_items_total
	HydrationFailures prometheus.Counter       // bucketcache_hydration_failures_total
	RemoteDuration    *prometheus.HistogramVec // bucketcache_remote_request_duration_seconds{operation}
}

// New registers the metrics with registry. A nil registry uses
// prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		ListingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bucketcache_listings_total",
			Help: "Listings served, by source",
		}, []string{"source"}),

		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bucketcache_cache_misses_total",
			Help: "Prefix listings that found nothing in the key index and fell through to the remote store",
		}),

		IndexOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bucketcache_index_operations_total",
			Help: "Key index operations, by operation",
		}, []string{"op"}),

		CacheDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bucketcache_cache_degraded_total",
			Help: "Cache backend or decode failures absorbed by the key index",
		}, []string{"op"}),

		SwapConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "bucketcache_index_swap_conflicts_total",
			Help: "Compare-and-swap conflicts while writing a key index",
		}),

		HydratedItems: factory.NewCounter(prometheus.CounterOpts{
			Name: "bucketcache_hydrated_items_total",
			Help: "Objects whose metadata was fetched during hydration",
		}),

		HydrationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bucketcache_hydration_failures_total",
			Help: "Listings that failed because a metadata fetch failed",
		}),

		RemoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bucketcache_remote_request_duration_seconds",
			Help:    "Remote object store call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// RecordListing counts a listing served from source.
func (m *Metrics) RecordListing(source string) {
	if m == nil {
		return
	}
	m.ListingsTotal.WithLabelValues(source).Inc()
}

// RecordCacheMiss counts a prefix listing that fell through to the remote store.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// RecordIndexOp counts a key index operation.
func (m *Metrics) RecordIndexOp(op string) {
	if m == nil {
		return
	}
	m.IndexOpsTotal.WithLabelValues(op).Inc()
}

// RecordDegraded counts an absorbed cache failure.
func (m *Metrics) RecordDegraded(op string) {
	if m == nil {
		return
	}
	m.CacheDegraded.WithLabelValues(op).Inc()
}

// RecordSwapConflict counts a lost compare-and-swap race.
func (m *Metrics) RecordSwapConflict() {
	if m == nil {
		return
	}
	m.SwapConflicts.Inc()
}

// RecordHydrated counts n hydrated objects.
func (m *Metrics) RecordHydrated(n int) {
	if m == nil {
		return
	}
	m.HydratedItems.Add(float64(n))
}

// RecordHydrationFailure counts a failed hydration.
func (m *Metrics) RecordHydrationFailure() {
	if m == nil {
		return
	}
	m.HydrationFailures.Inc()
}

// ObserveRemote records the duration of a remote call that started at start.
func (m *Metrics) ObserveRemote(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.RemoteDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

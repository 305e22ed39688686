// Package metrics exposes Prometheus instrumentation for the aggregation
// pipeline: per-provider fetch counts and latency, duplicates removed by the
// merge engine, cache effectiveness and venue-snapshot refresh spawns.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the pipeline records into. Construct one per
// process with New and share it by injection; there is no package-level
// default registry.
type Metrics struct {
	registry *prometheus.Registry

	EventsFetched     *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	ProviderLatency   *prometheus.HistogramVec
	DuplicatesRemoved *prometheus.CounterVec
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	RefreshSpawns     prometheus.Counter
	ExpansionAttempts *prometheus.CounterVec
}

// New creates and registers all pipeline collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_events_fetched_total",
			Help: "Events returned by each provider before merge.",
		}, []string{"provider"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_provider_errors_total",
			Help: "Failed provider invocations.",
		}, []string{"provider"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "localevents_provider_latency_seconds",
			Help:    "Wall-clock latency of each provider invocation.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider"}),
		DuplicatesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_duplicates_removed_total",
			Help: "Cross-provider duplicates discarded by the merge engine.",
		}, []string{"provider"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_cache_hits_total",
			Help: "Short-TTL response cache hits.",
		}, []string{"provider"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_cache_misses_total",
			Help: "Short-TTL response cache misses.",
		}, []string{"provider"}),
		RefreshSpawns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "localevents_venue_refresh_spawns_total",
			Help: "Background venue snapshot refreshes launched.",
		}),
		ExpansionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "localevents_aggregator_expansions_total",
			Help: "Aggregator hub expansion attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.EventsFetched, m.ProviderErrors, m.ProviderLatency,
		m.DuplicatesRemoved, m.CacheHits, m.CacheMisses,
		m.RefreshSpawns, m.ExpansionAttempts,
	)
	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

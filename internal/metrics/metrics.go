// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric the render/cache/GC pipeline reports, along
// with the registry they're registered against.
type Metrics struct {
	Registry *prometheus.Registry

	RenderJobsTotal     *prometheus.CounterVec
	RenderDuration      prometheus.Histogram
	CacheRequestsTotal  *prometheus.CounterVec
	GCRunsTotal         prometheus.Counter
	GCPurgedFilesTotal  prometheus.Counter
	GCPurgedBytesTotal  prometheus.Counter
	RateLimitRejections prometheus.Counter
}

// New creates a fresh registry and registers every metric against it,
// rather than piling onto prometheus's global default registry. That
// lets every package construct its own Metrics in tests without a
// duplicate-registration panic; in production the registry returned
// here is simply the one /metrics serves from.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RenderJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smugdancer_render_jobs_total",
				Help: "Total number of encoder subprocess invocations, by result.",
			},
			[]string{"result"}, // ok, error
		),
		RenderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "smugdancer_render_duration_seconds",
				Help:    "Duration of a single encoder subprocess invocation.",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smugdancer_cache_requests_total",
				Help: "Total cache requests, by outcome.",
			},
			[]string{"outcome"}, // hit, miss
		),
		GCRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "smugdancer_gc_runs_total",
				Help: "Total number of garbage collection passes that reached the purge step (cache at or over its limit).",
			},
		),
		GCPurgedFilesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "smugdancer_gc_purged_files_total",
				Help: "Total number of cache files removed by garbage collection.",
			},
		),
		GCPurgedBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "smugdancer_gc_purged_bytes_total",
				Help: "Total bytes reclaimed by garbage collection.",
			},
		),
		RateLimitRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "smugdancer_rate_limit_rejections_total",
				Help: "Total requests rejected by the per-IP request gate.",
			},
		),
	}
}

package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drawrag_catalog_cache_hits_total",
		Help: "Total number of catalog cache hits",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "drawrag_catalog_cache_misses_total",
		Help: "Total number of catalog cache misses",
	})

	loadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drawrag_catalog_loads_total",
		Help: "Total number of catalog load operations",
	}, []string{"source", "status"})

	loadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drawrag_catalog_load_duration_seconds",
		Help:    "Duration of catalog load operations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
	}, []string{"source"})

	definitionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drawrag_catalog_definitions",
		Help: "Number of definitions in the most recently loaded catalog",
	})
)

func init() {
	prometheus.MustRegister(
		cacheHitsTotal,
		cacheMissesTotal,
		loadsTotal,
		loadDuration,
		definitionsGauge,
	)
}

// RecordCacheHit records a catalog cache hit.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss records a catalog cache miss.
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// RecordLoad records a catalog load operation.
func RecordLoad(source, status string, durationSeconds float64) {
	loadsTotal.WithLabelValues(source, status).Inc()
	loadDuration.WithLabelValues(source).Observe(durationSeconds)
}

// SetDefinitionCount updates the loaded definition gauge.
func SetDefinitionCount(n int) {
	definitionsGauge.Set(float64(n))
}

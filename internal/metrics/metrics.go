// Package metrics holds the prometheus collectors for the index subsystem
// and the HTTP middleware recording per-request duration and counts.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	writeQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stayindex",
			Name:      "write_queue_depth",
			Help:      "Number of operations waiting in the write queue",
		},
	)

	writeOpDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stayindex",
			Name:      "write_op_duration_seconds",
			Help:      "Duration of serialized write operations",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	writeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayindex",
			Name:      "write_ops_total",
			Help:      "Total serialized write operations by outcome",
		},
		[]string{"outcome"},
	)

	searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stayindex",
			Name:      "search_duration_seconds",
			Help:      "Duration of uncached index searches",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayindex",
			Name:      "search_cache_requests_total",
			Help:      "Search cache lookups by result",
		},
		[]string{"result"},
	)

	maintenanceRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayindex",
			Name:      "maintenance_runs_total",
			Help:      "Maintenance runs by outcome",
		},
		[]string{"outcome"},
	)
)

// RegisterIndexMetrics registers all index collectors. Call once from the
// composition root; no init() registration for these.
func RegisterIndexMetrics() {
	prometheus.MustRegister(
		writeQueueDepth,
		writeOpDuration,
		writeOpsTotal,
		searchDuration,
		cacheRequestsTotal,
		maintenanceRunsTotal,
	)
}

// SetWriteQueueDepth records the current queue backlog.
func SetWriteQueueDepth(n int) {
	writeQueueDepth.Set(float64(n))
}

// ObserveWriteOp records one serialized write operation.
func ObserveWriteOp(seconds float64, err error) {
	writeOpDuration.Observe(seconds)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	writeOpsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSearch records one uncached search.
func ObserveSearch(seconds float64) {
	searchDuration.Observe(seconds)
}

// CacheHit records a search served from the result cache.
func CacheHit() {
	cacheRequestsTotal.WithLabelValues("hit").Inc()
}

// CacheMiss records a search that had to run against the store.
func CacheMiss() {
	cacheRequestsTotal.WithLabelValues("miss").Inc()
}

// MaintenanceRun records one scheduler run.
func MaintenanceRun(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	maintenanceRunsTotal.WithLabelValues(outcome).Inc()
}

package obs

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}
	} else {
		sort.Float64s(buckets)
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	reg.MustRegister(m.ReqTotal, m.ReqDur, m.InFlight)
	return m
}

// SyncMetrics tracks catalog import outcomes.
type SyncMetrics struct {
	Runs     *prometheus.CounterVec
	Products prometheus.Gauge
	Duration prometheus.Histogram
}

// NewSyncMetrics registers and returns catalog sync collectors.
func NewSyncMetrics(namespace string, reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &SyncMetrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_sync_runs_total",
			Help:      "Catalog sync attempts partitioned by outcome.",
		}, []string{"outcome"}),
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products",
			Help:      "Number of products loaded by the last successful sync.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_sync_duration_ms",
			Help:      "Catalog sync duration in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}),
	}
	reg.MustRegister(m.Runs, m.Products, m.Duration)
	return m
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Package metrics defines the Prometheus collectors shared by the crawler,
// indexer and searcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	QueriesTotal   *prometheus.CounterVec
	QueryLatency   *prometheus.HistogramVec
	QueryHits      prometheus.Histogram
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	IndexSwaps     prometheus.Counter
	IndexTerms     prometheus.Gauge
	IndexPages     prometheus.Gauge
	PagesCrawled   *prometheus.CounterVec
	PagesIndexed   prometheus.Counter
	SnapshotWrites *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wq_queries_total",
				Help: "Queries by outcome (ok, zero_result, malformed, error).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wq_query_latency_seconds",
				Help:    "Query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		QueryHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wq_query_hits",
			Help:    "Matching pages per query.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wq_cache_hits_total",
			Help: "Query cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wq_cache_misses_total",
			Help: "Query cache misses.",
		}),
		IndexSwaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wq_index_swaps_total",
			Help: "Frozen indexes installed by the searcher.",
		}),
		IndexTerms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wq_index_terms",
			Help: "Distinct terms in the served index.",
		}),
		IndexPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wq_index_pages",
			Help: "Pages in the served index.",
		}),
		PagesCrawled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wq_pages_crawled_total",
				Help: "Pages fetched by the crawler, by status.",
			},
			[]string{"status"},
		),
		PagesIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wq_pages_indexed_total",
			Help: "Pages added to the building index.",
		}),
		SnapshotWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wq_snapshots_written_total",
				Help: "Index snapshot writes by status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryHits,
		m.CacheHits,
		m.CacheMisses,
		m.IndexSwaps,
		m.IndexTerms,
		m.IndexPages,
		m.PagesCrawled,
		m.PagesIndexed,
		m.SnapshotWrites,
	)
	return m
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RequestsInQueue     prometheus.Gauge
	CrawlRunsTotal      *prometheus.CounterVec
	CrawlDuration       prometheus.Histogram
	CrawlPagesTotal     *prometheus.CounterVec
	CrawlListingsTotal  *prometheus.CounterVec
)

// Init registers every metric with the default registry. Call it once.
func Init() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawl_queue_depth",
			Help: "Current number of crawl requests waiting in the queue.",
		},
	)

	CrawlRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_runs_total",
			Help: "Total number of crawl runs by outcome.",
		},
		[]string{"status", "error_type"}, // status: completed, no_data, failed, locked
	)

	CrawlDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawl_duration_seconds",
			Help:    "Duration of crawl runs.",
			Buckets: []float64{15, 30, 60, 120, 300, 600, 1200},
		},
	)

	CrawlPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_pages_total",
			Help: "Result pages visited, by outcome.",
		},
		[]string{"outcome"}, // visited, skipped
	)

	CrawlListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_listings_total",
			Help: "Listings handled, by outcome.",
		},
		[]string{"outcome"}, // stored
	)
}

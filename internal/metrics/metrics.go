// Package metrics exposes Prometheus collectors for the bookmark service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookmarksIngestedTotal     *prometheus.CounterVec
	scrapeFailuresTotal        prometheus.Counter
	enrichmentMessagesTotal    *prometheus.CounterVec
	enqueueFailuresTotal       prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		bookmarksIngestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookmarks_ingested_total",
				Help: "Total number of ingestion attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scrape_failures_total",
				Help: "Total number of metadata scrapes that degraded to the hostname fallback.",
			},
		)

		enrichmentMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_messages_total",
				Help: "Total number of enrichment queue messages processed, labeled by result.",
			},
			[]string{"result"},
		)

		enqueueFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "enrichment_enqueue_failures_total",
				Help: "Total number of enrichment jobs that could not be enqueued.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngestion increments the ingestion counter for the given outcome.
func ObserveIngestion(outcome string) {
	bookmarksIngestedTotal.WithLabelValues(outcome).Inc()
}

// ObserveScrapeFailure counts a scrape that fell back to hostname metadata.
func ObserveScrapeFailure() {
	scrapeFailuresTotal.Inc()
}

// ObserveEnrichmentMessage increments the consumer counter for the given result.
func ObserveEnrichmentMessage(result string) {
	enrichmentMessagesTotal.WithLabelValues(result).Inc()
}

// ObserveEnqueueFailure counts a dropped enrichment enqueue.
func ObserveEnqueueFailure() {
	enqueueFailuresTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sruPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vdcrawler_sru_pages_total",
			Help: "Total number of SRU result pages fetched.",
		},
	)

	documentsSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vdcrawler_documents_saved_total",
			Help: "Total number of documents written to a shard or staging file.",
		},
	)

	recordsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vdcrawler_records_dropped_total",
			Help: "Total number of records dropped during extraction, labeled by reason.",
		},
		[]string{"reason"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vdcrawler_http_requests_total",
			Help: "Total number of outbound HTTP requests, labeled by status code.",
		},
		[]string{"code"},
	)

	httpRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vdcrawler_http_retries_total",
			Help: "Total number of HTTP requests retried after a transient failure.",
		},
	)

	httpRequestDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vdcrawler_http_request_duration_seconds",
			Help:    "Histogram of outbound HTTP request latencies.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the fetched-pages counter.
func ObservePage() {
	sruPagesTotal.Inc()
}

// ObserveDocumentSaved increments the saved-documents counter.
func ObserveDocumentSaved() {
	documentsSavedTotal.Inc()
}

// ObserveRecordDropped increments the dropped-records counter for the reason.
func ObserveRecordDropped(reason string) {
	recordsDroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveHTTPRequest records one outbound request and its latency.
func ObserveHTTPRequest(code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRetry increments the retry counter.
func ObserveHTTPRetry() {
	httpRetriesTotal.Inc()
}

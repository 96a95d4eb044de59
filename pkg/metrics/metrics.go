// Package metrics exposes the Prometheus registry used by the Animals client.
// Metrics are defined next to the code that records them (request,
// pagination, batch, ratelimit) and registered via promauto; this package
// documents them and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer backing Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an http.Handler serving every registered metric.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/request):
//   - animals_requests_total{endpoint, status} (Counter): physical requests by endpoint and HTTP status
//   - animals_request_duration_seconds{endpoint} (Histogram): physical request duration
//   - animals_errors_total{class} (Counter): failed exchanges by class (client, server, network, unexpected)
//   - animals_retries_total{endpoint} (Counter): retries after a 5xx response
//   - animals_retry_exhausted_total{endpoint} (Counter): logical calls that used every attempt
//
// Pagination Metrics (pkg/pagination):
//   - animals_pages_fetched_total{endpoint} (Counter): pages decoded and folded into results
//
// Batch Metrics (pkg/batch):
//   - animals_chunks_submitted_total{endpoint} (Counter): chunks accepted by the server
//   - animals_records_submitted_total{endpoint} (Counter): records accepted by the server
//
// Pacing Metrics (pkg/ratelimit):
//   - animals_pacer_waits_total (Counter): requests that passed the pacer
//   - animals_pacer_throttles_total (Counter): requests delayed by the pacer
//   - animals_pacer_wait_seconds (Histogram): time spent waiting for a token
//
// Example Prometheus Queries:
//
//   # Retry ratio per endpoint
//   sum by (endpoint) (rate(animals_retries_total[5m])) /
//   sum by (endpoint) (rate(animals_requests_total[5m]))
//
//   # Server error rate
//   rate(animals_errors_total{class="server"}[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(animals_request_duration_seconds_bucket[5m]))

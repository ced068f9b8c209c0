// Package metrics is the reference for the catalog Prometheus metrics.
// All metrics are defined in their respective packages (cache, client,
// ratelimit, catalog) and registered with promauto; this package lists them
// and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all catalog metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler serves.
var Gatherer = prometheus.DefaultGatherer

// Names lists every metric defined by the catalog packages.
var Names = []string{
	// pkg/cache
	"clothify_cache_hits_total",
	"clothify_cache_misses_total",
	"clothify_cache_warms_total",
	"clothify_cache_fetches_total",
	"clothify_cache_entries",
	"clothify_cache_errors_total",

	// pkg/client
	"clothify_api_requests_total",
	"clothify_api_request_duration_seconds",
	"clothify_api_errors_total",
	"clothify_api_retries_total",
	"clothify_api_retry_backoff_seconds",
	"clothify_api_retry_exhausted_total",

	// pkg/ratelimit
	"clothify_api_budget_remaining",
	"clothify_prefetch_gated_total",

	// pkg/catalog
	"clothify_prefetch_hovers_total",
	"clothify_prefetch_commits_total",
}

// Handler serves the gathered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - clothify_cache_hits_total{cache, layer} (Counter): Fresh reads by layer (memory, redis)
//   - clothify_cache_misses_total{cache} (Counter): Lookups that needed an origin fetch
//   - clothify_cache_warms_total{cache, outcome} (Counter): Warm calls (fresh, inflight, started)
//   - clothify_cache_fetches_total{cache, result} (Counter): Origin fetches (success, error)
//   - clothify_cache_entries{cache} (Gauge): Resident entries
//   - clothify_cache_errors_total{operation} (Counter): Backing store errors
//
// Request Metrics (pkg/client):
//   - clothify_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - clothify_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - clothify_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - clothify_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - clothify_api_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - clothify_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Budget Metrics (pkg/ratelimit):
//   - clothify_api_budget_remaining (Gauge): Requests left in the rate limit window
//   - clothify_prefetch_gated_total (Counter): Prefetches suppressed by a low budget
//
// Prefetch Metrics (pkg/catalog):
//   - clothify_prefetch_hovers_total{outcome} (Counter): Hovers (started, cached, gated)
//   - clothify_prefetch_commits_total{warm} (Counter): Committed reads (hit, pending, miss)
//
// Proxy Metrics (cmd/catalog-proxy, not in Names):
//   - clothify_proxy_request_duration_seconds{handler, code, method} (Histogram): Proxy request duration
//
// Example Prometheus Queries:
//
//   # Prefetch hit rate on click
//   sum(rate(clothify_prefetch_commits_total{warm="hit"}[5m])) /
//   sum(rate(clothify_prefetch_commits_total[5m]))
//
//   # Wasted warms (started but never committed)
//   sum(rate(clothify_prefetch_hovers_total{outcome="started"}[5m])) -
//   sum(rate(clothify_prefetch_commits_total{warm="hit"}[5m]))
//
//   # Budget status
//   clothify_api_budget_remaining < 20
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(clothify_api_request_duration_seconds_bucket[5m]))

// Package metrics provides the centralized Prometheus metrics reference for
// the fan-out sidecar. All metrics are defined in their respective packages
// (fetcher, cache) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the sidecar.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Batch Metrics (pkg/fetcher):
//   - fanout_batches_total{status} (Counter): Batches by terminal status (completed, aborted)
//   - fanout_batch_size (Histogram): URLs per batch
//   - fanout_batch_duration_seconds (Histogram): Wall-clock batch duration
//
// Fetch Metrics (pkg/fetcher):
//   - fanout_fetch_requests_total{status} (Counter): Outbound fetches by result
//     (HTTP status code, cache_hit, invalid_url, network_error, read_error)
//   - fanout_fetch_duration_seconds (Histogram): Per-fetch duration
//   - fanout_fetch_errors_total{class} (Counter): Errors by class (network, client, server)
//
// Cache Metrics (pkg/cache):
//   - fanout_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - fanout_cache_misses_total (Counter): Cache misses
//   - fanout_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - fanout_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Fetch Error Rate
//   rate(fanout_fetch_errors_total[5m])
//
//   # Concurrency Win: batch duration vs. summed fetch durations
//   histogram_quantile(0.95, rate(fanout_batch_duration_seconds_bucket[5m]))
//
//   # Cache Hit Rate
//   sum(rate(fanout_cache_hits_total[5m])) /
//   (sum(rate(fanout_cache_hits_total[5m])) + sum(rate(fanout_cache_misses_total[5m])))

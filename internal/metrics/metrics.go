// Package metrics exposes Prometheus counters and histograms for the
// DNS query path and zone management API, registered against the
// default registry and served at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DNSQueries counts UDP queries by rcode.
	DNSQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "zoned_dns_queries_total", Help: "Total DNS queries answered"},
		[]string{"rcode"},
	)

	// DNSQueryDuration times decode+resolve+encode per query.
	DNSQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "zoned_dns_query_duration_seconds", Help: "DNS query handling latency", Buckets: prometheus.DefBuckets},
	)

	// HTTPRequests counts zone management API calls by route and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "zoned_http_requests_total", Help: "Total zone management API requests"},
		[]string{"method", "route", "status"},
	)

	// ReplicationAcks counts fan-out outcomes by action and result.
	ReplicationAcks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "zoned_replication_acks_total", Help: "Replication fan-out results"},
		[]string{"action", "result"},
	)

	// ActiveHolders gauges the number of zones currently activated in
	// the cache.
	ActiveHolders = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "zoned_active_holders", Help: "Number of activated zone holders"},
	)
)

func init() {
	prometheus.MustRegister(DNSQueries, DNSQueryDuration, HTTPRequests, ReplicationAcks, ActiveHolders)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

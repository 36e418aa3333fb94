package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesComputed = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "matches_computed_total", Help: "Match computations performed"})
	MatchesReturned = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "matches_returned_total", Help: "Candidate rides returned as matches"})

	SnapshotHits      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "snapshot_cache_hits_total", Help: "Snapshot refreshes served from a valid cache"})
	SnapshotMisses    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "snapshot_cache_misses_total", Help: "Snapshot refreshes that went to the network"})
	SnapshotFallbacks = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "snapshot_cache_fallbacks_total", Help: "Failed refreshes served from a stale snapshot"})

	GatewayCacheServes = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "gateway_cache_serves_total", Help: "Gateway responses served from the response cache"})
	GatewayNetFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "gateway_network_failures_total", Help: "Gateway upstream fetches that failed"})

	AuditPublished = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_partner", Name: "audit_events_published_total", Help: "Audit events published to the broker"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_partner", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_partner",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

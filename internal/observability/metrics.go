package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRunsTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "match_runs_total", Help: "Total matching engine runs"})
	MatchRunSeconds   = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_pooling", Name: "match_run_seconds", Help: "Matching run duration seconds"})
	RidesCreated      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "rides_created_total", Help: "Ride groups committed"})
	RequestsGrouped   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "requests_grouped_total", Help: "Requests flipped to matched"})
	MembersDropped    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "members_dropped_total", Help: "Members dropped at commit because they were cancelled after the snapshot"})
	RequestsCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "requests_cancelled_total", Help: "Requests cancelled"})
	GateWaitSeconds   = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_pooling", Name: "gate_wait_seconds", Help: "Time spent waiting on the matching exclusion scope"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_pooling", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_pooling",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

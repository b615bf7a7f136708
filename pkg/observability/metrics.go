// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the chatrelay server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of relay streams currently open.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// UpstreamRequestsTotal counts requests sent to the model server.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_upstream_requests_total",
			Help: "Upstream requests",
		},
		[]string{"model", "status"},
	)

	// UpstreamLatency records time until the upstream answered with headers.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_upstream_latency_seconds",
			Help:    "Upstream time to first byte",
			Buckets: LLMBuckets,
		},
		[]string{"model"},
	)

	// RelayFragmentsTotal counts content fragments forwarded to clients.
	RelayFragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_relay_fragments_total",
			Help: "Forwarded content fragments",
		},
		[]string{"model"},
	)

	// RelayMalformedFramesTotal counts upstream lines that failed to decode.
	RelayMalformedFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_relay_malformed_frames_total",
			Help: "Skipped malformed upstream frames",
		},
		[]string{"model"},
	)

	// AugmentLookupsTotal counts context lookups by backend and outcome.
	AugmentLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_augment_lookups_total",
			Help: "Context augmentation lookups",
		},
		[]string{"backend", "outcome"},
	)

	// CompletionsTotal counts non-streaming completions by completer and outcome.
	CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_completions_total",
			Help: "Completions generated",
		},
		[]string{"completer", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		UpstreamRequestsTotal,
		UpstreamLatency,
		RelayFragmentsTotal,
		RelayMalformedFramesTotal,
		AugmentLookupsTotal,
		CompletionsTotal,
	)
}

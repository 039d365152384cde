// Package metrics registers the prometheus collectors crmx exposes with
// --metrics-addr.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crmx"

// Gateway metrics
var (
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Backend requests by method, normalized path and status code",
		},
		[]string{"method", "path", "status_code"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Backend request latency distribution",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	EnvelopeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_envelope_failures_total",
			Help:      "Responses with HTTP 2xx but result=false",
		},
		[]string{"path"},
	)
)

// List controller metrics
var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_fetches_total",
			Help:      "Tab fetches by tab and outcome (applied, stale, error)",
		},
		[]string{"tab", "outcome"},
	)

	BulkActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_actions_total",
			Help:      "Bulk actions by action and outcome (done, skipped, cancelled, error)",
		},
		[]string{"action", "outcome"},
	)
)

// Chat metrics
var (
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_polls_total",
			Help:      "Chat poll ticks by outcome",
		},
		[]string{"outcome"},
	)

	MessagesMergedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_merged_total",
			Help:      "New messages merged into a thread from polls",
		},
	)
)

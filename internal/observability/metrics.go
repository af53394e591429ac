// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records latency of the heavier aggregate queries.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spilledin_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ConfessionsCreated counts confessions posted.
	ConfessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spilledin_confessions_created_total",
		Help: "Total number of confessions created",
	})

	// VotesCast counts vote requests by requested type and resulting state.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spilledin_votes_cast_total",
		Help: "Total number of votes cast",
	}, []string{"vote_type", "result"})

	// RecapGenerations counts monthly recap requests by outcome.
	RecapGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spilledin_recap_generations_total",
		Help: "Monthly recap requests by outcome",
	}, []string{"outcome"})

	// LLMRequestDuration records completion latency per attempt outcome.
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spilledin_llm_request_duration_seconds",
		Help:    "LLM completion request latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"model", "outcome"})

	// WebSocketConnectionsTotal is the gauge of open feed sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spilledin_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts realtime events delivered by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spilledin_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spilledin_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label cardinality is bounded: action names come from tools.Names and
// outcomes from the small fixed sets used below.
var (
	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "court_tool_calls_total",
			Help: "Agent action requests by action and outcome (applied, dropped, invalid, error).",
		},
		[]string{"action", "outcome"},
	)

	agentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "court_agent_calls_total",
			Help: "Agent generate calls by round and outcome (ok, error, timeout).",
		},
		[]string{"round", "outcome"},
	)

	agentLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "court_agent_call_duration_seconds",
			Help:    "Duration of agent generate calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"round"},
	)

	summaries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "court_summaries_total",
			Help: "Summarization runs by trigger (threshold, manual) and outcome (ok, fallback).",
		},
		[]string{"trigger", "outcome"},
	)

	reconciles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "court_header_reconciles_total",
			Help: "Header reconciliations by outcome (ok, missing, error).",
		},
		[]string{"outcome"},
	)

	turns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "court_turns_total",
			Help: "Inbound dialogue turns by outcome (answered, outage, ignored).",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(toolCalls, agentCalls, agentLat, summaries, reconciles, turns)
}

// Package metrics defines the prometheus collectors exported by the harness.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Iterations counts completed benchmark iterations by medium and
	// failure reason.
	Iterations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betocq_iterations_total",
			Help: "Completed benchmark iterations.",
		},
		[]string{"medium", "reason"},
	)

	// TransferredBytes counts payload bytes transferred across all
	// iterations, by medium.
	TransferredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betocq_transferred_bytes_total",
			Help: "Payload bytes transferred between devices.",
		},
		[]string{"medium"},
	)

	// AgentCalls counts device agent calls by device serial and outcome.
	AgentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betocq_agent_calls_total",
			Help: "Device agent calls.",
		},
		[]string{"serial", "outcome"},
	)

	// RunVerdicts counts finished runs by verdict.
	RunVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betocq_run_verdicts_total",
			Help: "Finished benchmark runs.",
		},
		[]string{"medium", "verdict"},
	)
)

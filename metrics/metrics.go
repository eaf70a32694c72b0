package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_forge_phase_duration_seconds",
			Help:    "Duration of pipeline phases by outcome",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~200s
		},
		[]string{"phase", "outcome"},
	)

	// QualityChecks counts quality-control results by where they came from:
	// collaborator, cached (budget exhausted) or fallback (budget exhausted, nothing cached).
	QualityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_forge_quality_checks_total",
			Help: "Quality-control results by source",
		},
		[]string{"source"},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_forge_runs_total",
			Help: "Pipeline executions by outcome",
		},
		[]string{"outcome"}, // completed, suspended, failed
	)

	CreditsDeducted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "content_forge_credits_deducted_total",
			Help: "Credits deducted for publish-ready generations",
		},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_forge_llm_calls_total",
			Help: "LLM calls by label and outcome",
		},
		[]string{"label", "outcome"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_forge_events_consumed_total",
			Help: "Generation events handled by the worker",
		},
		[]string{"type", "outcome"},
	)
)

// ObservePhase records the duration of a phase since start.
func ObservePhase(phase string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	PhaseDuration.WithLabelValues(phase, outcome).Observe(time.Since(start).Seconds())
}

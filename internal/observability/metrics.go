package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	StageTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_transitions_total",
			Help: "Total number of application stage transitions by operation and resulting stage",
		},
		[]string{"operation", "stage"},
	)
	ApplicationOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_application_outcomes_total",
			Help: "Total number of applications reaching a terminal status",
		},
		[]string{"status"},
	)
	FinalScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_final_score",
			Help:    "Distribution of weighted final scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	ExternalFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_external_fallbacks_total",
			Help: "Total number of external evaluator failures masked by a deterministic fallback",
		},
		[]string{"collaborator"},
	)
	ApplicationsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_applications_reset_total",
			Help: "Total number of incomplete applications deleted by job selection",
		},
	)
)

// Collectors lists the pipeline collectors for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		StageTransitionsTotal,
		ApplicationOutcomesTotal,
		FinalScoreHistogram,
		ExternalFallbacksTotal,
		ApplicationsDeletedTotal,
	}
}

// RecordTransition counts an application moving to stage.
func RecordTransition(operation string, stage int) {
	StageTransitionsTotal.WithLabelValues(operation, strconv.Itoa(stage)).Inc()
}

// RecordOutcome counts a terminal status.
func RecordOutcome(status string) {
	ApplicationOutcomesTotal.WithLabelValues(status).Inc()
}

// ObserveFinalScore records a weighted final score in [0,100].
func ObserveFinalScore(score int) {
	if score >= 0 && score <= 100 {
		FinalScoreHistogram.Observe(float64(score))
	}
}

// RecordFallback counts an external failure replaced by a fallback value.
func RecordFallback(collaborator string) {
	ExternalFallbacksTotal.WithLabelValues(collaborator).Inc()
}

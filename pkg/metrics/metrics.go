// Package metrics defines the Prometheus metrics exported by
// codevalidator: pipeline run counts and durations, candidate generation
// and scoring counters, cross-review activity, and correction-loop
// iteration counts.
//
// Metric naming follows Prometheus conventions:
//   - codevalidator_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// PipelineRunsTotal counts Layered Validation Pipeline runs by final
	// verdict.
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevalidator_pipeline_runs_total",
			Help: "Total number of validation pipeline runs by verdict.",
		},
		[]string{"verdict"},
	)

	// PipelineDurationSeconds is a histogram of full pipeline run duration.
	PipelineDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codevalidator_pipeline_duration_seconds",
			Help:    "Duration of a full validation pipeline run in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"verdict"},
	)

	// CandidatesGeneratedTotal counts candidates produced by the
	// Multi-Candidate Generator, by validation profile.
	CandidatesGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevalidator_candidates_generated_total",
			Help: "Total candidates generated by the multi-candidate engine.",
		},
		[]string{"profile"},
	)

	// CandidatesCriticalErrorTotal counts candidates with at least one
	// failed rule result of error severity or above.
	CandidatesCriticalErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevalidator_candidates_critical_error_total",
			Help: "Total candidates rejected for at least one critical rule failure.",
		},
		[]string{"profile"},
	)

	// BestCandidateScore is a histogram of the winning candidate's
	// composite score per selection.
	BestCandidateScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codevalidator_best_candidate_score",
			Help:    "Composite score of the selected winning candidate.",
			Buckets: []float64{0, 0.2, 0.4, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
		},
		[]string{"profile"},
	)

	// CrossReviewsTotal counts advisory reviewer invocations by outcome.
	CrossReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codevalidator_cross_reviews_total",
			Help: "Total cross-architecture review calls by outcome.",
		},
		[]string{"outcome"},
	)

	// CrossReviewDurationSeconds is a histogram of reviewer call duration.
	CrossReviewDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codevalidator_cross_review_duration_seconds",
			Help:    "Duration of a cross-architecture review call in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		},
	)

	// CorrectionIterationsTotal counts correction-loop iterations across
	// all runs.
	CorrectionIterationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codevalidator_correction_iterations_total",
			Help: "Total correction-loop iterations across all validation runs.",
		},
	)

	// CorrectionCount is a histogram of the number of correction
	// iterations a single run required before passing or giving up.
	CorrectionCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codevalidator_correction_count",
			Help:    "Number of correction iterations per validation run.",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)
)

// collectors bundles the collectors above for injection into a
// prometheus.Registerer, letting callers (including tests) avoid the
// global default registry.
func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		PipelineRunsTotal,
		PipelineDurationSeconds,
		CandidatesGeneratedTotal,
		CandidatesCriticalErrorTotal,
		BestCandidateScore,
		CrossReviewsTotal,
		CrossReviewDurationSeconds,
		CorrectionIterationsTotal,
		CorrectionCount,
	}
}

// Register attaches every codevalidator collector to reg. Call this once
// at startup with prometheus.DefaultRegisterer, or with a fresh registry
// in tests that want isolation.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordPipelineRun records one completed pipeline run's verdict and
// duration.
func RecordPipelineRun(verdict string, duration time.Duration) {
	PipelineRunsTotal.WithLabelValues(verdict).Inc()
	PipelineDurationSeconds.WithLabelValues(verdict).Observe(duration.Seconds())
}

// RecordCandidateGeneration records one generated candidate and, if it
// carries a critical rule failure, the critical-error counter too.
func RecordCandidateGeneration(profile string, hasCriticalError bool) {
	CandidatesGeneratedTotal.WithLabelValues(profile).Inc()
	if hasCriticalError {
		CandidatesCriticalErrorTotal.WithLabelValues(profile).Inc()
	}
}

// RecordSelection records the winning candidate's composite score for a
// selection round.
func RecordSelection(profile string, score float64) {
	BestCandidateScore.WithLabelValues(profile).Observe(score)
}

// RecordCrossReview records one advisory reviewer call.
func RecordCrossReview(outcome string, duration time.Duration) {
	CrossReviewsTotal.WithLabelValues(outcome).Inc()
	CrossReviewDurationSeconds.Observe(duration.Seconds())
}

// RecordCorrectionLoop records how many correction iterations one run
// required.
func RecordCorrectionLoop(iterations int) {
	CorrectionIterationsTotal.Add(float64(iterations))
	CorrectionCount.Observe(float64(iterations))
}

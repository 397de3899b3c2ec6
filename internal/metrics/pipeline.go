package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching pipeline Prometheus metrics.
var (
	MatchesServedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mentormatch",
			Name:      "matches_served_total",
			Help:      "Total number of match queries served",
		},
	)

	FeedbackAppendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mentormatch",
			Name:      "feedback_appended_total",
			Help:      "Total number of feedback records appended",
		},
	)

	TrainingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentormatch",
			Name:      "trainings_total",
			Help:      "Total number of predictor training runs",
		},
		[]string{"outcome"}, // "trained" / "insufficient_data" / "error"
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mentormatch",
			Name:      "training_duration_seconds",
			Help:      "Predictor training duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	ReportsGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mentormatch",
			Name:      "reports_generated_total",
			Help:      "Total number of performance reports generated",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers matching pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchesServedTotal)
	prometheus.MustRegister(FeedbackAppendedTotal)
	prometheus.MustRegister(TrainingsTotal)
	prometheus.MustRegister(TrainingDuration)
	prometheus.MustRegister(ReportsGeneratedTotal)
	pipelineMetricsRegistered = true
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	roundsScored    *prometheus.CounterVec
	eliminations    *prometheus.CounterVec
	predictFailures *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	ensembleEntropy *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		roundsScored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_rounds_scored_total",
				Help: "Total number of scored prediction rounds",
			},
			[]string{"model", "horizon"},
		),
		eliminations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_eliminations_total",
				Help: "Total number of model eliminations by phase",
			},
			[]string{"phase", "model"},
		),
		predictFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_prediction_failures_total",
				Help: "Total number of failed prediction calls",
			},
			[]string{"model"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ensembleEntropy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "arena_ensemble_weight_entropy",
				Help: "Shannon entropy of the current ensemble weights",
			},
			[]string{"horizon"},
		),
	}
}

// RecordRoundScored records one scored round for a model on a horizon.
func (r *Recorder) RecordRoundScored(modelID string, horizon string) {
	r.roundsScored.WithLabelValues(modelID, horizon).Inc()
}

// RecordElimination records a model elimination in a tournament phase.
func (r *Recorder) RecordElimination(phase string, modelID string) {
	r.eliminations.WithLabelValues(phase, modelID).Inc()
}

// RecordPredictionFailure records a failed prediction call.
func (r *Recorder) RecordPredictionFailure(modelID string) {
	r.predictFailures.WithLabelValues(modelID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordEnsembleEntropy records the weight entropy of the latest ensemble round.
func (r *Recorder) RecordEnsembleEntropy(horizon string, entropy float64) {
	r.ensembleEntropy.WithLabelValues(horizon).Set(entropy)
}

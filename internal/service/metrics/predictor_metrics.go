package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PredictorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arena",
			Subsystem: "predictors",
			Name:      "latency_seconds",
			Help:      "Latency of model-serving endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	PredictorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "predictors",
			Name:      "errors_total",
			Help:      "Errors by model-serving endpoint",
		},
		[]string{"model"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(PredictorLatency, PredictorErrors)
	})
}

package models

import "time"

// ModelPrediction is one model's answer for one round. A failed call is
// recorded (never retried by the core) and excluded from aggregates.
type ModelPrediction struct {
	Probability float64
	Failed      bool
	FailReason  string
}

// FailedPrediction records an unusable round for a model.
func FailedPrediction(reason string) ModelPrediction {
	return ModelPrediction{Probability: 0.5, Failed: true, FailReason: reason}
}

// ProbabilityFromOutcome converts the {outcome, confidence} form to a
// probability. Confidence is expected in [0.5, 1].
func ProbabilityFromOutcome(outcome bool, confidence float64) float64 {
	if outcome {
		return confidence
	}
	return 1 - confidence
}

// PredictionRequest carries the round context handed to a prediction source.
type PredictionRequest struct {
	Symbol   string
	Round    int
	SnapTime time.Time
}

// RoundScore is the scored outcome of one model on one round and horizon.
type RoundScore struct {
	Round        int
	Prediction   float64
	Label        bool
	LogLoss      float64
	Brier        float64
	ExtremeError bool // p > 0.8 while the label was false
	Failed       bool
}

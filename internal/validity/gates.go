package validity

import (
	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/stats"
)

// Failure reasons reported by the gates. A single evaluation can carry
// several at once.
const (
	ReasonLowCoverage       = "low_coverage"
	ReasonHighFailureRate   = "high_failure_rate"
	ReasonConstantPredictor = "constant_predictor"
	ReasonExtremeRate       = "extreme_prediction_rate"
	ReasonExtremeWrongRate  = "extreme_wrong_rate"
)

// Config holds the gate thresholds.
type Config struct {
	MinCoverage           float64
	MaxFailureRate        float64
	MaxPStdDev            float64
	ExtremeHigh           float64
	ExtremeLow            float64
	MaxExtremeRate        float64
	ConfidentHigh         float64
	ConfidentLow          float64
	MaxConfidentWrongRate float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinCoverage:           0.8,
		MaxFailureRate:        0.1,
		MaxPStdDev:            0.02,
		ExtremeHigh:           0.9,
		ExtremeLow:            0.1,
		MaxExtremeRate:        0.2,
		ConfidentHigh:         0.8,
		ConfidentLow:          0.2,
		MaxConfidentWrongRate: 0.2,
	}
}

// Metrics are the raw gate inputs computed for one model and horizon.
type Metrics struct {
	Coverage              float64
	FailureRate           float64
	UniqueP               int
	PStdDev               float64
	ExtremePredictionRate float64
	ConfidentWrongRate    float64
}

// Result flags one model/horizon prediction set as usable or not.
// It is data, never an error: the tournament continues past it.
type Result struct {
	Horizon        domrepo.Horizon
	IsValid        bool
	FailureReasons []string
	Metrics        Metrics
}

// ModelValidity aggregates gate results across horizons for one model.
type ModelValidity struct {
	ModelID        string
	ByHorizon      map[domrepo.Horizon]Result
	IsFullyInvalid bool
}

// HorizonSample is the per-horizon input to the gates.
type HorizonSample struct {
	Predictions  []float64
	Labels       []bool
	FailedRounds int
	TotalRounds  int
}

// Engine evaluates degenerate or insufficiently-covered prediction sets.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine { return &Engine{cfg: cfg} }

// Evaluate runs every gate over one model/horizon sample. All gates are
// checked so FailureReasons lists every failing one.
func (e *Engine) Evaluate(h domrepo.Horizon, s HorizonSample) Result {
	res := Result{Horizon: h, IsValid: true}
	if s.TotalRounds <= 0 {
		res.IsValid = false
		res.FailureReasons = append(res.FailureReasons, ReasonLowCoverage)
		return res
	}

	effective := len(s.Predictions)
	m := Metrics{
		Coverage:    float64(effective) / float64(s.TotalRounds),
		FailureRate: float64(s.FailedRounds) / float64(s.TotalRounds),
	}

	seen := make(map[float64]struct{}, effective)
	for _, p := range s.Predictions {
		seen[p] = struct{}{}
	}
	m.UniqueP = len(seen)
	m.PStdDev = stats.PopStdDev(s.Predictions)

	var extreme, confidentWrong int
	for i, p := range s.Predictions {
		if p >= e.cfg.ExtremeHigh || p <= e.cfg.ExtremeLow {
			extreme++
		}
		if i < len(s.Labels) {
			if (p > e.cfg.ConfidentHigh && !s.Labels[i]) || (p < e.cfg.ConfidentLow && s.Labels[i]) {
				confidentWrong++
			}
		}
	}
	if effective > 0 {
		m.ExtremePredictionRate = float64(extreme) / float64(effective)
		m.ConfidentWrongRate = float64(confidentWrong) / float64(effective)
	}
	res.Metrics = m

	if m.Coverage < e.cfg.MinCoverage {
		res.FailureReasons = append(res.FailureReasons, ReasonLowCoverage)
	}
	if m.FailureRate > e.cfg.MaxFailureRate {
		res.FailureReasons = append(res.FailureReasons, ReasonHighFailureRate)
	}
	if effective > 0 && m.UniqueP <= 2 && m.PStdDev <= e.cfg.MaxPStdDev {
		res.FailureReasons = append(res.FailureReasons, ReasonConstantPredictor)
	}
	if m.ExtremePredictionRate > e.cfg.MaxExtremeRate {
		res.FailureReasons = append(res.FailureReasons, ReasonExtremeRate)
	}
	if m.ConfidentWrongRate > e.cfg.MaxConfidentWrongRate {
		res.FailureReasons = append(res.FailureReasons, ReasonExtremeWrongRate)
	}

	res.IsValid = len(res.FailureReasons) == 0
	return res
}

// CheckModelValidity evaluates every horizon for one model and flags
// models that fail on all of them.
func (e *Engine) CheckModelValidity(modelID string, samples map[domrepo.Horizon]HorizonSample) ModelValidity {
	mv := ModelValidity{ModelID: modelID, ByHorizon: make(map[domrepo.Horizon]Result, len(samples))}
	allInvalid := len(samples) > 0
	for h, s := range samples {
		r := e.Evaluate(h, s)
		mv.ByHorizon[h] = r
		if r.IsValid {
			allInvalid = false
		}
	}
	mv.IsFullyInvalid = allInvalid
	return mv
}

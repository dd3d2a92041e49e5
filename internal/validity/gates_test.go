package validity

import (
	"testing"

	domrepo "ForecastArena/internal/domain/repository"
)

func hasReason(rs []string, want string) bool {
	for _, r := range rs {
		if r == want {
			return true
		}
	}
	return false
}

func TestConstantPredictorGate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	preds := make([]float64, 100)
	labels := make([]bool, 100)
	for i := range preds {
		preds[i] = 0.5
		labels[i] = i%2 == 0
	}
	res := e.Evaluate(domrepo.H1h, HorizonSample{Predictions: preds, Labels: labels, TotalRounds: 100})
	if res.IsValid {
		t.Fatalf("constant predictor must be invalid")
	}
	if res.Metrics.UniqueP != 1 || res.Metrics.PStdDev != 0 {
		t.Fatalf("metrics = %+v, want uniqueP=1 stddev=0", res.Metrics)
	}
	if !hasReason(res.FailureReasons, ReasonConstantPredictor) {
		t.Fatalf("missing constant_predictor reason: %v", res.FailureReasons)
	}
}

func TestCoverageGate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	res := e.Evaluate(domrepo.H1h, HorizonSample{
		Predictions: []float64{0.4, 0.6, 0.3},
		Labels:      []bool{true, false, true},
		TotalRounds: 10,
	})
	if res.IsValid || !hasReason(res.FailureReasons, ReasonLowCoverage) {
		t.Fatalf("coverage 0.3 must fail, got %+v", res)
	}
}

func TestFailureRateGate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	preds := make([]float64, 18)
	labels := make([]bool, 18)
	for i := range preds {
		preds[i] = 0.3 + float64(i)*0.02
		labels[i] = i%2 == 0
	}
	res := e.Evaluate(domrepo.H1h, HorizonSample{Predictions: preds, Labels: labels, FailedRounds: 3, TotalRounds: 20})
	if !hasReason(res.FailureReasons, ReasonHighFailureRate) {
		t.Fatalf("failure rate 0.15 must trip the gate, got %v", res.FailureReasons)
	}
}

func TestConfidentWrongGate(t *testing.T) {
	e := NewEngine(DefaultConfig())
	// confidently wrong on every round
	preds := []float64{0.85, 0.85, 0.15, 0.15, 0.4, 0.45, 0.5, 0.55, 0.6, 0.65}
	labels := []bool{false, false, true, true, true, false, true, false, true, false}
	res := e.Evaluate(domrepo.H4h, HorizonSample{Predictions: preds, Labels: labels, TotalRounds: 10})
	if !hasReason(res.FailureReasons, ReasonExtremeWrongRate) {
		t.Fatalf("confident-wrong rate 0.4 must trip the gate, got %v", res.FailureReasons)
	}
}

func TestMultipleSimultaneousReasons(t *testing.T) {
	e := NewEngine(DefaultConfig())
	// constant, extreme, and confidently wrong all at once
	preds := make([]float64, 10)
	labels := make([]bool, 10)
	for i := range preds {
		preds[i] = 0.95
		labels[i] = false
	}
	res := e.Evaluate(domrepo.H15m, HorizonSample{Predictions: preds, Labels: labels, TotalRounds: 10})
	if len(res.FailureReasons) < 3 {
		t.Fatalf("expected several reasons, got %v", res.FailureReasons)
	}
}

func TestCheckModelValidityFullyInvalid(t *testing.T) {
	e := NewEngine(DefaultConfig())
	constant := func() HorizonSample {
		preds := make([]float64, 20)
		labels := make([]bool, 20)
		for i := range preds {
			preds[i] = 0.5
		}
		return HorizonSample{Predictions: preds, Labels: labels, TotalRounds: 20}
	}
	mv := e.CheckModelValidity("m1", map[domrepo.Horizon]HorizonSample{
		domrepo.H15m: constant(),
		domrepo.H1h:  constant(),
	})
	if !mv.IsFullyInvalid {
		t.Fatalf("every horizon fails, model must be fully invalid")
	}

	ok := HorizonSample{
		Predictions: []float64{0.3, 0.7, 0.4, 0.6, 0.35, 0.65, 0.45, 0.55, 0.3, 0.7},
		Labels:      []bool{false, true, false, true, false, true, false, true, false, true},
		TotalRounds: 10,
	}
	mv = e.CheckModelValidity("m2", map[domrepo.Horizon]HorizonSample{
		domrepo.H15m: constant(),
		domrepo.H1h:  ok,
	})
	if mv.IsFullyInvalid {
		t.Fatalf("one valid horizon must clear the fully-invalid flag")
	}
	if !mv.ByHorizon[domrepo.H1h].IsValid {
		t.Fatalf("varied sample should pass: %+v", mv.ByHorizon[domrepo.H1h])
	}
}

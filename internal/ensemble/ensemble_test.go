package ensemble

import (
	"math"
	"testing"

	"ForecastArena/internal/domain/models"
)

func approx(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestWeightsFavorLowerLoss(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	hist := map[string][]float64{
		"sharp": {0.2, 0.2, 0.2, 0.2, 0.2, 0.2},
		"blunt": {0.9, 0.9, 0.9, 0.9, 0.9, 0.9},
	}
	w := c.WeightsAt(6, hist, nil, ModeWide)
	if w["sharp"] <= w["blunt"] {
		t.Fatalf("lower loss must carry more weight: %+v", w)
	}
	if sum := w["sharp"] + w["blunt"]; !approx(sum, 1, 1e-12) {
		t.Fatalf("weights must sum to 1, got %v", sum)
	}
	// exp(-0.2)/exp(-0.9) ratio survives normalization
	want := math.Exp(0.7)
	if got := w["sharp"] / w["blunt"]; !approx(got, want, 1e-9) {
		t.Fatalf("weight ratio = %v, want %v", got, want)
	}
}

func TestWeightsUseOnlyPastRounds(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	base := map[string][]float64{
		"a": {0.3, 0.3, 0.3},
		"b": {0.6, 0.6, 0.6},
	}
	before := c.WeightsAt(3, base, nil, ModeWide)

	// future rounds must not influence the weights at round 3
	poisoned := map[string][]float64{
		"a": {0.3, 0.3, 0.3, 99, 99},
		"b": {0.6, 0.6, 0.6, 0.0001, 0.0001},
	}
	after := c.WeightsAt(3, poisoned, nil, ModeWide)
	for id := range base {
		if !approx(before[id], after[id], 1e-12) {
			t.Fatalf("round-3 weight for %s changed with future data: %v vs %v", id, before[id], after[id])
		}
	}
}

func TestWeightsCoveragePenalty(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	hist := map[string][]float64{
		"full":  {0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
		"young": {0.5, 0.5, 0.5},
	}
	w := c.WeightsAt(6, hist, nil, ModeWide)
	// identical rolling mean, half the coverage
	if got := w["young"] / w["full"]; !approx(got, 0.5, 1e-9) {
		t.Fatalf("coverage ratio = %v, want 0.5", got)
	}
}

func TestWeightsUniformFallbackOnInfiniteLoss(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	inf := math.Inf(1)
	hist := map[string][]float64{
		"a": {inf, inf},
		"b": {inf},
		"c": {inf, inf, inf},
	}
	w := c.WeightsAt(3, hist, nil, ModeWide)
	for id, v := range w {
		if !approx(v, 1.0/3, 1e-12) {
			t.Fatalf("uniform fallback: weight[%s] = %v", id, v)
		}
	}
}

func TestWeightsStrictMembership(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	hist := map[string][]float64{
		"ok":  {0.4, 0.4},
		"bad": {0.4, 0.4},
	}
	w := c.WeightsAt(2, hist, map[string]bool{"ok": true}, ModeStrict)
	if _, found := w["bad"]; found {
		t.Fatalf("strict mode must drop invalid models")
	}
	if !approx(w["ok"], 1, 1e-12) {
		t.Fatalf("sole valid member must carry all weight, got %v", w["ok"])
	}
}

func TestWeightsEmptyHistoryExcluded(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	hist := map[string][]float64{
		"warm": {0.4},
		"cold": {},
	}
	w := c.WeightsAt(0, hist, nil, ModeWide)
	if len(w) != 0 {
		t.Fatalf("round 0 has no past data, got weights %+v", w)
	}
	w = c.WeightsAt(1, hist, nil, ModeWide)
	if _, found := w["cold"]; found {
		t.Fatalf("model without history must not be a member")
	}
}

func TestCombineExcludesFailedAndRenormalizes(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	preds := map[string]models.ModelPrediction{
		"a": {Probability: 0.8},
		"b": {Probability: 0.6},
		"c": models.FailedPrediction("timeout"),
	}
	rp := c.Combine(weights, preds)
	if rp.Contributors != 2 {
		t.Fatalf("contributors = %d, want 2", rp.Contributors)
	}
	// 0.5/0.8*0.8 + 0.3/0.8*0.6 = 0.725
	if rp.Scoreable {
		t.Fatalf("two contributors under minModels=3 must be unscoreable")
	}
	if rp.Probability != 0.5 {
		t.Fatalf("unscoreable rounds report 0.5, got %v", rp.Probability)
	}
	if !approx(rp.Weights["a"]+rp.Weights["b"], 1, 1e-12) {
		t.Fatalf("effective weights must renormalize: %+v", rp.Weights)
	}
}

func TestCombineScoreableRound(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	weights := map[string]float64{"a": 0.5, "b": 0.25, "c": 0.25}
	preds := map[string]models.ModelPrediction{
		"a": {Probability: 0.8},
		"b": {Probability: 0.6},
		"c": {Probability: 0.4},
	}
	rp := c.Combine(weights, preds)
	if !rp.Scoreable {
		t.Fatalf("three contributors must be scoreable")
	}
	want := 0.5*0.8 + 0.25*0.6 + 0.25*0.4
	if !approx(rp.Probability, want, 1e-12) {
		t.Fatalf("aggregate = %v, want %v", rp.Probability, want)
	}
}

func TestCombineEntropyUniform(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	weights := map[string]float64{"a": 0.25, "b": 0.25, "c": 0.25, "d": 0.25}
	preds := map[string]models.ModelPrediction{
		"a": {Probability: 0.5}, "b": {Probability: 0.5},
		"c": {Probability: 0.5}, "d": {Probability: 0.5},
	}
	rp := c.Combine(weights, preds)
	if !approx(rp.Entropy, math.Log(4), 1e-9) {
		t.Fatalf("uniform entropy = %v, want ln(4)", rp.Entropy)
	}
}

func TestCombineNoContributors(t *testing.T) {
	c := NewCombiner(DefaultConfig())
	rp := c.Combine(map[string]float64{"a": 1}, map[string]models.ModelPrediction{
		"a": models.FailedPrediction("down"),
	})
	if rp.Scoreable || rp.Probability != 0.5 || rp.Contributors != 0 {
		t.Fatalf("all-failed round: %+v", rp)
	}
}

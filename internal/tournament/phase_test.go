package tournament

import (
	"math"
	"testing"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/stats"
)

var testHorizons = []domrepo.Horizon{domrepo.H15m, domrepo.H1h, domrepo.H4h}

func newEngine() *Engine {
	return NewEngine(DefaultConfig(), testHorizons, nil, nil)
}

// addRounds scores a model with the given probability against
// alternating labels, producing a predictable loss series.
func addRounds(st *ModelState, h domrepo.Horizon, n int, p float64, labels func(i int) bool) {
	for i := 0; i < n; i++ {
		lbl := labels(i)
		st.AddScore(h, models.RoundScore{
			Round:        i,
			Prediction:   p,
			Label:        lbl,
			LogLoss:      stats.LogLoss(p, lbl),
			Brier:        stats.Brier(p, lbl),
			ExtremeError: p > 0.8 && !lbl,
		})
	}
}

func allTrue(int) bool  { return true }
func allFalse(int) bool { return false }

func goodModel(id string) *ModelState {
	st := NewModelState(id)
	for _, h := range testHorizons {
		addRounds(st, h, 12, 0.7, allTrue) // loss -ln(0.7) ~ 0.357
	}
	return st
}

func TestPhase0EliminatesHighLoss(t *testing.T) {
	e := newEngine()
	bad := NewModelState("bad")
	// -ln(0.3) ~ 1.20 > ln2*1.1 on all horizons
	for _, h := range testHorizons {
		addRounds(bad, h, 12, 0.3, allTrue)
	}
	states := map[string]*ModelState{"bad": bad, "good": goodModel("good")}
	res := e.RunPhase0(states)
	if !states["bad"].Eliminated {
		t.Fatalf("high-loss model must be eliminated")
	}
	if states["good"].Eliminated {
		t.Fatalf("good model must survive")
	}
	if len(res.Eliminated) != 1 || res.Eliminated[0] != "bad" {
		t.Fatalf("eliminated = %v", res.Eliminated)
	}
}

func TestPhase0EliminatesDegeneratePattern(t *testing.T) {
	e := newEngine()
	deg := NewModelState("deg")
	for _, h := range testHorizons {
		addRounds(deg, h, 12, 0.95, allTrue) // always right, but all-extreme
	}
	states := map[string]*ModelState{"deg": deg}
	res := e.RunPhase0(states)
	if !res.PerModel["deg"].Degenerate || !deg.Eliminated {
		t.Fatalf("all predictions > 0.9 on every horizon must eliminate")
	}
}

func TestPhase0EliminatesExtremeErrors(t *testing.T) {
	e := newEngine()
	st := NewModelState("overconfident")
	addRounds(st, domrepo.H15m, 10, 0.85, func(i int) bool { return i%3 != 0 }) // wrong ~1/3 of rounds
	addRounds(st, domrepo.H1h, 10, 0.6, allTrue)
	addRounds(st, domrepo.H4h, 10, 0.6, allTrue)
	states := map[string]*ModelState{"overconfident": st}
	e.RunPhase0(states)
	if !st.Eliminated {
		t.Fatalf("extreme-error rate above 0.2 on one horizon must eliminate")
	}
}

func TestPhase1PercentilesAndQualification(t *testing.T) {
	e := newEngine()
	states := map[string]*ModelState{}
	probs := map[string]float64{"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.55}
	for id, p := range probs {
		st := NewModelState(id)
		for _, h := range testHorizons {
			addRounds(st, h, 10, p, allTrue)
		}
		states[id] = st
	}
	res := e.RunPhase1(states)

	pct := res.Percentiles[domrepo.H1h]
	if pct["a"] != 100 {
		t.Fatalf("best model percentile = %v, want 100", pct["a"])
	}
	if pct["d"] != 0 {
		t.Fatalf("worst model percentile = %v, want 0", pct["d"])
	}
	if !res.Qualified["a"][domrepo.H1h] || !res.Qualified["c"][domrepo.H1h] {
		t.Fatalf("models above the cut must qualify: %+v", res.Qualified)
	}
	if res.Qualified["d"][domrepo.H1h] {
		t.Fatalf("percentile 0 must not qualify")
	}
	// qualification is per-horizon state
	if !states["a"].Qualified[domrepo.H15m] {
		t.Fatalf("qualification must be written back per horizon")
	}
}

func TestPhase1TiedModelsShareRank(t *testing.T) {
	e := newEngine()
	states := map[string]*ModelState{}
	for _, id := range []string{"x", "y"} {
		st := NewModelState(id)
		for _, h := range testHorizons {
			addRounds(st, h, 10, 0.7, allTrue)
		}
		states[id] = st
	}
	res := e.RunPhase1(states)
	pct := res.Percentiles[domrepo.H1h]
	if pct["x"] != pct["y"] {
		t.Fatalf("tied models must share a percentile: %v vs %v", pct["x"], pct["y"])
	}
}

func TestPhase2RegretElimination(t *testing.T) {
	e := newEngine()
	states := map[string]*ModelState{}
	// three steady models, one that collapses late on two horizons
	for _, id := range []string{"s1", "s2", "s3"} {
		states[id] = goodModel(id)
	}
	vol := NewModelState("volatile")
	for _, h := range testHorizons[:2] {
		addRounds(vol, h, 12, 0.7, allTrue)
		addRounds(vol, h, 12, 0.15, allTrue) // loss ~1.9 per round late
	}
	addRounds(vol, testHorizons[2], 12, 0.7, allTrue)
	states["volatile"] = vol

	res := e.RunPhase2(states)
	if !vol.Eliminated {
		t.Fatalf("regret above limit on two horizons must eliminate; stats=%+v", res.Stats["volatile"])
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if states[id].Eliminated {
			t.Fatalf("steady model %s wrongly eliminated", id)
		}
	}
}

func TestPhase2RegretMedianZero(t *testing.T) {
	e := newEngine()
	states := map[string]*ModelState{}
	// perfect predictions: zero loss everywhere, median worst window 0
	for _, id := range []string{"p1", "p2"} {
		st := NewModelState(id)
		for _, h := range testHorizons {
			addRounds(st, h, 12, 1.0, allTrue)
		}
		states[id] = st
	}
	res := e.RunPhase2(states)
	for id := range states {
		if states[id].Eliminated {
			t.Fatalf("zero-median cohort must not eliminate")
		}
		for _, h := range testHorizons {
			if r := res.Stats[id][h].Regret; r != 1 {
				t.Fatalf("regret with zero median = %v, want 1", r)
			}
		}
	}
}

func TestPhase3CompositeAndArenaSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArenaSize = 3
	cfg.QualifyPct = 0 // everyone qualifies, so the arena cap does the cutting
	e := NewEngine(cfg, testHorizons, nil, nil)
	states := map[string]*ModelState{}
	ps := []float64{0.9, 0.85, 0.8, 0.75, 0.7}
	for i, p := range ps {
		id := string(rune('a' + i))
		st := NewModelState(id)
		for _, h := range testHorizons {
			addRounds(st, h, 12, p, allTrue)
		}
		states[id] = st
	}
	p1 := e.RunPhase1(states)
	p2 := e.RunPhase2(states)
	res := e.RunPhase3(states, p1, p2)

	rows := res.Rankings[domrepo.H1h]
	if len(rows) != 3 {
		t.Fatalf("arena size 3, got %d rows", len(rows))
	}
	if rows[0].ModelID != "a" {
		t.Fatalf("lowest loss must rank first, got %s", rows[0].ModelID)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Composite > rows[i-1].Composite {
			t.Fatalf("rows not sorted descending")
		}
	}
	if len(res.Global) == 0 || res.Global[0].ModelID != "a" {
		t.Fatalf("global ranking must lead with the best model: %+v", res.Global)
	}
}

func TestPhase3DegenerateRange(t *testing.T) {
	e := newEngine()
	states := map[string]*ModelState{}
	for _, id := range []string{"x", "y"} {
		st := NewModelState(id)
		for _, h := range testHorizons {
			addRounds(st, h, 12, 0.7, allTrue)
		}
		states[id] = st
	}
	p1 := e.RunPhase1(states)
	p2 := e.RunPhase2(states)
	res := e.RunPhase3(states, p1, p2)
	for _, row := range res.Rankings[domrepo.H1h] {
		if row.LogLossScore != 0.5 || row.BestWindowScore != 0.5 || row.StabilityScore != 0.5 {
			t.Fatalf("identical metrics must normalize to 0.5, got %+v", row)
		}
	}
}

func TestPhase3EmptyHorizonYieldsEmptyRanking(t *testing.T) {
	e := newEngine()
	st := NewModelState("only")
	addRounds(st, domrepo.H15m, 12, 0.7, allTrue)
	// nothing on H1h / H4h
	states := map[string]*ModelState{"only": st}
	p1 := e.RunPhase1(states)
	p2 := e.RunPhase2(states)
	res := e.RunPhase3(states, p1, p2)
	if len(res.Rankings[domrepo.H1h]) != 0 {
		t.Fatalf("horizon without data must yield an empty ranking")
	}
	if len(res.Rankings[domrepo.H15m]) != 1 {
		t.Fatalf("populated horizon must still rank")
	}
}

func TestEliminatedModelsRetainHistory(t *testing.T) {
	e := newEngine()
	bad := NewModelState("bad")
	for _, h := range testHorizons {
		addRounds(bad, h, 12, 0.1, allTrue)
	}
	states := map[string]*ModelState{"bad": bad, "good": goodModel("good")}
	e.RunPhase0(states)
	if got := len(states["bad"].Scores[domrepo.H1h]); got != 12 {
		t.Fatalf("eliminated model lost history: %d rounds", got)
	}
}

func TestLookbackRatioInvariant(t *testing.T) {
	if err := domrepo.ValidateHorizonConfigs(); err != nil {
		t.Fatalf("horizon configs invalid: %v", err)
	}
	for _, h := range domrepo.AllHorizons() {
		cfg, err := domrepo.ConfigFor(h)
		if err != nil {
			t.Fatalf("config for %s: %v", h, err)
		}
		if cfg.LookbackBars != 8*cfg.HorizonBars {
			t.Fatalf("%s: lookback %d != 8x%d", h, cfg.LookbackBars, cfg.HorizonBars)
		}
	}
}

func TestMeanLogLossNaNWithoutRounds(t *testing.T) {
	st := NewModelState("empty")
	if ml := st.MeanLogLoss(domrepo.H1h); !math.IsNaN(ml) {
		t.Fatalf("expected NaN for no rounds, got %v", ml)
	}
}

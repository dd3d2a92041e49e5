package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/ensemble"
	cachesvc "ForecastArena/internal/service/cache"
	"ForecastArena/internal/tournament"
	pkgcache "ForecastArena/pkg/cache"
)

func reportFixture() *BenchmarkResult {
	a := tournament.NewModelState("a")
	b := tournament.NewModelState("b")
	for i := 0; i < 4; i++ {
		a.AddScore(domrepo.H1h, models.RoundScore{Round: i, Prediction: 0.8, Label: true, LogLoss: 0.223})
		b.AddScore(domrepo.H1h, models.RoundScore{Round: i, Prediction: 0.6, Label: true, LogLoss: 0.511})
	}
	b.Eliminated = true
	b.EliminatedPhase = "phase2"

	rep := &tournament.Report{
		BenchmarkID: "bench-test-1",
		Symbol:      "BTCUSDT",
		Rounds:      4,
		Phase0: tournament.Phase0Result{
			Survivors:  []string{"a", "b"},
			Eliminated: []string{"junk"},
		},
		Phase1: tournament.Phase1Result{
			Percentiles: map[domrepo.Horizon]map[string]float64{
				domrepo.H1h: {"a": 100, "b": 0},
			},
			Qualified: map[string]map[domrepo.Horizon]bool{
				"a": {domrepo.H1h: true, domrepo.H4h: true},
				"b": {domrepo.H1h: false},
			},
		},
		Phase2: tournament.Phase2Result{
			Survivors:  []string{"a"},
			Eliminated: []string{"b"},
		},
		Phase3: tournament.Phase3Result{
			Rankings: map[domrepo.Horizon][]tournament.RankedModel{
				domrepo.H1h: {
					{ModelID: "a", Composite: 0.91},
					{ModelID: "b", Composite: 0.42},
				},
			},
		},
		Models: map[string]*tournament.ModelState{"a": a, "b": b},
	}
	return &BenchmarkResult{
		Report: rep,
		Ensemble: map[domrepo.Horizon][]EnsembleRound{
			domrepo.H1h: {
				{Round: 0, Label: true, Prediction: ensemble.RoundPrediction{Probability: 0.5}, LogLoss: math.NaN()},
				{Round: 1, Label: true, Prediction: ensemble.RoundPrediction{Probability: 0.7, Scoreable: true, Contributors: 3}, LogLoss: 0.357},
			},
		},
		EnsembleStrict: map[domrepo.Horizon][]EnsembleRound{
			domrepo.H1h: {
				{Round: 0, Label: true, Prediction: ensemble.RoundPrediction{Probability: 0.5}, LogLoss: math.NaN()},
				{Round: 1, Label: true, Prediction: ensemble.RoundPrediction{Probability: 0.78, Scoreable: true, Contributors: 2}, LogLoss: 0.248},
			},
		},
	}
}

func newReportUC() *ReportUseCase {
	c := cachesvc.NewServiceCache(pkgcache.NewMemoryCache())
	return NewReportUseCase(c, time.Minute)
}

func TestLeaderboardAssemblesRows(t *testing.T) {
	uc := newReportUC()
	uc.SetLatest(reportFixture())

	rows, err := uc.Leaderboard(context.Background(), domrepo.H1h, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ModelID != "a" || rows[0].Rank != 1 {
		t.Fatalf("top row = %+v, want model a at rank 1", rows[0])
	}
	if rows[0].MeanLogLoss == nil || math.Abs(*rows[0].MeanLogLoss-0.223) > 1e-9 {
		t.Fatalf("mean log-loss missing or wrong: %+v", rows[0].MeanLogLoss)
	}
	if rows[0].Percentile == nil || *rows[0].Percentile != 100 {
		t.Fatalf("percentile missing or wrong: %+v", rows[0].Percentile)
	}
}

func TestLeaderboardServesCachedRows(t *testing.T) {
	uc := newReportUC()
	res := reportFixture()
	uc.SetLatest(res)

	first, err := uc.Leaderboard(context.Background(), domrepo.H1h, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	// mutate the ranking under the same benchmark id; the cache must win
	res.Report.Phase3.Rankings[domrepo.H1h] = nil
	second, err := uc.Leaderboard(context.Background(), domrepo.H1h, 0)
	if err != nil {
		t.Fatalf("cached leaderboard: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached rows = %d, want %d", len(second), len(first))
	}
}

func TestLeaderboardClipsToLimit(t *testing.T) {
	uc := newReportUC()
	uc.SetLatest(reportFixture())

	rows, err := uc.Leaderboard(context.Background(), domrepo.H1h, 1)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 1 || rows[0].ModelID != "a" {
		t.Fatalf("clipped rows = %+v, want only model a", rows)
	}
}

func TestLeaderboardWithoutRun(t *testing.T) {
	uc := newReportUC()
	if _, err := uc.Leaderboard(context.Background(), domrepo.H1h, 0); err == nil {
		t.Fatalf("expected error before any run completes")
	}
}

func TestEnsembleSeriesRoundFilter(t *testing.T) {
	uc := newReportUC()
	uc.SetLatest(reportFixture())

	all, err := uc.EnsembleSeries(domrepo.H1h, -1, false)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("series = %d points, want 2", len(all))
	}
	if all[0].LogLoss != 0 {
		t.Fatalf("unscoreable round should omit log-loss, got %v", all[0].LogLoss)
	}

	one, err := uc.EnsembleSeries(domrepo.H1h, 1, false)
	if err != nil {
		t.Fatalf("single round: %v", err)
	}
	if len(one) != 1 || one[0].Contributors != 3 {
		t.Fatalf("round 1 = %+v", one)
	}

	if _, err := uc.EnsembleSeries(domrepo.H1h, 99, false); err == nil {
		t.Fatalf("expected error for a missing round")
	}
}

func TestEnsembleSeriesStrictMembership(t *testing.T) {
	uc := newReportUC()
	uc.SetLatest(reportFixture())

	strict, err := uc.EnsembleSeries(domrepo.H1h, 1, true)
	if err != nil {
		t.Fatalf("strict series: %v", err)
	}
	if len(strict) != 1 || strict[0].Contributors != 2 {
		t.Fatalf("strict round 1 = %+v, want 2 contributors", strict)
	}
	wide, err := uc.EnsembleSeries(domrepo.H1h, 1, false)
	if err != nil {
		t.Fatalf("wide series: %v", err)
	}
	if wide[0].Contributors != 3 {
		t.Fatalf("wide round 1 = %+v, want 3 contributors", wide)
	}
}

func TestModelsIncludeEliminated(t *testing.T) {
	uc := newReportUC()
	uc.SetLatest(reportFixture())

	ms, err := uc.Models()
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var sawB bool
	for _, m := range ms {
		if m.ModelID == "b" {
			sawB = true
			if !m.Eliminated || m.EliminatedPhase != "phase2" {
				t.Fatalf("model b = %+v, want eliminated in phase2", m)
			}
			if m.RoundsByHorizon["1h"] != 4 {
				t.Fatalf("model b rounds = %d, want 4", m.RoundsByHorizon["1h"])
			}
		}
	}
	if !sawB {
		t.Fatalf("eliminated model missing from summary")
	}
}

func TestPhasesSummary(t *testing.T) {
	uc := newReportUC()
	uc.SetLatest(reportFixture())

	ps, err := uc.Phases()
	if err != nil {
		t.Fatalf("phases: %v", err)
	}
	if len(ps.Phase0Eliminated) != 1 || ps.Phase0Eliminated[0] != "junk" {
		t.Fatalf("phase0 eliminated = %v", ps.Phase0Eliminated)
	}
	if got := ps.QualifiedByModel["a"]; len(got) != 2 || got[0] != "1h" || got[1] != "4h" {
		t.Fatalf("model a qualified horizons = %v, want [1h 4h]", got)
	}
	if _, ok := ps.QualifiedByModel["b"]; ok {
		t.Fatalf("model b qualified on no horizon, should be absent")
	}
	if len(ps.Phase2Eliminated) != 1 || ps.Phase2Eliminated[0] != "b" {
		t.Fatalf("phase2 eliminated = %v", ps.Phase2Eliminated)
	}
}

func TestValidityUnknownModel(t *testing.T) {
	uc := newReportUC()
	uc.SetLatest(reportFixture())
	if _, err := uc.Validity("nope"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}

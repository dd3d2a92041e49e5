package usecase

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	domservice "ForecastArena/internal/domain/service"
	"ForecastArena/internal/ensemble"
	"ForecastArena/internal/groundtruth"
	"ForecastArena/internal/tournament"
	"ForecastArena/internal/validity"
)

// flatCandles serves a constant-price series: every lookback extreme is
// matched but never crossed in the forward window, so every label
// resolves to true with zero drawdown.
type flatCandles struct {
	price float64
	empty bool
}

func (f *flatCandles) GetCandles(_ context.Context, _ string, from, to time.Time, h domrepo.Horizon) ([]models.Candle, error) {
	if f.empty {
		return nil, nil
	}
	cfg, err := domrepo.ConfigFor(h)
	if err != nil {
		return nil, err
	}
	var out []models.Candle
	for t := from; !t.After(to); t = t.Add(cfg.BarSize) {
		out = append(out, models.Candle{
			Bucket: t, Open: f.price, High: f.price, Low: f.price, Close: f.price,
		})
	}
	return out, nil
}

func (f *flatCandles) GetLatestNCandles(_ context.Context, _ string, n int, _ domrepo.Horizon) ([]models.Candle, error) {
	return nil, fmt.Errorf("not used")
}

type fixedSource struct {
	id     string
	prob   float64
	fail   bool
	jitter bool // vary predictions so the constant-predictor gate stays quiet
}

func (s *fixedSource) ModelID() string { return s.id }

func (s *fixedSource) Predict(_ context.Context, _ domrepo.ContractKey, req models.PredictionRequest) (models.ModelPrediction, error) {
	if s.fail {
		return models.ModelPrediction{}, fmt.Errorf("endpoint down")
	}
	p := s.prob
	if s.jitter {
		p += []float64{-0.05, 0.05, 0, 0.1}[req.Round%4]
	}
	return models.ModelPrediction{Probability: p}, nil
}

type memAudit struct {
	recs []*models.AuditRecord
}

func (m *memAudit) Append(_ context.Context, rec *models.AuditRecord) error {
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memAudit) AppendBatch(_ context.Context, recs []*models.AuditRecord) error {
	m.recs = append(m.recs, recs...)
	return nil
}

func (m *memAudit) Close() error { return nil }

func asSources(fs []*fixedSource) []domservice.PredictionSource {
	out := make([]domservice.PredictionSource, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}

func snapSchedule(n int) []time.Time {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * 2 * time.Hour)
	}
	return out
}

func newRunner(candles domrepo.CandleProvider, audit domrepo.AuditSink) *BenchmarkRunner {
	return NewBenchmarkRunner(
		candles, nil, audit,
		tournament.NewEngine(tournament.DefaultConfig(), []domrepo.Horizon{domrepo.H1h}, nil, nil),
		validity.NewEngine(validity.DefaultConfig()),
		ensemble.NewCombiner(ensemble.DefaultConfig()),
		nil, nil,
	)
}

func TestBenchmarkRunScoresEveryRound(t *testing.T) {
	audit := &memAudit{}
	r := newRunner(&flatCandles{price: 100}, audit)
	sources := []*fixedSource{
		{id: "sharp", prob: 0.8},
		{id: "mid", prob: 0.7},
		{id: "blunt", prob: 0.55},
		{id: "flaky", fail: true},
	}
	params := BenchmarkParams{
		BenchmarkID: "bench-1",
		Symbol:      "BTCUSDT",
		Horizons:    []domrepo.Horizon{domrepo.H1h},
		SnapTimes:   snapSchedule(10),
	}
	res, err := r.Run(context.Background(), params, asSources(sources))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Clock.Round != 9 {
		t.Fatalf("clock round = %d, want 9", res.Clock.Round)
	}
	if res.Skipped[domrepo.H1h] != 0 {
		t.Fatalf("no rounds should be skipped, got %d", res.Skipped[domrepo.H1h])
	}

	st := res.Report.Models["sharp"]
	if got := len(st.Scores[domrepo.H1h]); got != 10 {
		t.Fatalf("sharp scored %d rounds, want 10", got)
	}
	wantLoss := -math.Log(0.8)
	if ml := st.MeanLogLoss(domrepo.H1h); math.Abs(ml-wantLoss) > 1e-9 {
		t.Fatalf("sharp mean loss = %v, want %v", ml, wantLoss)
	}
	if res.Report.Models["flaky"].FailedRounds(domrepo.H1h) != 10 {
		t.Fatalf("flaky must record 10 failed rounds")
	}
	if len(audit.recs) != 40 {
		t.Fatalf("audit records = %d, want 40", len(audit.recs))
	}
}

func TestBenchmarkRanksBetterModelFirst(t *testing.T) {
	r := newRunner(&flatCandles{price: 100}, nil)
	sources := []*fixedSource{
		{id: "sharp", prob: 0.8},
		{id: "mid", prob: 0.7},
		{id: "blunt", prob: 0.55},
	}
	params := BenchmarkParams{
		BenchmarkID: "bench-2",
		Symbol:      "BTCUSDT",
		Horizons:    []domrepo.Horizon{domrepo.H1h},
		SnapTimes:   snapSchedule(12),
	}
	res, err := r.Run(context.Background(), params, asSources(sources))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	rows := res.Report.Phase3.Rankings[domrepo.H1h]
	if len(rows) == 0 || rows[0].ModelID != "sharp" {
		t.Fatalf("ranking = %+v, want sharp first", rows)
	}
}

func TestBenchmarkFlaggedInvalidOnTotalFailure(t *testing.T) {
	r := newRunner(&flatCandles{price: 100}, nil)
	sources := []*fixedSource{
		{id: "ok", prob: 0.65, jitter: true},
		{id: "dead", fail: true},
	}
	params := BenchmarkParams{
		Symbol:    "BTCUSDT",
		Horizons:  []domrepo.Horizon{domrepo.H1h},
		SnapTimes: snapSchedule(10),
	}
	res, err := r.Run(context.Background(), params, asSources(sources))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	mv := res.Report.Validity["dead"]
	if !mv.IsFullyInvalid {
		t.Fatalf("all-failed model must be fully invalid: %+v", mv)
	}
	if res.Report.Validity["ok"].IsFullyInvalid {
		t.Fatalf("healthy model wrongly invalid")
	}
}

func TestBenchmarkEnsembleWarmsUp(t *testing.T) {
	r := newRunner(&flatCandles{price: 100}, nil)
	sources := []*fixedSource{
		{id: "a", prob: 0.8},
		{id: "b", prob: 0.7},
		{id: "c", prob: 0.6},
	}
	params := BenchmarkParams{
		Symbol:    "BTCUSDT",
		Horizons:  []domrepo.Horizon{domrepo.H1h},
		SnapTimes: snapSchedule(6),
	}
	res, err := r.Run(context.Background(), params, asSources(sources))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	rounds := res.Ensemble[domrepo.H1h]
	if len(rounds) != 6 {
		t.Fatalf("ensemble rounds = %d, want 6", len(rounds))
	}
	first := rounds[0]
	if first.Prediction.Scoreable || first.Prediction.Probability != 0.5 {
		t.Fatalf("round 0 has no past history: %+v", first.Prediction)
	}
	if !math.IsNaN(first.LogLoss) {
		t.Fatalf("unscoreable rounds must not carry a loss")
	}
	later := rounds[3]
	if !later.Prediction.Scoreable || later.Prediction.Contributors != 3 {
		t.Fatalf("warmed-up round must be scoreable: %+v", later.Prediction)
	}
	// weights come from strictly-past losses, so a must outweigh c
	if later.Prediction.Weights["a"] <= later.Prediction.Weights["c"] {
		t.Fatalf("lower-loss model must carry more weight: %+v", later.Prediction.Weights)
	}
}

func TestBenchmarkSkipsRoundsWithoutData(t *testing.T) {
	r := newRunner(&flatCandles{empty: true}, nil)
	sources := []*fixedSource{{id: "a", prob: 0.7}}
	params := BenchmarkParams{
		Symbol:    "BTCUSDT",
		Horizons:  []domrepo.Horizon{domrepo.H1h},
		SnapTimes: snapSchedule(5),
	}
	res, err := r.Run(context.Background(), params, asSources(sources))
	if err != nil {
		t.Fatalf("run must survive missing data: %v", err)
	}
	if res.Skipped[domrepo.H1h] != 5 {
		t.Fatalf("skipped = %d, want 5", res.Skipped[domrepo.H1h])
	}
	if len(res.Report.Models["a"].Scores[domrepo.H1h]) != 0 {
		t.Fatalf("skipped rounds must not score")
	}
	if len(res.Report.Phase3.Rankings[domrepo.H1h]) != 0 {
		t.Fatalf("no data must yield an empty ranking")
	}
}

func TestBenchmarkRejectsBadParams(t *testing.T) {
	r := newRunner(&flatCandles{price: 100}, nil)
	if _, err := r.Run(context.Background(), BenchmarkParams{Symbol: "X"}, asSources([]*fixedSource{{id: "a", prob: 0.5}})); err == nil {
		t.Fatalf("empty schedule must error")
	}
	if _, err := r.Run(context.Background(), BenchmarkParams{Symbol: "", SnapTimes: snapSchedule(1)}, asSources([]*fixedSource{{id: "a", prob: 0.5}})); err == nil {
		t.Fatalf("missing symbol must error")
	}
	dup := []*fixedSource{{id: "a", prob: 0.5}, {id: "a", prob: 0.6}}
	if _, err := r.Run(context.Background(), BenchmarkParams{Symbol: "X", SnapTimes: snapSchedule(1)}, asSources(dup)); err == nil {
		t.Fatalf("duplicate model ids must error")
	}
}

// dipCandles serves a constant-price series with one low dip at a
// chosen bucket, so the resolved label depends on exactly which bars
// land in each window.
type dipCandles struct {
	price  float64
	dipAt  time.Time
	dipLow float64
}

func (d *dipCandles) GetCandles(_ context.Context, _ string, from, to time.Time, h domrepo.Horizon) ([]models.Candle, error) {
	cfg, err := domrepo.ConfigFor(h)
	if err != nil {
		return nil, err
	}
	var out []models.Candle
	for t := from; !t.After(to); t = t.Add(cfg.BarSize) {
		c := models.Candle{Bucket: t, Open: d.price, High: d.price, Low: d.price, Close: d.price}
		if t.Equal(d.dipAt) {
			c.Low = d.dipLow
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *dipCandles) GetLatestNCandles(_ context.Context, _ string, _ int, _ domrepo.Horizon) ([]models.Candle, error) {
	return nil, fmt.Errorf("not used")
}

func TestResolveRoundCoversFinalHorizonBar(t *testing.T) {
	cfg, err := domrepo.ConfigFor(domrepo.H1h)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	res, err := groundtruth.NewResolver(domrepo.ContractKey{Side: domrepo.SideLow, Horizon: domrepo.H1h})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	snap := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	last := snap.Add(time.Duration(cfg.HorizonBars) * cfg.BarSize)

	r := newRunner(&dipCandles{price: 100, dipAt: last, dipLow: 90}, nil)
	lbl, err := r.resolveRound(context.Background(), "BTCUSDT", res, snap)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lbl.Label {
		t.Fatalf("a break in the last forward bar must flip the label")
	}
	if lbl.Pivot == nil || !lbl.Pivot.At.Equal(last) {
		t.Fatalf("pivot = %+v, want %s", lbl.Pivot, last)
	}
	if lbl.TimeToPivotRatio != 1 {
		t.Fatalf("a last-bar pivot must sit at ratio 1, got %v", lbl.TimeToPivotRatio)
	}
}

func TestResolveRoundIgnoresBarsPastCutoff(t *testing.T) {
	cfg, err := domrepo.ConfigFor(domrepo.H1h)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	res, err := groundtruth.NewResolver(domrepo.ContractKey{Side: domrepo.SideLow, Horizon: domrepo.H1h})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	snap := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	cutoff := snap.Add(cfg.ForwardWindow)

	r := newRunner(&dipCandles{price: 100, dipAt: cutoff.Add(cfg.BarSize), dipLow: 90}, nil)
	lbl, err := r.resolveRound(context.Background(), "BTCUSDT", res, snap)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !lbl.Label {
		t.Fatalf("a break past the cutoff must not flip the label")
	}
}

func TestResolveRoundSnapBarBelongsToLookback(t *testing.T) {
	res, err := groundtruth.NewResolver(domrepo.ContractKey{Side: domrepo.SideLow, Horizon: domrepo.H1h})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	snap := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	r := newRunner(&dipCandles{price: 100, dipAt: snap, dipLow: 90}, nil)
	lbl, err := r.resolveRound(context.Background(), "BTCUSDT", res, snap)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lbl.RefPrice != 90 {
		t.Fatalf("reference must come from the snap bar, got %v", lbl.RefPrice)
	}
	if !lbl.Label {
		t.Fatalf("a dip on the snap bar sets the reference, it is not a forward break")
	}
	if lbl.RefCandlesBack != 0 {
		t.Fatalf("snap bar is the newest lookback bar, got %d back", lbl.RefCandlesBack)
	}
}

func TestBenchmarkStrictEnsembleExcludesGatedModels(t *testing.T) {
	r := newRunner(&flatCandles{price: 100}, nil)
	sources := []*fixedSource{
		{id: "a", prob: 0.7, jitter: true},
		{id: "b", prob: 0.65, jitter: true},
		{id: "c", prob: 0.6, jitter: true},
		{id: "stuck", prob: 0.55},
	}
	params := BenchmarkParams{
		Symbol:    "BTCUSDT",
		Horizons:  []domrepo.Horizon{domrepo.H1h},
		SnapTimes: snapSchedule(8),
	}
	res, err := r.Run(context.Background(), params, asSources(sources))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Report.Validity["stuck"].ByHorizon[domrepo.H1h].IsValid {
		t.Fatalf("constant predictor must fail the gates")
	}

	wide := res.Ensemble[domrepo.H1h]
	strict := res.EnsembleStrict[domrepo.H1h]
	if len(strict) != len(wide) {
		t.Fatalf("strict rounds = %d, wide rounds = %d", len(strict), len(wide))
	}
	last := len(wide) - 1
	if got := wide[last].Prediction.Contributors; got != 4 {
		t.Fatalf("wide contributors = %d, want 4", got)
	}
	if got := strict[last].Prediction.Contributors; got != 3 {
		t.Fatalf("strict contributors = %d, want 3", got)
	}
	if _, ok := wide[last].Prediction.Weights["stuck"]; !ok {
		t.Fatalf("wide membership must keep the gated model")
	}
	if _, ok := strict[last].Prediction.Weights["stuck"]; ok {
		t.Fatalf("strict membership must drop the gated model")
	}
	if !strict[last].Prediction.Scoreable {
		t.Fatalf("three valid contributors must stay scoreable")
	}
}

package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	domservice "ForecastArena/internal/domain/service"
	"ForecastArena/internal/ensemble"
	"ForecastArena/internal/groundtruth"
	"ForecastArena/internal/stats"
	"ForecastArena/internal/tournament"
	"ForecastArena/internal/validity"
	applogger "ForecastArena/pkg/logger"
)

// BenchmarkParams describes one benchmark run.
type BenchmarkParams struct {
	BenchmarkID string
	Symbol      string
	Side        domrepo.Side
	Horizons    []domrepo.Horizon
	SnapTimes   []time.Time // ascending evaluation instants
}

// EnsembleRound is the ensemble output for one round and horizon,
// scored against the same label the models saw.
type EnsembleRound struct {
	Round      int
	Label      bool
	Prediction ensemble.RoundPrediction
	LogLoss    float64 // NaN for unscoreable rounds
}

// BenchmarkResult bundles the tournament report with the ensemble
// replays and the final clock. Ensemble is the live wide-membership
// series; EnsembleStrict recomputes it with membership restricted to
// models that passed the validity gates.
type BenchmarkResult struct {
	Report         *tournament.Report
	Ensemble       map[domrepo.Horizon][]EnsembleRound
	EnsembleStrict map[domrepo.Horizon][]EnsembleRound
	Clock          models.ClockState
	Skipped        map[domrepo.Horizon]int // rounds dropped for missing data
}

// ensembleInput is one recorded round of a horizon, kept so the strict
// series can be replayed once validity is known.
type ensembleInput struct {
	round int
	label bool
	preds map[string]models.ModelPrediction
}

// BenchmarkRunner drives the round loop: one simulated instant at a
// time, predictions fanned out in parallel across models, everything
// downstream of the barrier strictly sequential. It owns all
// ModelState for the run and mutates each exactly once per round.
type BenchmarkRunner struct {
	candles  domrepo.CandleProvider
	pivots   domrepo.PivotProvider
	audit    domrepo.AuditSink
	engine   *tournament.Engine
	gates    *validity.Engine
	combiner *ensemble.Combiner
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

func NewBenchmarkRunner(
	candles domrepo.CandleProvider,
	pivots domrepo.PivotProvider,
	audit domrepo.AuditSink,
	engine *tournament.Engine,
	gates *validity.Engine,
	combiner *ensemble.Combiner,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *BenchmarkRunner {
	return &BenchmarkRunner{
		candles:  candles,
		pivots:   pivots,
		audit:    audit,
		engine:   engine,
		gates:    gates,
		combiner: combiner,
		metrics:  metrics,
		l:        l,
	}
}

// Run replays the schedule against the given prediction sources and
// returns the assembled report. The simulated clock only moves forward
// when every model for the current round has answered or failed.
func (r *BenchmarkRunner) Run(ctx context.Context, p BenchmarkParams, sources []domservice.PredictionSource) (*BenchmarkResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("benchmark: symbol required")
	}
	if len(p.SnapTimes) == 0 {
		return nil, fmt.Errorf("benchmark: empty snap schedule")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("benchmark: no prediction sources")
	}
	if p.Side == "" {
		p.Side = domrepo.SideLow
	}
	if len(p.Horizons) == 0 {
		p.Horizons = domrepo.AllHorizons()
	}

	resolvers := make(map[domrepo.Horizon]*groundtruth.Resolver, len(p.Horizons))
	for _, h := range p.Horizons {
		res, err := groundtruth.NewResolver(domrepo.ContractKey{Side: p.Side, Horizon: h})
		if err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
		resolvers[h] = res
	}

	states := make(map[string]*tournament.ModelState, len(sources))
	for _, src := range sources {
		if _, dup := states[src.ModelID()]; dup {
			return nil, fmt.Errorf("benchmark: duplicate model id %q", src.ModelID())
		}
		states[src.ModelID()] = tournament.NewModelState(src.ModelID())
	}

	result := &BenchmarkResult{
		Ensemble: make(map[domrepo.Horizon][]EnsembleRound, len(p.Horizons)),
		Skipped:  make(map[domrepo.Horizon]int),
	}
	// per-horizon loss histories feeding the ensemble, indexed by round
	histories := make(map[domrepo.Horizon]map[string][]float64, len(p.Horizons))
	inputs := make(map[domrepo.Horizon][]ensembleInput, len(p.Horizons))
	for _, h := range p.Horizons {
		histories[h] = make(map[string][]float64)
	}

	clock := models.NewClockState(p.SnapTimes[0])
	for i, snap := range p.SnapTimes {
		if i > 0 {
			clock = clock.Advance(snap)
		}
		req := models.PredictionRequest{Symbol: p.Symbol, Round: clock.Round, SnapTime: clock.Now}
		for _, h := range p.Horizons {
			key := domrepo.ContractKey{Side: p.Side, Horizon: h}
			lbl, err := r.resolveRound(ctx, p.Symbol, resolvers[h], clock.Now)
			if err != nil {
				// data errors skip the round for this horizon only
				result.Skipped[h]++
				if r.metrics != nil {
					r.metrics.RecordError("resolve_label")
				}
				if r.l != nil {
					r.l.Warn("round skipped",
						applogger.String("horizon", string(h)),
						applogger.Int("round", clock.Round),
						applogger.Error(err),
					)
				}
				continue
			}

			preds := r.collectPredictions(ctx, sources, key, req)
			r.scoreRound(ctx, p, h, clock, lbl, preds, states)
			r.ensembleRound(h, clock.Round, lbl, preds, histories[h], result)
			inputs[h] = append(inputs[h], ensembleInput{round: clock.Round, label: lbl.Label, preds: preds})
		}
	}

	rep := r.engine.Run(states, r.gates)
	rep.BenchmarkID = p.BenchmarkID
	rep.Symbol = p.Symbol
	rep.Rounds = clock.Round + 1
	result.Report = rep
	result.Clock = clock

	result.EnsembleStrict = make(map[domrepo.Horizon][]EnsembleRound, len(p.Horizons))
	for _, h := range p.Horizons {
		result.EnsembleStrict[h] = r.replayEnsemble(rep.ValidModels(h), inputs[h])
	}
	return result, nil
}

// replayEnsemble recomputes the ensemble series over the recorded
// rounds with membership restricted to the given model set. Validity
// is only known once the whole run has been judged, so the strict
// series is a post-hoc replay. History folds in the same order as the
// live pass so both series see identical strictly-past losses.
func (r *BenchmarkRunner) replayEnsemble(valid map[string]bool, rounds []ensembleInput) []EnsembleRound {
	history := make(map[string][]float64)
	out := make([]EnsembleRound, 0, len(rounds))
	for _, in := range rounds {
		weights := r.combiner.WeightsAt(in.round, history, valid, ensemble.ModeStrict)
		rp := r.combiner.Combine(weights, in.preds)

		er := EnsembleRound{Round: in.round, Label: in.label, Prediction: rp}
		if rp.Scoreable {
			er.LogLoss = stats.LogLoss(rp.Probability, in.label)
		} else {
			er.LogLoss = math.NaN()
		}
		out = append(out, er)

		for id, pred := range in.preds {
			if pred.Failed {
				continue
			}
			history[id] = append(history[id], stats.LogLoss(pred.Probability, in.label))
		}
	}
	return out
}

// resolveRound fetches the two candle windows for an instant and
// resolves the label. The lookback ends at the snap bar and the
// forward window starts one bar after it, so the store's inclusive
// bounds yield exactly the bars the schedule builder slices: the snap
// bar closes the lookback and the availability cutoff (instant +
// horizon duration) closes the forward window.
func (r *BenchmarkRunner) resolveRound(ctx context.Context, symbol string, res *groundtruth.Resolver, now time.Time) (models.GroundTruthLabel, error) {
	h := res.Horizon()
	cfg, err := domrepo.ConfigFor(h)
	if err != nil {
		return models.GroundTruthLabel{}, err
	}
	lookFrom := now.Add(-time.Duration(cfg.LookbackBars-1) * cfg.BarSize)
	lookback, err := r.candles.GetCandles(ctx, symbol, lookFrom, now, h)
	if err != nil {
		return models.GroundTruthLabel{}, fmt.Errorf("lookback candles: %w", err)
	}
	forward, err := r.candles.GetCandles(ctx, symbol, now.Add(cfg.BarSize), now.Add(cfg.ForwardWindow), h)
	if err != nil {
		return models.GroundTruthLabel{}, fmt.Errorf("forward candles: %w", err)
	}
	if len(lookback) == 0 || len(forward) == 0 {
		return models.GroundTruthLabel{}, fmt.Errorf("empty candle window at %s", now.Format(time.RFC3339))
	}

	entry := lookback[len(lookback)-1].Close
	lbl, err := res.ResolveLabelGated(entry, lookback, forward)
	if err != nil {
		return models.GroundTruthLabel{}, err
	}
	if r.pivots != nil {
		events, perr := r.pivots.ConfirmedPivots(ctx, symbol, h, now.Add(cfg.BarSize), now.Add(cfg.ForwardWindow+cfg.BarSize))
		if perr == nil && !res.CrossCheckPivot(lbl, events) && r.l != nil {
			r.l.Warn("pivot cross-check mismatch",
				applogger.String("horizon", string(h)),
				applogger.String("at", now.Format(time.RFC3339)),
			)
		}
	}
	return lbl, nil
}

// collectPredictions fans the round out to every source in parallel
// and waits for all of them. A source error becomes a recorded failed
// prediction, never a retry.
func (r *BenchmarkRunner) collectPredictions(ctx context.Context, sources []domservice.PredictionSource, key domrepo.ContractKey, req models.PredictionRequest) map[string]models.ModelPrediction {
	type answer struct {
		id   string
		pred models.ModelPrediction
	}
	answers := make([]answer, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src domservice.PredictionSource) {
			defer wg.Done()
			start := time.Now()
			pred, err := src.Predict(ctx, key, req)
			if err != nil {
				pred = models.FailedPrediction(err.Error())
			}
			if pred.Failed && r.metrics != nil {
				r.metrics.RecordPredictionFailure(src.ModelID())
			}
			if r.metrics != nil {
				r.metrics.RecordLatency("predict_seconds", time.Since(start).Seconds())
			}
			answers[i] = answer{id: src.ModelID(), pred: pred}
		}(i, src)
	}
	wg.Wait()

	out := make(map[string]models.ModelPrediction, len(answers))
	for _, a := range answers {
		out[a.id] = a.pred
	}
	return out
}

// scoreRound turns the label and predictions into per-model scores,
// appends them to state, and emits audit records.
func (r *BenchmarkRunner) scoreRound(ctx context.Context, p BenchmarkParams, h domrepo.Horizon, clock models.ClockState, lbl models.GroundTruthLabel, preds map[string]models.ModelPrediction, states map[string]*tournament.ModelState) {
	recs := make([]*models.AuditRecord, 0, len(preds))
	for id, pred := range preds {
		score := models.RoundScore{
			Round:      clock.Round,
			Prediction: pred.Probability,
			Label:      lbl.Label,
			Failed:     pred.Failed,
		}
		if !pred.Failed {
			score.LogLoss = stats.LogLoss(pred.Probability, lbl.Label)
			score.Brier = stats.Brier(pred.Probability, lbl.Label)
			score.ExtremeError = pred.Probability > 0.8 && !lbl.Label
		}
		states[id].AddScore(h, score)
		if r.metrics != nil {
			r.metrics.RecordRoundScored(id, string(h))
		}

		if r.audit != nil {
			rec := &models.AuditRecord{
				BenchmarkID: p.BenchmarkID,
				ModelID:     id,
				Symbol:      p.Symbol,
				Horizon:     string(h),
				Round:       clock.Round,
				SnapTime:    clock.Now,
				Prediction:  pred.Probability,
				Label:       lbl.Label,
				Failed:      pred.Failed,
				FailReason:  pred.FailReason,
			}
			if !pred.Failed {
				rec.LogLoss = score.LogLoss
				rec.Brier = score.Brier
				rec.BaselineDelta = math.Ln2 - score.LogLoss
			}
			recs = append(recs, rec)
		}
	}
	if r.audit != nil && len(recs) > 0 {
		if err := r.audit.AppendBatch(ctx, recs); err != nil {
			if r.metrics != nil {
				r.metrics.RecordError("audit_append")
			}
			if r.l != nil {
				r.l.Error("audit append failed", applogger.Error(err))
			}
		}
	}
}

// ensembleRound computes the aggregate for the current round from
// strictly-past history, then folds this round's losses into the
// history for the next one.
func (r *BenchmarkRunner) ensembleRound(h domrepo.Horizon, round int, lbl models.GroundTruthLabel, preds map[string]models.ModelPrediction, history map[string][]float64, result *BenchmarkResult) {
	weights := r.combiner.WeightsAt(round, history, nil, ensemble.ModeWide)
	rp := r.combiner.Combine(weights, preds)

	er := EnsembleRound{Round: round, Label: lbl.Label, Prediction: rp}
	if rp.Scoreable {
		er.LogLoss = stats.LogLoss(rp.Probability, lbl.Label)
	} else {
		er.LogLoss = math.NaN()
	}
	result.Ensemble[h] = append(result.Ensemble[h], er)

	if r.metrics != nil && rp.Contributors > 0 {
		r.metrics.RecordEnsembleEntropy(string(h), rp.Entropy)
	}

	// failed rounds contribute nothing; coverage penalties elsewhere
	// account for the shorter history
	for id, pred := range preds {
		if pred.Failed {
			continue
		}
		history[id] = append(history[id], stats.LogLoss(pred.Probability, lbl.Label))
	}
}

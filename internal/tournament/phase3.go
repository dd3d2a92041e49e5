package tournament

import (
	"math"
	"sort"

	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/stats"
)

// RankedModel is one row of a per-horizon leaderboard.
type RankedModel struct {
	ModelID         string
	Composite       float64
	LogLossScore    float64
	BestWindowScore float64
	StabilityScore  float64
}

// GlobalRank is one row of the backward-compatible single-list ranking.
type GlobalRank struct {
	ModelID    string
	Score      float64
	Percentile float64
	BestWindow float64
	Stability  float64
	EarlyBonus float64
}

// Phase3Result carries per-horizon arenas and the global ranking.
type Phase3Result struct {
	Rankings map[domrepo.Horizon][]RankedModel
	Global   []GlobalRank
}

// RunPhase3 builds the composite per-horizon rankings over models that
// are both qualified (phase 1) and numerically valid, winsorizing each
// metric to the 5th-95th percentile before normalizing. A horizon with
// no eligible models yields an empty ranking; the others continue.
func (e *Engine) RunPhase3(states map[string]*ModelState, p1 Phase1Result, p2 Phase2Result) Phase3Result {
	res := Phase3Result{Rankings: make(map[domrepo.Horizon][]RankedModel, len(e.horizons))}
	ids := survivors(states)

	for _, h := range e.horizons {
		var cohort []string
		var lls, bests, stabs []float64
		for _, id := range ids {
			if !states[id].Qualified[h] {
				continue
			}
			ll := states[id].MeanLogLoss(h)
			ws, ok := p2.Stats[id][h]
			if !ok || !finite(ll) || !finite(ws.BestWindow) || !finite(ws.Variance) {
				continue
			}
			cohort = append(cohort, id)
			lls = append(lls, ll)
			bests = append(bests, ws.BestWindow)
			stabs = append(stabs, ws.Variance)
		}
		if len(cohort) == 0 {
			res.Rankings[h] = []RankedModel{}
			continue
		}

		llScore := invertedScores(lls)
		bwScore := invertedScores(bests)
		stScore := invertedScores(stabs)

		rows := make([]RankedModel, len(cohort))
		for i, id := range cohort {
			rows[i] = RankedModel{
				ModelID:         id,
				LogLossScore:    llScore[i],
				BestWindowScore: bwScore[i],
				StabilityScore:  stScore[i],
				Composite:       0.5*llScore[i] + 0.3*bwScore[i] + 0.2*stScore[i],
			}
		}
		sort.Slice(rows, func(a, b int) bool {
			if rows[a].Composite != rows[b].Composite {
				return rows[a].Composite > rows[b].Composite
			}
			return rows[a].ModelID < rows[b].ModelID
		})
		if len(rows) > e.cfg.ArenaSize {
			rows = rows[:e.cfg.ArenaSize]
		}
		res.Rankings[h] = rows
	}

	res.Global = e.globalRanking(states, p1, p2)
	return res
}

// globalRanking averages the per-horizon signals into a single ordered
// list: 0.4 percentile + 0.3 bestWindow + 0.2 stability + 0.1 early
// bonus. The early bonus rewards low mean loss over the first rounds.
func (e *Engine) globalRanking(states map[string]*ModelState, p1 Phase1Result, p2 Phase2Result) []GlobalRank {
	ids := survivors(states)
	if len(ids) == 0 {
		return []GlobalRank{}
	}

	type agg struct {
		pct, best, stab, early float64
	}
	raw := make(map[string]agg, len(ids))
	var bests, stabs, earlies []float64

	for _, id := range ids {
		var a agg
		var nPct, nWin, nEarly int
		for _, h := range e.horizons {
			if pct, ok := p1.Percentiles[h][id]; ok {
				a.pct += pct
				nPct++
			}
			if ws, ok := p2.Stats[id][h]; ok && finite(ws.BestWindow) && finite(ws.Variance) {
				a.best += ws.BestWindow
				a.stab += ws.Variance
				nWin++
			}
			losses := states[id].Losses(h)
			if len(losses) > 0 {
				k := e.cfg.EarlyRounds
				if k <= 0 || k > len(losses) {
					k = len(losses)
				}
				a.early += stats.Mean(losses[:k])
				nEarly++
			}
		}
		if nPct > 0 {
			a.pct /= float64(nPct) * 100 // normalized 0..1
		}
		if nWin > 0 {
			a.best /= float64(nWin)
			a.stab /= float64(nWin)
		} else {
			a.best, a.stab = math.NaN(), math.NaN()
		}
		if nEarly > 0 {
			a.early /= float64(nEarly)
		} else {
			a.early = math.NaN()
		}
		raw[id] = a
		bests = append(bests, a.best)
		stabs = append(stabs, a.stab)
		earlies = append(earlies, a.early)
	}

	bwScore := invertedScores(bests)
	stScore := invertedScores(stabs)
	ebScore := invertedScores(earlies)

	out := make([]GlobalRank, 0, len(ids))
	for i, id := range ids {
		a := raw[id]
		g := GlobalRank{
			ModelID:    id,
			Percentile: a.pct,
			BestWindow: bwScore[i],
			Stability:  stScore[i],
			EarlyBonus: ebScore[i],
		}
		g.Score = 0.4*g.Percentile + 0.3*g.BestWindow + 0.2*g.Stability + 0.1*g.EarlyBonus
		out = append(out, g)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].ModelID < out[b].ModelID
	})
	return out
}

// invertedScores winsorizes the metric to [p5, p95], then maps each
// value into [0,1] with lower-is-better inversion. A degenerate range
// (max == min) scores 0.5 for everyone instead of dividing by zero.
// Non-finite inputs score 0.5 as well.
func invertedScores(xs []float64) []float64 {
	out := make([]float64, len(xs))
	clean := make([]float64, 0, len(xs))
	for _, x := range xs {
		if finite(x) {
			clean = append(clean, x)
		}
	}
	if len(clean) == 0 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	w := stats.Winsorize(clean, 0.05, 0.95)
	mn, mx := w[0], w[0]
	for _, v := range w {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	for i, x := range xs {
		if !finite(x) || mx == mn {
			out[i] = 0.5
			continue
		}
		c := x
		if c < mn {
			c = mn
		}
		if c > mx {
			c = mx
		}
		out[i] = (mx - c) / (mx - mn)
	}
	return out
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

package tournament

import (
	"math"

	domrepo "ForecastArena/internal/domain/repository"
)

// Phase0Detail explains the sanity verdict for one model.
type Phase0Detail struct {
	BadLossHorizons  []domrepo.Horizon // mean log-loss above the sanity bound
	Degenerate       bool              // all predictions extreme on every horizon
	ExtremeRateOver  []domrepo.Horizon // extreme-error rate above 0.2
	Eliminated       bool
}

// Phase0Result is the outcome of the sanity filter.
type Phase0Result struct {
	Survivors  []string
	Eliminated []string
	PerModel   map[string]Phase0Detail
}

// RunPhase0 removes obviously broken predictors before the expensive
// phases run: mean log-loss worse than ln(2)*1.1 on two or more
// horizons, a fully degenerate prediction pattern, or an extreme-error
// rate above 0.2 on any single horizon.
func (e *Engine) RunPhase0(states map[string]*ModelState) Phase0Result {
	res := Phase0Result{PerModel: make(map[string]Phase0Detail, len(states))}
	bound := math.Ln2 * e.cfg.SanityLossBound

	for _, id := range survivors(states) {
		st := states[id]
		var d Phase0Detail

		for _, h := range e.horizons {
			if ml := st.MeanLogLoss(h); !math.IsNaN(ml) && ml > bound {
				d.BadLossHorizons = append(d.BadLossHorizons, h)
			}
			if st.ExtremeErrorRate(h) > 0.2 {
				d.ExtremeRateOver = append(d.ExtremeRateOver, h)
			}
		}
		d.Degenerate = e.degeneratePattern(st)

		if len(d.BadLossHorizons) >= 2 || d.Degenerate || len(d.ExtremeRateOver) > 0 {
			d.Eliminated = true
			e.eliminate(st, "phase0")
			res.Eliminated = append(res.Eliminated, id)
		} else {
			res.Survivors = append(res.Survivors, id)
		}
		res.PerModel[id] = d
	}
	return res
}

// degeneratePattern reports whether every effective prediction on every
// horizon sits above 0.9 or every one sits below 0.1.
func (e *Engine) degeneratePattern(st *ModelState) bool {
	allHigh, allLow := true, true
	var any bool
	for _, h := range e.horizons {
		ps, _ := st.Predictions(h)
		for _, p := range ps {
			any = true
			if p <= 0.9 {
				allHigh = false
			}
			if p >= 0.1 {
				allLow = false
			}
		}
	}
	return any && (allHigh || allLow)
}

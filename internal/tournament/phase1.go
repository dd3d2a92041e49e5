package tournament

import (
	"math"

	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/stats"
)

// Phase1Result carries per-horizon percentiles and qualification.
// Qualification is tracked per horizon, never as a single pass/fail
// for the whole model.
type Phase1Result struct {
	Percentiles map[domrepo.Horizon]map[string]float64
	Qualified   map[string]map[domrepo.Horizon]bool
}

// RunPhase1 ranks surviving models per horizon by mean log-loss (lower
// is better), converts rank to a 0-100 percentile with tie-averaged
// ranks, and qualifies a model on a horizon when its percentile is at
// or above the qualification cut.
func (e *Engine) RunPhase1(states map[string]*ModelState) Phase1Result {
	res := Phase1Result{
		Percentiles: make(map[domrepo.Horizon]map[string]float64, len(e.horizons)),
		Qualified:   make(map[string]map[domrepo.Horizon]bool),
	}
	ids := survivors(states)
	for _, id := range ids {
		res.Qualified[id] = make(map[domrepo.Horizon]bool, len(e.horizons))
	}

	for _, h := range e.horizons {
		var cohort []string
		var losses []float64
		for _, id := range ids {
			ml := states[id].MeanLogLoss(h)
			if math.IsNaN(ml) {
				continue
			}
			cohort = append(cohort, id)
			losses = append(losses, ml)
		}
		if len(cohort) == 0 {
			continue
		}

		pct := make(map[string]float64, len(cohort))
		if len(cohort) == 1 {
			pct[cohort[0]] = 100
		} else {
			ranks := stats.RankWithTies(losses) // rank 1 = lowest loss = best
			n := float64(len(cohort))
			for i, id := range cohort {
				pct[id] = 100 * (n - ranks[i]) / (n - 1)
			}
		}
		res.Percentiles[h] = pct

		for id, p := range pct {
			q := p >= e.cfg.QualifyPct
			res.Qualified[id][h] = q
			states[id].Qualified[h] = q
		}
	}
	return res
}

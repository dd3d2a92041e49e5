package tournament

import (
	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/stats"
)

// WindowStats summarizes the rolling-window behaviour of one model on
// one horizon.
type WindowStats struct {
	BestWindow  float64 // minimum rolling mean loss
	WorstWindow float64 // maximum rolling mean loss
	Variance    float64 // variance across windows
	Regret      float64 // worst window over the cohort median worst window
}

// Phase2Result is the outcome of the stability and regret phase.
type Phase2Result struct {
	Stats      map[string]map[domrepo.Horizon]WindowStats
	Eliminated []string
	Survivors  []string
}

// RunPhase2 computes rolling-window means of per-round loss, derives
// regret against the cohort median, and eliminates models with regret
// above the limit on two or more horizons or variance above twice the
// cohort median on three or more horizons.
func (e *Engine) RunPhase2(states map[string]*ModelState) Phase2Result {
	res := Phase2Result{Stats: make(map[string]map[domrepo.Horizon]WindowStats)}
	ids := survivors(states)
	for _, id := range ids {
		res.Stats[id] = make(map[domrepo.Horizon]WindowStats, len(e.horizons))
	}

	// first pass: window statistics per model per horizon
	worstByHorizon := make(map[domrepo.Horizon]map[string]float64, len(e.horizons))
	varByHorizon := make(map[domrepo.Horizon]map[string]float64, len(e.horizons))
	for _, h := range e.horizons {
		worstByHorizon[h] = make(map[string]float64)
		varByHorizon[h] = make(map[string]float64)
		for _, id := range ids {
			losses := states[id].Losses(h)
			windows := stats.RollingMeans(losses, e.cfg.StabilityWindow)
			if len(windows) == 0 {
				continue
			}
			ws := WindowStats{BestWindow: windows[0], WorstWindow: windows[0]}
			for _, w := range windows[1:] {
				if w < ws.BestWindow {
					ws.BestWindow = w
				}
				if w > ws.WorstWindow {
					ws.WorstWindow = w
				}
			}
			ws.Variance = stats.Variance(windows)
			res.Stats[id][h] = ws
			worstByHorizon[h][id] = ws.WorstWindow
			varByHorizon[h][id] = ws.Variance
		}
	}

	// second pass: regret against the cohort median, then elimination
	regretOver := make(map[string]int, len(ids))
	varianceOver := make(map[string]int, len(ids))
	for _, h := range e.horizons {
		worsts := make([]float64, 0, len(worstByHorizon[h]))
		for _, w := range worstByHorizon[h] {
			worsts = append(worsts, w)
		}
		medWorst := stats.Median(worsts)

		vars := make([]float64, 0, len(varByHorizon[h]))
		for _, v := range varByHorizon[h] {
			vars = append(vars, v)
		}
		medVar := stats.Median(vars)

		for _, id := range ids {
			ws, ok := res.Stats[id][h]
			if !ok {
				continue
			}
			if medWorst == 0 {
				ws.Regret = 1
			} else {
				ws.Regret = ws.WorstWindow / medWorst
			}
			res.Stats[id][h] = ws

			if ws.Regret > e.cfg.RegretLimit {
				regretOver[id]++
			}
			if medVar > 0 && ws.Variance > 2*medVar {
				varianceOver[id]++
			}
		}
	}

	for _, id := range ids {
		if regretOver[id] >= 2 || varianceOver[id] >= 3 {
			e.eliminate(states[id], "phase2")
			res.Eliminated = append(res.Eliminated, id)
		} else {
			res.Survivors = append(res.Survivors, id)
		}
	}
	return res
}

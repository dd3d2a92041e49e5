package tournament

import (
	"time"

	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/validity"
)

// Report is the structured outcome of a full tournament pass, consumed
// by presentation layers outside the core.
type Report struct {
	BenchmarkID string
	Symbol      string
	GeneratedAt time.Time
	Rounds      int

	Phase0   Phase0Result
	Phase1   Phase1Result
	Phase2   Phase2Result
	Phase3   Phase3Result
	Validity map[string]validity.ModelValidity

	// Eliminated models keep their full score history here.
	Models map[string]*ModelState
}

// Run executes the phases in order over the accumulated state and
// assembles the report. Validity results are computed first so callers
// can restrict ensemble membership to valid models.
func (e *Engine) Run(states map[string]*ModelState, gates *validity.Engine) *Report {
	rep := &Report{
		GeneratedAt: time.Now().UTC(),
		Models:      states,
		Validity:    make(map[string]validity.ModelValidity, len(states)),
	}

	for id, st := range states {
		samples := make(map[domrepo.Horizon]validity.HorizonSample, len(e.horizons))
		for _, h := range e.horizons {
			preds, labels := st.Predictions(h)
			samples[h] = validity.HorizonSample{
				Predictions:  preds,
				Labels:       labels,
				FailedRounds: st.FailedRounds(h),
				TotalRounds:  len(st.Scores[h]),
			}
		}
		rep.Validity[id] = gates.CheckModelValidity(id, samples)
	}

	rep.Phase0 = e.RunPhase0(states)
	rep.Phase1 = e.RunPhase1(states)
	rep.Phase2 = e.RunPhase2(states)
	rep.Phase3 = e.RunPhase3(states, rep.Phase1, rep.Phase2)
	return rep
}

// ValidModels returns the ids whose validity passed on the given
// horizon, for strict ensemble membership.
func (r *Report) ValidModels(h domrepo.Horizon) map[string]bool {
	out := make(map[string]bool)
	for id, mv := range r.Validity {
		if res, ok := mv.ByHorizon[h]; ok && res.IsValid {
			out[id] = true
		}
	}
	return out
}

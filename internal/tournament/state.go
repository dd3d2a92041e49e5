package tournament

import (
	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/stats"
)

// ModelState accumulates a model's scored rounds over the whole run.
// It is the only long-lived mutable entity: the driving loop appends
// exactly one score per round per horizon, and eliminated models keep
// their history for reporting.
type ModelState struct {
	ID              string
	Eliminated      bool
	EliminatedPhase string
	Scores          map[domrepo.Horizon][]models.RoundScore
	Qualified       map[domrepo.Horizon]bool
}

// NewModelState creates the state for a model entering the tournament.
func NewModelState(id string) *ModelState {
	return &ModelState{
		ID:        id,
		Scores:    make(map[domrepo.Horizon][]models.RoundScore),
		Qualified: make(map[domrepo.Horizon]bool),
	}
}

// AddScore appends one round's score for a horizon. Rounds arrive in
// order; callers never add the same round twice.
func (m *ModelState) AddScore(h domrepo.Horizon, s models.RoundScore) {
	m.Scores[h] = append(m.Scores[h], s)
}

// Losses returns the log-loss series for a horizon, excluding failed rounds.
func (m *ModelState) Losses(h domrepo.Horizon) []float64 {
	scores := m.Scores[h]
	out := make([]float64, 0, len(scores))
	for _, s := range scores {
		if !s.Failed {
			out = append(out, s.LogLoss)
		}
	}
	return out
}

// Predictions returns the prediction series for a horizon, excluding
// failed rounds, with the matching labels.
func (m *ModelState) Predictions(h domrepo.Horizon) ([]float64, []bool) {
	scores := m.Scores[h]
	ps := make([]float64, 0, len(scores))
	ls := make([]bool, 0, len(scores))
	for _, s := range scores {
		if !s.Failed {
			ps = append(ps, s.Prediction)
			ls = append(ls, s.Label)
		}
	}
	return ps, ls
}

// FailedRounds counts failed rounds for a horizon.
func (m *ModelState) FailedRounds(h domrepo.Horizon) int {
	var n int
	for _, s := range m.Scores[h] {
		if s.Failed {
			n++
		}
	}
	return n
}

// MeanLogLoss returns the mean log-loss for a horizon, NaN when no
// effective rounds exist.
func (m *ModelState) MeanLogLoss(h domrepo.Horizon) float64 {
	return stats.Mean(m.Losses(h))
}

// ExtremeErrorRate returns the fraction of effective rounds where the
// model was above 0.8 while the label was false.
func (m *ModelState) ExtremeErrorRate(h domrepo.Horizon) float64 {
	var total, extreme int
	for _, s := range m.Scores[h] {
		if s.Failed {
			continue
		}
		total++
		if s.ExtremeError {
			extreme++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(extreme) / float64(total)
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	domrepo "ForecastArena/internal/domain/repository"
	cachesvc "ForecastArena/internal/service/cache"
	"ForecastArena/internal/tournament"
	"ForecastArena/internal/validity"
)

// LeaderboardRow is one presentation row of a per-horizon leaderboard.
type LeaderboardRow struct {
	Rank        int      `json:"rank"`
	ModelID     string   `json:"model_id"`
	Composite   float64  `json:"composite"`
	MeanLogLoss *float64 `json:"mean_log_loss,omitempty"`
	Percentile  *float64 `json:"percentile,omitempty"`
	Qualified   bool     `json:"qualified"`
}

// ModelSummary describes one model's standing across the whole run,
// including eliminated models (their history survives elimination).
type ModelSummary struct {
	ModelID         string             `json:"model_id"`
	Eliminated      bool               `json:"eliminated"`
	EliminatedPhase string             `json:"eliminated_phase,omitempty"`
	RoundsByHorizon map[string]int     `json:"rounds_by_horizon"`
	MeanLogLoss     map[string]float64 `json:"mean_log_loss"`
}

// PhaseSummary is the structured outcome of the elimination phases.
type PhaseSummary struct {
	Phase0Survivors  []string                `json:"phase0_survivors"`
	Phase0Eliminated []string                `json:"phase0_eliminated"`
	QualifiedByModel map[string][]string     `json:"qualified_by_model"`
	Phase2Survivors  []string                `json:"phase2_survivors"`
	Phase2Eliminated []string                `json:"phase2_eliminated"`
	Global           []tournament.GlobalRank `json:"global_ranking"`
}

// EnsemblePoint is one round of the ensemble replay for presentation.
type EnsemblePoint struct {
	Round        int     `json:"round"`
	Probability  float64 `json:"probability"`
	Label        bool    `json:"label"`
	Scoreable    bool    `json:"scoreable"`
	Contributors int     `json:"contributors"`
	Entropy      float64 `json:"entropy"`
	LogLoss      float64 `json:"log_loss,omitempty"`
}

// ReportUseCase serves the latest benchmark outcome to the HTTP layer.
// Leaderboards are cached per benchmark id, so repeat reads skip the
// assembly work until a new run lands.
type ReportUseCase struct {
	cache cachesvc.BytesCache
	ttl   time.Duration

	mu     sync.RWMutex
	latest *BenchmarkResult
}

func NewReportUseCase(c cachesvc.BytesCache, ttl time.Duration) *ReportUseCase {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportUseCase{cache: c, ttl: ttl}
}

// SetLatest publishes a completed benchmark result.
func (uc *ReportUseCase) SetLatest(res *BenchmarkResult) {
	uc.mu.Lock()
	uc.latest = res
	uc.mu.Unlock()
}

// Latest returns the current result, or nil when no run has finished.
func (uc *ReportUseCase) Latest() *BenchmarkResult {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.latest
}

// Leaderboard assembles the per-horizon leaderboard. A horizon with no
// eligible models yields an empty slice, never an error.
func (uc *ReportUseCase) Leaderboard(ctx context.Context, h domrepo.Horizon, limit int) ([]LeaderboardRow, error) {
	res := uc.Latest()
	if res == nil {
		return nil, fmt.Errorf("no benchmark has completed yet")
	}
	key := cachesvc.Key("leaderboard", res.Report.BenchmarkID, string(h))
	if uc.cache != nil {
		if b, ok, err := uc.cache.GetBytes(ctx, key); err == nil && ok {
			var rows []LeaderboardRow
			if json.Unmarshal(b, &rows) == nil {
				return clip(rows, limit), nil
			}
		}
	}

	rep := res.Report
	ranked := rep.Phase3.Rankings[h]
	rows := make([]LeaderboardRow, 0, len(ranked))
	for i, rm := range ranked {
		row := LeaderboardRow{
			Rank:      i + 1,
			ModelID:   rm.ModelID,
			Composite: rm.Composite,
			Qualified: true,
		}
		if st, ok := rep.Models[rm.ModelID]; ok {
			if ml := st.MeanLogLoss(h); !math.IsNaN(ml) && !math.IsInf(ml, 0) {
				row.MeanLogLoss = &ml
			}
		}
		if pct, ok := rep.Phase1.Percentiles[h][rm.ModelID]; ok {
			row.Percentile = &pct
		}
		rows = append(rows, row)
	}

	if uc.cache != nil {
		if b, err := json.Marshal(rows); err == nil {
			_ = uc.cache.SetBytes(ctx, key, b, uc.ttl)
		}
	}
	return clip(rows, limit), nil
}

// Validity returns the gate outcome for one model across horizons.
func (uc *ReportUseCase) Validity(modelID string) (validity.ModelValidity, error) {
	res := uc.Latest()
	if res == nil {
		return validity.ModelValidity{}, fmt.Errorf("no benchmark has completed yet")
	}
	mv, ok := res.Report.Validity[modelID]
	if !ok {
		return validity.ModelValidity{}, fmt.Errorf("unknown model: %s", modelID)
	}
	return mv, nil
}

// EnsembleSeries returns the ensemble replay for a horizon, optionally
// a single round (round >= 0). With strict set, the series is the one
// recomputed over validity-gated membership.
func (uc *ReportUseCase) EnsembleSeries(h domrepo.Horizon, round int, strict bool) ([]EnsemblePoint, error) {
	res := uc.Latest()
	if res == nil {
		return nil, fmt.Errorf("no benchmark has completed yet")
	}
	series := res.Ensemble[h]
	if strict {
		series = res.EnsembleStrict[h]
	}
	out := make([]EnsemblePoint, 0, len(series))
	for _, er := range series {
		if round >= 0 && er.Round != round {
			continue
		}
		p := EnsemblePoint{
			Round:        er.Round,
			Probability:  er.Prediction.Probability,
			Label:        er.Label,
			Scoreable:    er.Prediction.Scoreable,
			Contributors: er.Prediction.Contributors,
			Entropy:      er.Prediction.Entropy,
		}
		if !math.IsNaN(er.LogLoss) {
			p.LogLoss = er.LogLoss
		}
		out = append(out, p)
	}
	if round >= 0 && len(out) == 0 {
		return nil, fmt.Errorf("round %d not found for horizon %s", round, h)
	}
	return out, nil
}

// Phases returns the elimination outcome of every phase plus the
// global ranking.
func (uc *ReportUseCase) Phases() (PhaseSummary, error) {
	res := uc.Latest()
	if res == nil {
		return PhaseSummary{}, fmt.Errorf("no benchmark has completed yet")
	}
	rep := res.Report
	ps := PhaseSummary{
		Phase0Survivors:  rep.Phase0.Survivors,
		Phase0Eliminated: rep.Phase0.Eliminated,
		QualifiedByModel: make(map[string][]string, len(rep.Phase1.Qualified)),
		Phase2Survivors:  rep.Phase2.Survivors,
		Phase2Eliminated: rep.Phase2.Eliminated,
		Global:           rep.Phase3.Global,
	}
	for id, byHorizon := range rep.Phase1.Qualified {
		for h, q := range byHorizon {
			if q {
				ps.QualifiedByModel[id] = append(ps.QualifiedByModel[id], string(h))
			}
		}
		sort.Strings(ps.QualifiedByModel[id])
	}
	return ps, nil
}

// Models summarizes every participant, eliminated ones included.
func (uc *ReportUseCase) Models() ([]ModelSummary, error) {
	res := uc.Latest()
	if res == nil {
		return nil, fmt.Errorf("no benchmark has completed yet")
	}
	out := make([]ModelSummary, 0, len(res.Report.Models))
	for id, st := range res.Report.Models {
		ms := ModelSummary{
			ModelID:         id,
			Eliminated:      st.Eliminated,
			EliminatedPhase: st.EliminatedPhase,
			RoundsByHorizon: make(map[string]int),
			MeanLogLoss:     make(map[string]float64),
		}
		for h, scores := range st.Scores {
			ms.RoundsByHorizon[string(h)] = len(scores)
			if ml := st.MeanLogLoss(h); !math.IsNaN(ml) && !math.IsInf(ml, 0) {
				ms.MeanLogLoss[string(h)] = ml
			}
		}
		out = append(out, ms)
	}
	return out, nil
}

func clip(rows []LeaderboardRow, limit int) []LeaderboardRow {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

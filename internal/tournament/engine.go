package tournament

import (
	"sort"

	domrepo "ForecastArena/internal/domain/repository"
	applogger "ForecastArena/pkg/logger"
)

// Config holds the tournament knobs.
type Config struct {
	ArenaSize       int     // max models per per-horizon ranking
	StabilityWindow int     // rolling window for phase 2
	SanityLossBound float64 // multiple of ln(2) tolerated in phase 0
	QualifyPct      float64 // minimum percentile to qualify in phase 1
	RegretLimit     float64
	EarlyRounds     int // rounds counted for the early bonus
}

// DefaultConfig returns the standard tournament parameters.
func DefaultConfig() Config {
	return Config{
		ArenaSize:       8,
		StabilityWindow: 6,
		SanityLossBound: 1.1,
		QualifyPct:      30,
		RegretLimit:     1.5,
		EarlyRounds:     8,
	}
}

// Engine runs the four elimination phases over accumulated model state.
// Phases only narrow: a model eliminated in an earlier phase never
// re-enters a later one.
type Engine struct {
	cfg      Config
	horizons []domrepo.Horizon
	l        *applogger.Logger
	metrics  domrepo.Metrics
}

func NewEngine(cfg Config, horizons []domrepo.Horizon, l *applogger.Logger, metrics domrepo.Metrics) *Engine {
	if cfg.ArenaSize <= 0 {
		cfg.ArenaSize = 8
	}
	if cfg.StabilityWindow <= 0 {
		cfg.StabilityWindow = 6
	}
	if len(horizons) == 0 {
		horizons = domrepo.AllHorizons()
	}
	return &Engine{cfg: cfg, horizons: horizons, l: l, metrics: metrics}
}

func (e *Engine) eliminate(st *ModelState, phase string) {
	st.Eliminated = true
	st.EliminatedPhase = phase
	if e.metrics != nil {
		e.metrics.RecordElimination(phase, st.ID)
	}
	if e.l != nil {
		e.l.Info("model eliminated",
			applogger.String("model", st.ID),
			applogger.String("phase", phase),
		)
	}
}

// survivors returns the ids of models still in the tournament, sorted
// for deterministic iteration.
func survivors(states map[string]*ModelState) []string {
	out := make([]string, 0, len(states))
	for id, st := range states {
		if !st.Eliminated {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

package ensemble

import (
	"math"

	"ForecastArena/internal/domain/models"
	"ForecastArena/internal/stats"
)

// MembershipMode selects which models may carry ensemble weight.
type MembershipMode string

const (
	// ModeWide includes every model with any past history.
	ModeWide MembershipMode = "wide"
	// ModeStrict restricts membership to a caller-supplied valid set.
	ModeStrict MembershipMode = "strict"
)

// Config holds the ensemble parameters.
type Config struct {
	Alpha     float64 // loss-to-weight exponent
	Window    int     // rolling window over past losses
	MinModels int     // minimum contributors for a scoreable round
}

// DefaultConfig returns the standard ensemble parameters.
func DefaultConfig() Config {
	return Config{Alpha: 1.0, Window: 6, MinModels: 3}
}

// Combiner produces exponentially-weighted aggregate predictions from
// the surviving models' loss histories. It holds no per-round state:
// every call recomputes weights from the histories it is given.
type Combiner struct {
	cfg Config
}

func NewCombiner(cfg Config) *Combiner {
	if cfg.Window <= 0 {
		cfg.Window = 6
	}
	if cfg.MinModels <= 0 {
		cfg.MinModels = 3
	}
	return &Combiner{cfg: cfg}
}

// RoundPrediction is the ensemble output for one round.
type RoundPrediction struct {
	Probability  float64
	Scoreable    bool
	Contributors int
	Entropy      float64
	Weights      map[string]float64 // effective weights after failure exclusion
}

// WeightsAt computes normalized weights for the given round using only
// each model's losses from rounds strictly before it. Weights sum to 1;
// when every raw weight is zero (all members at infinite loss) the
// members share uniform weight instead.
func (c *Combiner) WeightsAt(round int, histories map[string][]float64, valid map[string]bool, mode MembershipMode) map[string]float64 {
	raw := make(map[string]float64)
	var sum float64
	for id, losses := range histories {
		if mode == ModeStrict && !valid[id] {
			continue
		}
		past := losses
		if round < len(past) {
			past = past[:round]
		}
		if len(past) == 0 {
			continue
		}
		w := c.rawWeight(past)
		raw[id] = w
		sum += w
	}
	if len(raw) == 0 {
		return raw
	}
	if sum == 0 {
		u := 1 / float64(len(raw))
		for id := range raw {
			raw[id] = u
		}
		return raw
	}
	for id := range raw {
		raw[id] /= sum
	}
	return raw
}

// rawWeight maps a past loss series to an unnormalized weight. Short
// histories are penalized linearly through the coverage factor.
func (c *Combiner) rawWeight(past []float64) float64 {
	n := len(past)
	k := c.cfg.Window
	if n < k {
		k = n
	}
	rolling := stats.Mean(past[n-k:])
	coverage := float64(k) / float64(c.cfg.Window)
	w := math.Exp(-c.cfg.Alpha*rolling) * coverage
	if math.IsNaN(w) {
		return 0
	}
	return w
}

// Combine produces the round's aggregate prediction from the weights
// and each model's current prediction. Failed predictions are excluded
// and the remaining weights re-normalized; with fewer contributors than
// the minimum the round is flagged unscoreable and the probability
// defaults to 0.5.
func (c *Combiner) Combine(weights map[string]float64, preds map[string]models.ModelPrediction) RoundPrediction {
	effective := make(map[string]float64, len(weights))
	var sum float64
	for id, w := range weights {
		p, ok := preds[id]
		if !ok || p.Failed {
			continue
		}
		effective[id] = w
		sum += w
	}
	out := RoundPrediction{Contributors: len(effective)}
	if len(effective) == 0 {
		out.Probability = 0.5
		return out
	}
	if sum == 0 {
		u := 1 / float64(len(effective))
		for id := range effective {
			effective[id] = u
		}
		sum = 1
	}
	var prob float64
	for id, w := range effective {
		effective[id] = w / sum
		prob += effective[id] * preds[id].Probability
	}
	out.Weights = effective
	out.Entropy = stats.Entropy(effective)
	out.Scoreable = len(effective) >= c.cfg.MinModels
	out.Probability = prob
	if !out.Scoreable {
		out.Probability = 0.5
	}
	return out
}

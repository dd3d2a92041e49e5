package sampler

import (
	"sort"
	"time"

	domrepo "ForecastArena/internal/domain/repository"
)

// Candidate is one potential evaluation instant. Distance measures how
// far the close at the snap time sits from the reference extreme, as a
// fraction of the reference price. Labels, when present, carry the
// pre-computed per-horizon ground truth used by balanced sampling.
type Candidate struct {
	SnapTime    time.Time
	CloseAtSnap float64
	RefExtreme  float64
	Distance    float64
	Labels      map[domrepo.Horizon]bool
}

// Config holds the selection parameters.
type Config struct {
	Target          int           // desired number of instants
	MaxDistance     float64       // proximity: distance threshold
	MinSeparation   time.Duration // proximity: gap between kept instants
	MinPositiveFrac float64       // balanced: lower bound on positive share
	MaxPositiveFrac float64       // balanced: upper bound on positive share
	MinMinority     int           // balanced: floor for the rarer class
}

// DefaultConfig returns the standard sampling parameters.
func DefaultConfig() Config {
	return Config{
		Target:          64,
		MaxDistance:     0.002,
		MinSeparation:   30 * time.Minute,
		MinPositiveFrac: 0.3,
		MaxPositiveFrac: 0.7,
		MinMinority:     5,
	}
}

// Sampler selects evaluation instants from a candidate pool. Selection
// is deterministic for a given Source.
type Sampler struct {
	cfg Config
	src Source
}

func New(cfg Config, src Source) *Sampler {
	if cfg.Target <= 0 {
		cfg.Target = 64
	}
	if cfg.MaxPositiveFrac <= 0 || cfg.MaxPositiveFrac > 1 {
		cfg.MaxPositiveFrac = 0.7
	}
	if cfg.MinPositiveFrac < 0 || cfg.MinPositiveFrac > cfg.MaxPositiveFrac {
		cfg.MinPositiveFrac = 0.3
	}
	return &Sampler{cfg: cfg, src: src}
}

// Proximity keeps candidates near the reference extreme, then thins
// them chronologically so no two kept instants sit closer than the
// minimum separation.
func (s *Sampler) Proximity(pool []Candidate) []Candidate {
	near := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Distance <= s.cfg.MaxDistance {
			near = append(near, c)
		}
	}
	sort.Slice(near, func(i, j int) bool { return near[i].SnapTime.Before(near[j].SnapTime) })

	out := make([]Candidate, 0, s.cfg.Target)
	var lastKept time.Time
	for _, c := range near {
		if len(out) > 0 && c.SnapTime.Sub(lastKept) < s.cfg.MinSeparation {
			continue
		}
		out = append(out, c)
		lastKept = c.SnapTime
		if len(out) == s.cfg.Target {
			break
		}
	}
	return out
}

// Balanced partitions the pool by label on the given horizon, shuffles
// each class with the seeded source, and draws counts that keep the
// positive share inside the configured band while guaranteeing the
// minority class its floor when the pool allows it.
func (s *Sampler) Balanced(pool []Candidate, h domrepo.Horizon) []Candidate {
	var pos, neg []Candidate
	for _, c := range pool {
		lbl, ok := c.Labels[h]
		if !ok {
			continue
		}
		if lbl {
			pos = append(pos, c)
		} else {
			neg = append(neg, c)
		}
	}
	// chronological order before shuffling keeps the draw independent
	// of pool ordering
	sort.Slice(pos, func(i, j int) bool { return pos[i].SnapTime.Before(pos[j].SnapTime) })
	sort.Slice(neg, func(i, j int) bool { return neg[i].SnapTime.Before(neg[j].SnapTime) })
	shuffle(pos, s.src)
	shuffle(neg, s.src)

	total := s.cfg.Target
	if len(pos)+len(neg) < total {
		total = len(pos) + len(neg)
	}
	if total == 0 {
		return []Candidate{}
	}

	nPos := s.positiveCount(total, len(pos), len(neg))
	nNeg := total - nPos

	out := make([]Candidate, 0, total)
	out = append(out, pos[:nPos]...)
	out = append(out, neg[:nNeg]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SnapTime.Before(out[j].SnapTime) })
	return out
}

// positiveCount picks how many positives to draw: clamp the ideal share
// to the configured band and availability, then enforce the minority
// floor, reallocating the shortfall to the other class.
func (s *Sampler) positiveCount(total, availPos, availNeg int) int {
	lo := int(s.cfg.MinPositiveFrac * float64(total))
	hi := int(s.cfg.MaxPositiveFrac * float64(total))
	nPos := total / 2
	if nPos < lo {
		nPos = lo
	}
	if nPos > hi {
		nPos = hi
	}

	floor := s.cfg.MinMinority
	if floor > total/2 {
		floor = total / 2
	}
	if availPos <= availNeg {
		if nPos < floor && availPos >= floor {
			nPos = floor
		}
	} else {
		if total-nPos < floor && availNeg >= floor {
			nPos = total - floor
		}
	}

	if nPos > availPos {
		nPos = availPos
	}
	if total-nPos > availNeg {
		nPos = total - availNeg
	}
	return nPos
}

// Combined tries proximity first and falls back to balanced sampling
// when proximity yields fewer instants than the target.
func (s *Sampler) Combined(pool []Candidate, h domrepo.Horizon) []Candidate {
	out := s.Proximity(pool)
	if len(out) >= s.cfg.Target {
		return out
	}
	return s.Balanced(pool, h)
}

package groundtruth

import (
	"fmt"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
)

// Resolver computes reference extremes and ground-truth labels for one
// horizon. It never sees data past the availability cutoff: callers
// must only hand it forward candles known at instant + horizon
// duration (a protocol contract with the candle provider); the
// resolver additionally truncates the forward window to the horizon's
// bar count so late-arriving extra bars cannot change a label.
type Resolver struct {
	horizon domrepo.Horizon
	cfg     domrepo.HorizonConfig
	side    domrepo.Side
}

// NewResolver builds a resolver for the given contract direction.
func NewResolver(key domrepo.ContractKey) (*Resolver, error) {
	if !key.IsValid() {
		return nil, fmt.Errorf("invalid contract key: %s", key)
	}
	cfg, err := domrepo.ConfigFor(key.Horizon)
	if err != nil {
		return nil, err
	}
	return &Resolver{horizon: key.Horizon, cfg: cfg, side: key.Side}, nil
}

// Horizon returns the horizon this resolver is bound to.
func (r *Resolver) Horizon() domrepo.Horizon { return r.horizon }

// ReferenceExtreme scans the lookback window (which already excludes
// the forming candle) and returns the most extreme low (or high, for
// the high side) with its distance-back index. Ties break to the
// earliest occurrence: the scan runs in chronological order and only
// replaces on strict improvement.
func (r *Resolver) ReferenceExtreme(lookback []models.Candle) (models.ReferenceExtreme, error) {
	if len(lookback) == 0 {
		return models.ReferenceExtreme{}, fmt.Errorf("reference extreme: empty lookback window")
	}
	best := 0
	for i := 1; i < len(lookback); i++ {
		if r.moreExtreme(lookback[i], lookback[best]) {
			best = i
		}
	}
	return models.ReferenceExtreme{
		Price:       r.extremePrice(lookback[best]),
		CandlesBack: len(lookback) - 1 - best,
	}, nil
}

func (r *Resolver) moreExtreme(c, than models.Candle) bool {
	if r.side == domrepo.SideHigh {
		return c.High > than.High
	}
	return c.Low < than.Low
}

func (r *Resolver) extremePrice(c models.Candle) float64 {
	if r.side == domrepo.SideHigh {
		return c.High
	}
	return c.Low
}

// ResolveLabel computes the reference extreme from the lookback window
// and scans forward for a strict violation. Equality with the reference
// counts as held (non-strict), so the label is true when the forward
// extreme never crosses the reference.
func (r *Resolver) ResolveLabel(lookback, forward []models.Candle) (models.GroundTruthLabel, error) {
	ref, err := r.ReferenceExtreme(lookback)
	if err != nil {
		return models.GroundTruthLabel{}, err
	}
	if len(forward) == 0 {
		return models.GroundTruthLabel{}, fmt.Errorf("resolve label: empty forward window")
	}
	forward = r.truncateForward(forward)

	lbl := models.GroundTruthLabel{
		Label:          true,
		RefPrice:       ref.Price,
		RefCandlesBack: ref.CandlesBack,
		ForwardExtreme: r.extremePrice(forward[0]),
	}
	for i, c := range forward {
		p := r.extremePrice(c)
		if r.crosses(p, lbl.ForwardExtreme) {
			lbl.ForwardExtreme = p
		}
		if lbl.Pivot == nil && r.crosses(p, ref.Price) {
			lbl.Label = false
			lbl.Pivot = &models.PivotMark{Index: i, At: c.Bucket}
			lbl.TimeToPivotRatio = float64(i+1) / float64(len(forward))
		}
	}
	return lbl, nil
}

// ResolveLabelGated applies the drawdown gate on top of ResolveLabel:
// a held round only enters the positive label set when the maximum
// intra-window drawdown from the entry price stays within the
// horizon's tolerance (inclusive).
func (r *Resolver) ResolveLabelGated(entry float64, lookback, forward []models.Candle) (models.GroundTruthLabel, error) {
	lbl, err := r.ResolveLabel(lookback, forward)
	if err != nil {
		return models.GroundTruthLabel{}, err
	}
	if entry <= 0 {
		return models.GroundTruthLabel{}, fmt.Errorf("resolve label: entry price must be positive, got %v", entry)
	}
	dd, ok := r.DrawdownWithin(entry, forward)
	lbl.MaxDrawdown = dd
	if lbl.Label && !ok {
		lbl.Label = false
	}
	return lbl, nil
}

// DrawdownWithin computes the worst adverse move from entry across the
// forward window and reports whether it stays within the horizon's
// maxDrawdown (equality counts as within).
func (r *Resolver) DrawdownWithin(entry float64, forward []models.Candle) (float64, bool) {
	forward = r.truncateForward(forward)
	var worst float64
	for _, c := range forward {
		var dd float64
		if r.side == domrepo.SideHigh {
			dd = (c.High - entry) / entry
		} else {
			dd = (entry - c.Low) / entry
		}
		if dd > worst {
			worst = dd
		}
	}
	const eps = 1e-12
	return worst, worst <= r.cfg.MaxDrawdown+eps
}

// CrossCheckPivot compares the resolver's own pivot detection against
// pre-computed annotation events; a mismatch is diagnostic, not fatal.
func (r *Resolver) CrossCheckPivot(lbl models.GroundTruthLabel, events []models.PivotEvent) bool {
	if lbl.Pivot == nil {
		return len(events) == 0
	}
	for _, ev := range events {
		if ev.Confirmed && ev.Time.Equal(lbl.Pivot.At) {
			return true
		}
	}
	return false
}

func (r *Resolver) crosses(p, ref float64) bool {
	if r.side == domrepo.SideHigh {
		return p > ref
	}
	return p < ref
}

func (r *Resolver) truncateForward(forward []models.Candle) []models.Candle {
	if len(forward) > r.cfg.HorizonBars {
		return forward[:r.cfg.HorizonBars]
	}
	return forward
}

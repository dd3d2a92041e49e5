package usecase

import (
	"context"
	"fmt"

	domrepo "ForecastArena/internal/domain/repository"
	"ForecastArena/internal/groundtruth"
	"ForecastArena/internal/sampler"
)

// ScheduleBuilder turns stored candle history into a pool of snap-time
// candidates for the sampler. Candidates are built from fully closed
// bars only; each carries its distance to the trailing reference
// extreme and the resolved label, so both proximity and balanced
// sampling can work from one pool.
type ScheduleBuilder struct {
	candles domrepo.CandleProvider
}

func NewScheduleBuilder(candles domrepo.CandleProvider) *ScheduleBuilder {
	return &ScheduleBuilder{candles: candles}
}

// BuildCandidates slides over the latest history of the given horizon
// and emits one candidate per bar that has a full lookback behind it
// and a full forward window ahead of it.
func (b *ScheduleBuilder) BuildCandidates(ctx context.Context, symbol string, side domrepo.Side, h domrepo.Horizon, poolSize int) ([]sampler.Candidate, error) {
	cfg, err := domrepo.ConfigFor(h)
	if err != nil {
		return nil, err
	}
	res, err := groundtruth.NewResolver(domrepo.ContractKey{Side: side, Horizon: h})
	if err != nil {
		return nil, err
	}
	if poolSize <= 0 {
		poolSize = 512
	}

	need := poolSize + cfg.LookbackBars + cfg.HorizonBars
	candles, err := b.candles.GetLatestNCandles(ctx, symbol, need, h)
	if err != nil {
		return nil, fmt.Errorf("candidate pool: %w", err)
	}
	if len(candles) < cfg.LookbackBars+cfg.HorizonBars+1 {
		return nil, fmt.Errorf("candidate pool: %d candles, need at least %d", len(candles), cfg.LookbackBars+cfg.HorizonBars+1)
	}

	out := make([]sampler.Candidate, 0, poolSize)
	for i := cfg.LookbackBars; i+cfg.HorizonBars <= len(candles); i++ {
		lookback := candles[i-cfg.LookbackBars : i]
		forward := candles[i : i+cfg.HorizonBars]
		entry := lookback[len(lookback)-1].Close

		ref, err := res.ReferenceExtreme(lookback)
		if err != nil {
			continue
		}
		lbl, err := res.ResolveLabelGated(entry, lookback, forward)
		if err != nil {
			continue
		}

		dist := 0.0
		if ref.Price > 0 {
			dist = (entry - ref.Price) / ref.Price
			if dist < 0 {
				dist = -dist
			}
		}
		out = append(out, sampler.Candidate{
			SnapTime:    lookback[len(lookback)-1].Bucket,
			CloseAtSnap: entry,
			RefExtreme:  ref.Price,
			Distance:    dist,
			Labels:      map[domrepo.Horizon]bool{h: lbl.Label},
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("candidate pool: no usable instants for %s %s", symbol, h)
	}
	return out, nil
}

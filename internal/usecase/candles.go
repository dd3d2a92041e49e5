package usecase

import (
	"context"
	"fmt"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
)

// CandlesUseCase provides business logic for retrieving candles.
type CandlesUseCase struct {
	provider domrepo.CandleProvider
}

func NewCandlesUseCase(provider domrepo.CandleProvider) *CandlesUseCase {
	return &CandlesUseCase{provider: provider}
}

type GetCandlesParams struct {
	Symbol  string
	From    time.Time
	To      time.Time
	Horizon domrepo.Horizon
	Limit   int
}

type GetCandlesResult struct {
	Symbol  string
	Horizon string
	From    time.Time
	To      time.Time
	Count   int
	Candles []models.Candle
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if !domrepo.IsValidHorizon(p.Horizon) {
		p.Horizon = domrepo.DefaultHorizon()
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	candles, err := uc.provider.GetCandles(ctx, p.Symbol, p.From, p.To, p.Horizon)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > p.Limit {
		candles = candles[:p.Limit]
	}

	return &GetCandlesResult{
		Symbol:  p.Symbol,
		Horizon: string(p.Horizon),
		From:    p.From,
		To:      p.To,
		Count:   len(candles),
		Candles: candles,
	}, nil
}

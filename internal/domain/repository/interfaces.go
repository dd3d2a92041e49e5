package repository

import (
	"context"
	"time"

	"ForecastArena/internal/domain/models"
)

// CandleProvider serves closed candles ascending by timestamp.
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, h Horizon) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, h Horizon) ([]models.Candle, error)
}

// PivotProvider serves pre-computed structural events (confirmed pivot
// lows) that the resolver may cross-check against its own computation.
type PivotProvider interface {
	ConfirmedPivots(ctx context.Context, symbol string, h Horizon, from, to time.Time) ([]models.PivotEvent, error)
}

// AuditSink receives one append-only record per model per horizon per round.
type AuditSink interface {
	Append(ctx context.Context, rec *models.AuditRecord) error
	AppendBatch(ctx context.Context, recs []*models.AuditRecord) error
	Close() error
}

// AuditStore persists audit records for later querying.
type AuditStore interface {
	Store(ctx context.Context, rec *models.AuditRecord) error
	Query(ctx context.Context, benchmarkID string, modelID string, h Horizon, limit int) ([]*models.AuditRecord, error)
	Health(ctx context.Context) error
}

// CandleWriter ingests live candles into storage.
type CandleWriter interface {
	StoreBatch(ctx context.Context, candles []models.Candle, h Horizon) error
	Close() error
}

// MarketStream is a live tick feed used to build candles.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational counters for the benchmark run.
type Metrics interface {
	RecordRoundScored(modelID string, horizon string)
	RecordElimination(phase string, modelID string)
	RecordPredictionFailure(modelID string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordEnsembleEntropy(horizon string, entropy float64)
}

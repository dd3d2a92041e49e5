package models

import "time"

// Candle represents one fully closed OHLCV bar. Sourced externally;
// read-only to the core.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Tick is a single trade event from a live market stream.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// PivotEvent is a pre-computed structural event from an annotation
// provider (e.g. a confirmed pivot low).
type PivotEvent struct {
	Symbol    string
	Time      time.Time
	Price     float64
	Confirmed bool
}

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
)

// TickProcessor folds live ticks into one-minute candles and flushes
// closed buckets to storage in batches. One-minute bars are the finest
// horizon granularity; coarser bars are rolled up by the store.
type TickProcessor struct {
	writer  domrepo.CandleWriter
	metrics domrepo.Metrics

	mu      sync.Mutex
	open    map[string]*models.Candle // per-symbol forming bar
	pending []models.Candle
	batchSz int
}

func NewTickProcessor(writer domrepo.CandleWriter, metrics domrepo.Metrics, batchSz int) *TickProcessor {
	if batchSz <= 0 {
		batchSz = 100
	}
	return &TickProcessor{
		writer:  writer,
		metrics: metrics,
		open:    make(map[string]*models.Candle),
		batchSz: batchSz,
	}
}

// Process folds one tick into its symbol's forming bar. When the tick
// opens a new minute the previous bar is closed and queued for storage.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	bucket := time.Unix(t.Timestamp, 0).UTC().Truncate(time.Minute)

	p.mu.Lock()
	cur := p.open[t.Symbol]
	var closed *models.Candle
	switch {
	case cur == nil:
		p.open[t.Symbol] = newBar(t, bucket)
	case bucket.After(cur.Bucket):
		closed = cur
		p.open[t.Symbol] = newBar(t, bucket)
	case bucket.Before(cur.Bucket):
		// late tick for an already-closed minute; drop it
		p.mu.Unlock()
		if p.metrics != nil {
			p.metrics.RecordError("tick_late")
		}
		return nil
	default:
		foldTick(cur, t)
	}
	if closed != nil {
		p.pending = append(p.pending, *closed)
	}
	flush := len(p.pending) >= p.batchSz
	p.mu.Unlock()

	if flush {
		return p.Flush(ctx)
	}
	return nil
}

// Flush writes all queued closed bars.
func (p *TickProcessor) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := p.writer.StoreBatch(ctx, batch, domrepo.H15m); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("candle_store")
		}
		// put the batch back so a later flush retries it
		p.mu.Lock()
		p.pending = append(batch, p.pending...)
		p.mu.Unlock()
		return fmt.Errorf("store candles: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("candle_store_seconds", time.Since(start).Seconds())
	}
	return nil
}

// Close flushes whatever remains and releases the writer.
func (p *TickProcessor) Close(ctx context.Context) error {
	if err := p.Flush(ctx); err != nil {
		return err
	}
	return p.writer.Close()
}

func newBar(t *models.Tick, bucket time.Time) *models.Candle {
	return &models.Candle{
		Bucket: bucket,
		Symbol: t.Symbol,
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Volume,
	}
}

func foldTick(c *models.Candle, t *models.Tick) {
	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume += t.Volume
}

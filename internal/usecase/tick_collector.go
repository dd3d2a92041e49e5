package usecase

import (
	"context"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	mid "ForecastArena/internal/middleware"
)

// TickCollector reads the live market stream and feeds the ingest
// pipeline so candle storage keeps up with the market between
// benchmark runs.
type TickCollector struct {
	stream  domrepo.MarketStream
	proc    *TickProcessor
	metrics domrepo.Metrics
	pipe    *mid.IngestPipeline
}

func NewTickCollector(stream domrepo.MarketStream, proc *TickProcessor, metrics domrepo.Metrics, pipe *mid.IngestPipeline) *TickCollector {
	return &TickCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tkCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tkCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tkCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-tkCh:
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.proc.Process(ctx, t)
			}
		}
	}
}

// Processor returns the underlying TickProcessor for lifecycle management.
func (c *TickCollector) Processor() *TickProcessor { return c.proc }

// Shutdown stops the pipeline, flushes the processor, and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	if err := c.proc.Close(ctx); err != nil {
		_ = c.stream.Close()
		return err
	}
	return c.stream.Close()
}

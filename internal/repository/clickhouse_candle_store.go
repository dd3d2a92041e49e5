package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	pkgch "ForecastArena/pkg/clickhouse"
	applogger "ForecastArena/pkg/logger"
)

// CHCandleStore serves and ingests candles from ClickHouse. Each
// horizon reads its own bar table, so the resolver always gets bars at
// the granularity its lookback is defined in.
type CHCandleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client) *CHCandleStore {
	return &CHCandleStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, h domrepo.Horizon) ([]models.Candle, error) {
	start := time.Now()
	table, err := tableForHorizon(h)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `
	q := fmt.Sprintf(qtpl, table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logErr("get_candles query error", table, symbol, h, err)
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logErr("get_candles scan error", table, symbol, h, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logErr("get_candles rows error", table, symbol, h, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_candles ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.String("horizon", string(h)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, h domrepo.Horizon) ([]models.Candle, error) {
	table, err := tableForHorizon(h)
	if err != nil {
		return nil, err
	}
	const qtpl = `
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	q := fmt.Sprintf(qtpl, table)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.logErr("latest_candles query error", table, symbol, h, err)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logErr("latest_candles scan error", table, symbol, h, err)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		s.logErr("latest_candles rows error", table, symbol, h, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

// StoreBatch inserts closed bars into the horizon's table.
func (s *CHCandleStore) StoreBatch(ctx context.Context, candles []models.Candle, h domrepo.Horizon) error {
	if len(candles) == 0 {
		return nil
	}
	table, err := tableForHorizon(h)
	if err != nil {
		return err
	}
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, c := range candles[start:end] {
			if c.Symbol == "" || c.Bucket.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, c.Bucket, c.Symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (bucket, symbol, open, high, low, close, vol) VALUES %s", table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store candles: %w", err)
		}
	}
	return nil
}

func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHCandleStore) Close() error {
	return nil // connection managed by pkg
}

func (s *CHCandleStore) logErr(msg, table, symbol string, h domrepo.Horizon, err error) {
	if s.l == nil {
		return
	}
	s.l.Error("clickhouse "+msg,
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.String("horizon", string(h)),
		applogger.Error(err),
	)
}

func tableForHorizon(h domrepo.Horizon) (string, error) {
	cfg, err := domrepo.ConfigFor(h)
	if err != nil {
		return "", err
	}
	switch cfg.BarSize {
	case time.Minute:
		return "arena.candles_1m", nil
	case 5 * time.Minute:
		return "arena.candles_5m", nil
	case 15 * time.Minute:
		return "arena.candles_15m", nil
	case time.Hour:
		return "arena.candles_1h", nil
	default:
		return "", fmt.Errorf("no table for bar size %s", cfg.BarSize)
	}
}

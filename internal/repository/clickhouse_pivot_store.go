package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ForecastArena/internal/domain/models"
	"ForecastArena/internal/domain/repository"
)

// CHPivotStore serves confirmed pivot events from an annotation table
// maintained outside the benchmark loop.
type CHPivotStore struct {
	db    *sql.DB
	table string
}

func NewCHPivotStore(db *sql.DB, table string) repository.PivotProvider {
	if table == "" {
		table = "arena.pivot_events"
	}
	return &CHPivotStore{db: db, table: table}
}

func (s *CHPivotStore) ConfirmedPivots(ctx context.Context, symbol string, h repository.Horizon, from, to time.Time) ([]models.PivotEvent, error) {
	q := fmt.Sprintf(`SELECT symbol, event_time, price, confirmed
        FROM %s
        WHERE symbol = ? AND horizon = ? AND confirmed = 1 AND event_time >= ? AND event_time < ?
        ORDER BY event_time ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(h), from, to)
	if err != nil {
		return nil, fmt.Errorf("query pivots: %w", err)
	}
	defer rows.Close()

	var events []models.PivotEvent
	for rows.Next() {
		var ev models.PivotEvent
		var confirmed uint8
		if err := rows.Scan(&ev.Symbol, &ev.Time, &ev.Price, &confirmed); err != nil {
			return nil, fmt.Errorf("scan pivot: %w", err)
		}
		ev.Confirmed = confirmed != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}

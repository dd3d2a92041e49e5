package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ForecastArena/internal/domain/models"
	"ForecastArena/internal/domain/repository"
)

// CHAuditStore persists the append-only audit trail in ClickHouse.
type CHAuditStore struct {
	db    *sql.DB
	table string
}

func NewCHAuditStore(db *sql.DB, table string) repository.AuditStore {
	if table == "" {
		table = "arena.audit_records"
	}
	return &CHAuditStore{db: db, table: table}
}

func (s *CHAuditStore) Store(ctx context.Context, rec *models.AuditRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (benchmark_id, model_id, symbol, horizon, round, snap_time, prediction, label, log_loss, brier, baseline_delta, failed, fail_reason)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		rec.BenchmarkID,
		rec.ModelID,
		rec.Symbol,
		rec.Horizon,
		rec.Round,
		rec.SnapTime,
		rec.Prediction,
		rec.Label,
		rec.LogLoss,
		rec.Brier,
		rec.BaselineDelta,
		rec.Failed,
		rec.FailReason,
	)
	if err != nil {
		return fmt.Errorf("store audit record: %w", err)
	}
	return nil
}

func (s *CHAuditStore) Query(ctx context.Context, benchmarkID, modelID string, h repository.Horizon, limit int) ([]*models.AuditRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := fmt.Sprintf(`SELECT benchmark_id, model_id, symbol, horizon, round, snap_time, prediction, label, log_loss, brier, baseline_delta, failed, fail_reason
        FROM %s
        WHERE benchmark_id = ? AND model_id = ? AND horizon = ?
        ORDER BY round ASC
        LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, benchmarkID, modelID, string(h), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		var snap time.Time
		if err := rows.Scan(
			&rec.BenchmarkID, &rec.ModelID, &rec.Symbol, &rec.Horizon, &rec.Round,
			&snap, &rec.Prediction, &rec.Label, &rec.LogLoss, &rec.Brier,
			&rec.BaselineDelta, &rec.Failed, &rec.FailReason,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.SnapTime = snap
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *CHAuditStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

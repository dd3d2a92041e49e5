package models

import "time"

// AuditRecord is one append-only line in the benchmark audit trail:
// model x horizon x round. BaselineDelta is the log-loss improvement
// over a constant 0.5 predictor (ln 2 - logLoss).
type AuditRecord struct {
	BenchmarkID   string    `json:"benchmark_id"`
	ModelID       string    `json:"model_id"`
	Symbol        string    `json:"symbol"`
	Horizon       string    `json:"horizon"`
	Round         int       `json:"round"`
	SnapTime      time.Time `json:"snap_time"`
	Prediction    float64   `json:"prediction"`
	Label         bool      `json:"label"`
	LogLoss       float64   `json:"log_loss"`
	Brier         float64   `json:"brier"`
	BaselineDelta float64   `json:"baseline_delta"`
	Failed        bool      `json:"failed"`
	FailReason    string    `json:"fail_reason,omitempty"`
}

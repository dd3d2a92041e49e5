package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	pkgkafka "ForecastArena/pkg/kafka"
)

// KafkaAuditHandler consumes audit records from the audit topic and
// persists them. The trail is append-only: records are stored as they
// arrive and never updated.
type KafkaAuditHandler struct {
	topic   string
	store   domrepo.AuditStore
	metrics domrepo.Metrics
}

func NewKafkaAuditHandler(topic string, store domrepo.AuditStore, metrics domrepo.Metrics) *KafkaAuditHandler {
	return &KafkaAuditHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaAuditHandler) Topic() string { return h.topic }

func (h *KafkaAuditHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.AuditRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("audit_unmarshal")
		return err
	}
	if rec.BenchmarkID == "" || rec.ModelID == "" {
		h.metrics.RecordError("audit_incomplete")
		return nil // poison records are dropped, not retried
	}

	start := time.Now()
	if err := h.store.Store(ctx, &rec); err != nil {
		h.metrics.RecordError("audit_store")
		return err
	}
	h.metrics.RecordLatency("audit_store_seconds", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaAuditHandler)(nil)

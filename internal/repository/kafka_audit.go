package repository

import (
	"context"

	"ForecastArena/internal/domain/models"
	"ForecastArena/internal/domain/repository"
	pkgkafka "ForecastArena/pkg/kafka"
)

// KafkaAuditSink publishes audit records to the audit topic. Records
// are keyed by model id so one model's trail stays ordered within a
// partition.
type KafkaAuditSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAuditSink(producer *pkgkafka.Producer, topic string) repository.AuditSink {
	return &KafkaAuditSink{producer: producer, topic: topic}
}

func (p *KafkaAuditSink) Append(ctx context.Context, rec *models.AuditRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.ModelID), rec)
}

func (p *KafkaAuditSink) AppendBatch(ctx context.Context, recs []*models.AuditRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(rec.ModelID),
			Value: rec,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaAuditSink) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

package repository

import (
	"context"

	"RiskScore/internal/domain/models"
	"RiskScore/internal/domain/repository"
	pkgkafka "RiskScore/pkg/kafka"
)

// KafkaVerdictPublisher implements VerdictPublisher for Kafka. Events are
// keyed by verdict kind so one kind stays on one partition.
type KafkaVerdictPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaVerdictPublisher creates a Kafka verdict publisher.
func NewKafkaVerdictPublisher(producer *pkgkafka.Producer, topic string) repository.VerdictPublisher {
	return &KafkaVerdictPublisher{producer: producer, topic: topic}
}

func (p *KafkaVerdictPublisher) Publish(ctx context.Context, ev *models.VerdictEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Kind), ev)
}

func (p *KafkaVerdictPublisher) PublishBatch(ctx context.Context, evs []*models.VerdictEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(evs))
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(ev.Kind), Value: ev})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared and closed by the app.
func (p *KafkaVerdictPublisher) Close() error { return nil }

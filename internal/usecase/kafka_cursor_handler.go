package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	pkgkafka "RiskScore/pkg/kafka"
)

// KafkaCursorHandler saves cursor sessions published on a Kafka topic.
type KafkaCursorHandler struct {
	topic    string
	sessions *CursorSessions
	metrics  domrepo.Metrics
}

func NewKafkaCursorHandler(topic string, sessions *CursorSessions, metrics domrepo.Metrics) *KafkaCursorHandler {
	return &KafkaCursorHandler{topic: topic, sessions: sessions, metrics: metrics}
}

func (h *KafkaCursorHandler) Topic() string { return h.topic }

// incoming message schema: {sessionId, events: [{x, y, time_ms}]}
func (h *KafkaCursorHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		SessionID string                  `json:"sessionId"`
		Events    []models.MovementSample `json:"events"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("%w: decode cursor message: %v", pkgkafka.ErrPermanent, err)
	}
	if m.SessionID == "" || len(m.Events) == 0 {
		h.recordError("consumer_invalid")
		return fmt.Errorf("%w: cursor message needs sessionId and events", pkgkafka.ErrPermanent)
	}

	start := time.Now()
	n, err := h.sessions.Save(ctx, m.SessionID, m.Events)
	if h.metrics != nil {
		h.metrics.RecordLatency("cursor_ingest_seconds", time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, ErrEmptySession) {
			return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
		}
		h.recordError("consumer_store")
		return err
	}
	if h.metrics != nil && n > 0 {
		h.metrics.RecordMessageSent("kafka_ingest", h.topic)
	}
	return nil
}

func (h *KafkaCursorHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaCursorHandler)(nil)

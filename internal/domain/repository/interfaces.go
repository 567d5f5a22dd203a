package repository

import (
	"context"
	"errors"
	"time"

	"RiskScore/internal/domain/models"
)

// ErrSessionNotFound is returned when a cursor session does not exist.
var ErrSessionNotFound = errors.New("cursor session not found")

// CursorStore persists captured cursor sessions. Append adds events to the
// end of an existing session's trace and keeps its creation time.
type CursorStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Exists(ctx context.Context, sessionID string) (bool, error)
	Append(ctx context.Context, s models.CursorSession) error
	Get(ctx context.Context, sessionID string) (models.CursorSession, error)
	// List returns sessions created at or after since, oldest first.
	List(ctx context.Context, since time.Time, limit int) ([]models.CursorSession, error)
	CountSessions(ctx context.Context) (int, error)
	OldestSession(ctx context.Context) (string, bool, error)
	Delete(ctx context.Context, sessionID string) error
	Health(ctx context.Context) error // ping
	Close() error
}

// VerdictPublisher ships verdict audit events downstream.
type VerdictPublisher interface {
	Publish(ctx context.Context, ev *models.VerdictEvent) error
	PublishBatch(ctx context.Context, evs []*models.VerdictEvent) error
	Close() error
}

// Metrics records pipeline and verdict counters.
type Metrics interface {
	RecordMessageSent(backend, topic string)
	RecordError(kind string)
	RecordVerdict(kind, label string)
	RecordLatency(op string, seconds float64)
}

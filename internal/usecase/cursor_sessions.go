package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	"RiskScore/pkg/logger"
)

// ErrEmptySession is returned when a session is saved without events.
var ErrEmptySession = errors.New("cursor session has no events")

// MouseAnalyzer scores a movement trace.
type MouseAnalyzer interface {
	AnalyzeMouse(ctx context.Context, samples []models.MovementSample) (models.MouseVerdict, error)
}

// CursorSessions captures pointer traces per session and scores stored
// traces on demand. At most maxSessions sessions are retained; saving a new
// session at the cap evicts the oldest one first.
type CursorSessions struct {
	store       domrepo.CursorStore
	analyzer    MouseAnalyzer
	maxSessions int
	metrics     domrepo.Metrics
	log         *logger.Logger
	now         func() time.Time

	// serializes the count/evict/save sequence
	mu sync.Mutex
}

func NewCursorSessions(store domrepo.CursorStore, analyzer MouseAnalyzer, maxSessions int, metrics domrepo.Metrics, log *logger.Logger) *CursorSessions {
	if maxSessions <= 0 {
		maxSessions = 100
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CursorSessions{
		store:       store,
		analyzer:    analyzer,
		maxSessions: maxSessions,
		metrics:     metrics,
		log:         log,
		now:         time.Now,
	}
}

// Save appends events to the trace of sessionID, creating the session when
// it is new. It returns the number of events saved by this call.
func (s *CursorSessions) Save(ctx context.Context, sessionID string, events []models.MovementSample) (int, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("session id is required")
	}
	if len(events) == 0 {
		return 0, ErrEmptySession
	}
	start := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.store.Exists(ctx, sessionID)
	if err != nil {
		s.recordError("cursor_exists")
		return 0, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		if err := s.evictIfFull(ctx); err != nil {
			s.recordError("cursor_evict")
			return 0, err
		}
	}

	err = s.store.Append(ctx, models.CursorSession{
		SessionID: sessionID,
		Events:    events,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.recordError("cursor_save")
		return 0, fmt.Errorf("save session: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordMessageSent("cursor_store", "cursor_events")
		s.metrics.RecordLatency("cursor_save", s.now().Sub(start).Seconds())
	}
	return len(events), nil
}

func (s *CursorSessions) evictIfFull(ctx context.Context) error {
	n, err := s.store.CountSessions(ctx)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	for ; n >= s.maxSessions; n-- {
		oldest, ok, err := s.store.OldestSession(ctx)
		if err != nil {
			return fmt.Errorf("find oldest session: %w", err)
		}
		if !ok {
			return nil
		}
		if err := s.store.Delete(ctx, oldest); err != nil {
			return fmt.Errorf("evict session %s: %w", oldest, err)
		}
		s.log.Debug("cursor session evicted", logger.String("session_id", oldest))
	}
	return nil
}

// List returns sessions created at or after since, oldest first.
func (s *CursorSessions) List(ctx context.Context, since time.Time, limit int) ([]models.CursorSession, error) {
	sessions, err := s.store.List(ctx, since, limit)
	if err != nil {
		s.recordError("cursor_list")
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Analyze runs the stored trace of sessionID through the mouse path.
// Unknown sessions yield repository.ErrSessionNotFound.
func (s *CursorSessions) Analyze(ctx context.Context, sessionID string) (models.MouseVerdict, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domrepo.ErrSessionNotFound) {
			s.recordError("cursor_get")
		}
		return models.MouseVerdict{}, err
	}
	return s.analyzer.AnalyzeMouse(ctx, sess.Events)
}

func (s *CursorSessions) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}

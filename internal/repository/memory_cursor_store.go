package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
)

// MemoryCursorStore keeps cursor sessions in process memory.
type MemoryCursorStore struct {
	mu       sync.RWMutex
	sessions map[string]models.CursorSession
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{sessions: make(map[string]models.CursorSession)}
}

func (s *MemoryCursorStore) Init(context.Context) error { return nil }

func (s *MemoryCursorStore) Exists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *MemoryCursorStore) Append(_ context.Context, sess models.CursorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.sessions[sess.SessionID]; ok {
		prev.Events = append(slices.Clip(prev.Events), sess.Events...)
		s.sessions[sess.SessionID] = prev
		return nil
	}
	sess.Events = slices.Clone(sess.Events)
	s.sessions[sess.SessionID] = sess
	return nil
}

func (s *MemoryCursorStore) Get(_ context.Context, sessionID string) (models.CursorSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return models.CursorSession{}, domrepo.ErrSessionNotFound
	}
	sess.Events = slices.Clone(sess.Events)
	return sess, nil
}

func (s *MemoryCursorStore) List(_ context.Context, since time.Time, limit int) ([]models.CursorSession, error) {
	s.mu.RLock()
	out := make([]models.CursorSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.CreatedAt.Before(since) {
			continue
		}
		sess.Events = slices.Clone(sess.Events)
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sortSessions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryCursorStore) CountSessions(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func (s *MemoryCursorStore) OldestSession(context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest *models.CursorSession
	for id := range s.sessions {
		sess := s.sessions[id]
		if oldest == nil || olderThan(sess, *oldest) {
			oldest = &sess
		}
	}
	if oldest == nil {
		return "", false, nil
	}
	return oldest.SessionID, true, nil
}

func (s *MemoryCursorStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryCursorStore) Health(context.Context) error { return nil }

func (s *MemoryCursorStore) Close() error { return nil }

// creation time, then session id
func olderThan(a, b models.CursorSession) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.SessionID < b.SessionID
}

func sortSessions(ss []models.CursorSession) {
	sort.Slice(ss, func(i, j int) bool { return olderThan(ss[i], ss[j]) })
}

var _ domrepo.CursorStore = (*MemoryCursorStore)(nil)

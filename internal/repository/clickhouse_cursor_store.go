package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	pkgch "RiskScore/pkg/clickhouse"
	applogger "RiskScore/pkg/logger"
)

const cursorTable = "cursor_sessions"

// Rows are versioned by updated_at; reads use FINAL so a session shows the
// row carrying its full accumulated trace.
var cursorSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + cursorTable + ` (
        session_id String,
        created_at DateTime64(3, 'UTC'),
        updated_at DateTime64(3, 'UTC'),
        events     String
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY session_id`,
}

// CHCursorStore implements CursorStore backed by ClickHouse.
type CHCursorStore struct {
	ch  *pkgch.Client
	db  *sql.DB
	l   *applogger.Logger
	now func() time.Time
}

func NewCHCursorStore(ch *pkgch.Client) *CHCursorStore {
	return &CHCursorStore{ch: ch, db: ch.DB(), l: applogger.Nop(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHCursorStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *CHCursorStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, cursorSchema)
}

func (s *CHCursorStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	var n uint64
	q := `SELECT count() FROM ` + cursorTable + ` FINAL WHERE session_id = ?`
	if err := s.db.QueryRowContext(ctx, q, sessionID).Scan(&n); err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return n > 0, nil
}

// Append rewrites the session row with the stored events followed by
// sess.Events. Callers serialize appends to the same session.
func (s *CHCursorStore) Append(ctx context.Context, sess models.CursorSession) error {
	start := s.now()
	merged := sess.Events
	createdAt := sess.CreatedAt

	q := `SELECT session_id, created_at, events FROM ` + cursorTable + ` FINAL WHERE session_id = ?`
	switch prev, err := scanSession(s.db.QueryRowContext(ctx, q, sess.SessionID)); {
	case err == nil:
		createdAt = prev.CreatedAt
		merged = mergeEvents(prev.Events, sess.Events)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("read session: %w", err)
	}

	events, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}

	ins := `INSERT INTO ` + cursorTable + ` (session_id, created_at, updated_at, events) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, ins, sess.SessionID, createdAt.UTC(), s.now().UTC(), string(events)); err != nil {
		s.l.Error("clickhouse save_session error",
			applogger.String("session_id", sess.SessionID),
			applogger.Error(err),
		)
		return fmt.Errorf("insert session: %w", err)
	}
	s.l.Debug("clickhouse save_session ok",
		applogger.String("session_id", sess.SessionID),
		applogger.Int("appended", len(sess.Events)),
		applogger.Int("events", len(merged)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func mergeEvents(stored, added []models.MovementSample) []models.MovementSample {
	out := make([]models.MovementSample, 0, len(stored)+len(added))
	out = append(out, stored...)
	return append(out, added...)
}

func (s *CHCursorStore) Get(ctx context.Context, sessionID string) (models.CursorSession, error) {
	q := `SELECT session_id, created_at, events FROM ` + cursorTable + ` FINAL WHERE session_id = ?`
	sess, err := scanSession(s.db.QueryRowContext(ctx, q, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CursorSession{}, domrepo.ErrSessionNotFound
	}
	if err != nil {
		return models.CursorSession{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *CHCursorStore) List(ctx context.Context, since time.Time, limit int) ([]models.CursorSession, error) {
	q := `SELECT session_id, created_at, events FROM ` + cursorTable + ` FINAL
        WHERE created_at >= ?
        ORDER BY created_at ASC, session_id ASC`
	args := []interface{}{since.UTC()}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse list_sessions query error", applogger.Error(err))
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]models.CursorSession, 0, 64)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHCursorStore) CountSessions(ctx context.Context) (int, error) {
	var n uint64
	if err := s.db.QueryRowContext(ctx, `SELECT count() FROM `+cursorTable+` FINAL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return int(n), nil
}

func (s *CHCursorStore) OldestSession(ctx context.Context) (string, bool, error) {
	var id string
	q := `SELECT session_id FROM ` + cursorTable + ` FINAL ORDER BY created_at ASC, session_id ASC LIMIT 1`
	switch err := s.db.QueryRowContext(ctx, q).Scan(&id); {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("oldest session: %w", err)
	}
	return id, true, nil
}

// Delete uses a lightweight delete so the row is hidden immediately.
func (s *CHCursorStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+cursorTable+` WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *CHCursorStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHCursorStore) Close() error { return s.ch.Close() }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(r rowScanner) (models.CursorSession, error) {
	var (
		sess   models.CursorSession
		events string
	)
	if err := r.Scan(&sess.SessionID, &sess.CreatedAt, &events); err != nil {
		return models.CursorSession{}, err
	}
	if err := json.Unmarshal([]byte(events), &sess.Events); err != nil {
		return models.CursorSession{}, fmt.Errorf("decode events of %s: %w", sess.SessionID, err)
	}
	return sess, nil
}

var _ domrepo.CursorStore = (*CHCursorStore)(nil)

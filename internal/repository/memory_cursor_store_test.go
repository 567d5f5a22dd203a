package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func session(id string, at time.Time, xs ...float64) models.CursorSession {
	s := models.CursorSession{SessionID: id, CreatedAt: at}
	for i, x := range xs {
		s.Events = append(s.Events, models.MovementSample{X: x, Y: x, TimeMs: float64(i * 10)})
	}
	return s
}

func TestMemoryStoreAppendKeepsCreationTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCursorStore()

	require.NoError(t, s.Append(ctx, session("a", t0, 1)))
	require.NoError(t, s.Append(ctx, session("a", t0.Add(time.Hour), 5, 6)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, t0, got.CreatedAt)
	require.Len(t, got.Events, 3)
	assert.Equal(t, []float64{1, 5, 6}, []float64{got.Events[0].X, got.Events[1].X, got.Events[2].X})

	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStoreAppendDoesNotAliasCallerSlices(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCursorStore()
	first := session("a", t0, 1, 2)
	require.NoError(t, s.Append(ctx, first))
	first.Events[0].X = 99

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Events[1].X = 42
	require.NoError(t, s.Append(ctx, session("a", t0, 3)))

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	require.Len(t, again.Events, 3)
	assert.Equal(t, 1.0, again.Events[0].X)
	assert.Equal(t, 2.0, again.Events[1].X)
	assert.Equal(t, 3.0, again.Events[2].X)
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	_, err := NewMemoryCursorStore().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domrepo.ErrSessionNotFound)
}

func TestMemoryStoreListAndOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCursorStore()
	require.NoError(t, s.Append(ctx, session("late", t0.Add(2*time.Minute), 1)))
	require.NoError(t, s.Append(ctx, session("early", t0, 1)))
	require.NoError(t, s.Append(ctx, session("mid", t0.Add(time.Minute), 1)))

	all, err := s.List(ctx, time.Time{}, 0)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, sess := range all {
		ids[i] = sess.SessionID
	}
	assert.Equal(t, []string{"early", "mid", "late"}, ids)

	recent, err := s.List(ctx, t0.Add(time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "mid", recent[0].SessionID)

	oldest, ok, err := s.OldestSession(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "early", oldest)

	require.NoError(t, s.Delete(ctx, "early"))
	exists, err := s.Exists(ctx, "early")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCursorStore()
	require.NoError(t, s.Append(ctx, session("a", t0, 1, 2)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	got.Events[0].X = 99

	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Events[0].X)
}

func TestOldestSessionEmpty(t *testing.T) {
	_, ok, err := NewMemoryCursorStore().OldestSession(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

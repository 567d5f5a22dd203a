package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	"RiskScore/internal/repository"
	pkgkafka "RiskScore/pkg/kafka"
)

type stubAnalyzer struct {
	got []models.MovementSample
}

func (a *stubAnalyzer) AnalyzeMouse(_ context.Context, s []models.MovementSample) (models.MouseVerdict, error) {
	a.got = s
	return models.MouseVerdict{AnomalyScore: 0.2, IsAnomaly: false, Label: models.LabelNormal}, nil
}

func newSessions(t *testing.T, max int) (*CursorSessions, *repository.MemoryCursorStore, *stubAnalyzer) {
	t.Helper()
	store := repository.NewMemoryCursorStore()
	an := &stubAnalyzer{}
	cs := NewCursorSessions(store, an, max, nil, nil)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cs.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return cs, store, an
}

var trace = []models.MovementSample{{X: 0, Y: 0, TimeMs: 0}, {X: 3, Y: 4, TimeMs: 10}}

func TestSaveReturnsCount(t *testing.T) {
	cs, _, _ := newSessions(t, 10)

	n, err := cs.Save(context.Background(), "s1", trace)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSaveAppendsToExistingSession(t *testing.T) {
	ctx := context.Background()
	cs, store, an := newSessions(t, 10)

	n, err := cs.Save(ctx, "s1", trace)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = cs.Save(ctx, "s1", []models.MovementSample{{X: 6, Y: 8, TimeMs: 20}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Events, 3)
	assert.Equal(t, 20.0, sess.Events[2].TimeMs)

	_, err = cs.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, an.got, 3)
}

func TestSaveRejectsEmpty(t *testing.T) {
	cs, _, _ := newSessions(t, 10)

	_, err := cs.Save(context.Background(), "s1", nil)
	assert.ErrorIs(t, err, ErrEmptySession)
}

func TestSaveEvictsOldestAtCap(t *testing.T) {
	ctx := context.Background()
	cs, store, _ := newSessions(t, 3)
	for i := 1; i <= 3; i++ {
		_, err := cs.Save(ctx, fmt.Sprintf("s%d", i), trace)
		require.NoError(t, err)
	}

	// appending to an existing session never evicts
	_, err := cs.Save(ctx, "s2", trace[:1])
	require.NoError(t, err)
	n, _ := store.CountSessions(ctx)
	assert.Equal(t, 3, n)

	_, err = cs.Save(ctx, "s4", trace)
	require.NoError(t, err)

	n, _ = store.CountSessions(ctx)
	assert.Equal(t, 3, n)
	exists, _ := store.Exists(ctx, "s1")
	assert.False(t, exists)
	for _, id := range []string{"s2", "s3", "s4"} {
		exists, _ := store.Exists(ctx, id)
		assert.True(t, exists, id)
	}
}

func TestListSince(t *testing.T) {
	ctx := context.Background()
	cs, _, _ := newSessions(t, 10)
	for _, id := range []string{"a", "b", "c"} {
		_, err := cs.Save(ctx, id, trace)
		require.NoError(t, err)
	}

	all, err := cs.List(ctx, time.Time{}, 100)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].SessionID)

	later, err := cs.List(ctx, all[1].CreatedAt, 100)
	require.NoError(t, err)
	require.Len(t, later, 2)
	assert.Equal(t, "b", later[0].SessionID)
}

func TestAnalyzeStoredSession(t *testing.T) {
	ctx := context.Background()
	cs, _, an := newSessions(t, 10)
	_, err := cs.Save(ctx, "s1", trace)
	require.NoError(t, err)

	v, err := cs.Analyze(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.LabelNormal, v.Label)
	assert.Equal(t, trace, an.got)

	_, err = cs.Analyze(ctx, "missing")
	assert.ErrorIs(t, err, domrepo.ErrSessionNotFound)
}

func TestKafkaCursorHandler(t *testing.T) {
	ctx := context.Background()
	cs, store, _ := newSessions(t, 10)
	h := NewKafkaCursorHandler("cursor-events", cs, nil)
	assert.Equal(t, "cursor-events", h.Topic())

	require.NoError(t, h.Handle(ctx, []byte(`{"sessionId":"k1","events":[{"x":1,"y":2,"time_ms":3}]}`)))
	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []models.MovementSample{{X: 1, Y: 2, TimeMs: 3}}, got.Events)

	err = h.Handle(ctx, []byte(`not json`))
	assert.True(t, errors.Is(err, pkgkafka.ErrPermanent))

	err = h.Handle(ctx, []byte(`{"sessionId":"k2","events":[]}`))
	assert.True(t, errors.Is(err, pkgkafka.ErrPermanent))
}

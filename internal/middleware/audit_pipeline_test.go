package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskScore/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordVerdict(string, string) {}
func (nopMetrics) RecordLatency(string, float64) {}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]*models.VerdictEvent
	fails   int
}

func (f *fakePublisher) Publish(ctx context.Context, ev *models.VerdictEvent) error {
	return f.PublishBatch(ctx, []*models.VerdictEvent{ev})
}

func (f *fakePublisher) PublishBatch(_ context.Context, evs []*models.VerdictEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("broker down")
	}
	f.batches = append(f.batches, append([]*models.VerdictEvent(nil), evs...))
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func event(id string, kind models.VerdictKind) *models.VerdictEvent {
	return &models.VerdictEvent{ID: id, Kind: kind, Label: "NORMAL", At: time.Now()}
}

func TestPipelineFlushesFullBatch(t *testing.T) {
	pub := &fakePublisher{}
	p := NewAuditPipeline(pub, nopMetrics{}, WithBatching(2, time.Hour))
	p.Start(context.Background())
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.NoError(t, p.Submit(context.Background(), event("1", models.KindMouse)))
	require.NoError(t, p.Submit(context.Background(), event("2", models.KindFraud)))

	assert.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPipelineFlushesOnStop(t *testing.T) {
	pub := &fakePublisher{}
	p := NewAuditPipeline(pub, nopMetrics{}, WithBatching(100, time.Hour))
	p.Start(context.Background())

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.Submit(context.Background(), event(id, models.KindTabular)))
	}
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, 3, pub.count())
	assert.ErrorIs(t, p.Submit(context.Background(), event("d", models.KindTabular)), ErrPipelineClosed)
}

func TestPipelineRetriesFailedBatch(t *testing.T) {
	pub := &fakePublisher{fails: 2}
	p := NewAuditPipeline(pub, nopMetrics{},
		WithBatching(1, time.Hour),
		WithRetry(3, time.Millisecond, 2*time.Millisecond),
	)
	p.Start(context.Background())
	t.Cleanup(func() { _ = p.Stop(context.Background()) })

	require.NoError(t, p.Submit(context.Background(), event("1", models.KindFraud)))
	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPipelineRejectsInvalidEvents(t *testing.T) {
	p := NewAuditPipeline(&fakePublisher{}, nopMetrics{})

	assert.Error(t, p.Submit(context.Background(), nil))
	assert.Error(t, p.Submit(context.Background(), &models.VerdictEvent{ID: "x", Kind: "other", At: time.Now()}))
	assert.Error(t, p.Submit(context.Background(), &models.VerdictEvent{Kind: models.KindMouse, At: time.Now()}))
}

func TestPipelineBufferFull(t *testing.T) {
	// not started, so nothing drains the buffer
	p := NewAuditPipeline(&fakePublisher{}, nopMetrics{}, WithBufferSize(1))

	require.NoError(t, p.Submit(context.Background(), event("1", models.KindMouse)))
	assert.ErrorIs(t, p.Submit(context.Background(), event("2", models.KindMouse)), ErrBufferFull)
}

func TestPipelineThrottlePerKind(t *testing.T) {
	pub := &fakePublisher{}
	p := NewAuditPipeline(pub, nopMetrics{}, WithMaxRPS(1), WithBufferSize(10))

	require.NoError(t, p.Submit(context.Background(), event("1", models.KindMouse)))
	require.NoError(t, p.Submit(context.Background(), event("2", models.KindMouse)))
	require.NoError(t, p.Submit(context.Background(), event("3", models.KindFraud)))

	assert.Len(t, p.bufCh, 2)
}

package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *recordingPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *recordingPublisher) snapshot() [][]AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]AggregatedLogEntry(nil), p.batches...)
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	fields := map[string]interface{}{"route": "/predict-fraud"}
	c.AddLog("error", "model call failed", fields, "handler.go:10")
	c.AddLog("error", "model call failed", fields, "handler.go:10")
	c.AddLog("error", "cache write failed", nil, "dispatcher.go:20")
	c.Close()

	batches := pub.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, "logs", pub.topic)
	require.Len(t, batches[0], 2)

	counts := map[string]int{}
	for _, e := range batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 2, counts["model call failed"])
	assert.Equal(t, 1, counts["cache write failed"])
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	assert.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestLoggerFeedsCollector(t *testing.T) {
	pub := &recordingPublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	l.With(String("component", "test")).Error("boom", Error(errors.New("bad")))
	l.Info("not collected")
	l.RemoveCollector()

	batches := pub.snapshot()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "boom", batches[0][0].Message)
	assert.Equal(t, "bad", batches[0][0].Fields["error"])
}

package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookChainOrderAndPanicSafety(t *testing.T) {
	var calls []string
	record := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				calls = append(calls, "before:"+name)
				return ctx, km, data, nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				calls = append(calls, "after:"+name)
			},
		}
	}
	panicky := HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { panic("boom") }}

	chain := NewHookChain(record("a"), nil, panicky, record("b"))
	ctx, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	require.NoError(t, err)
	chain.AfterHandle(ctx, "t", kafka.Message{}, nil, nil)

	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, calls)
}

func TestHookChainBeforePanicBecomesError(t *testing.T) {
	chain := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("bad hook")
		},
	})
	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))

	var hookErr *HookError
	require.True(t, errors.As(err, &hookErr))
	assert.Equal(t, "ERR_PANIC", hookErr.Code)
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TraceHook().BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
	_, ok := StartTime(ctx)
	assert.True(t, ok)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
	assert.LessOrEqual(t, backoffWithJitter(min, max, 1), min)
}

func TestEncodeValue(t *testing.T) {
	b, err := EncodeValue(map[string]int{"count": 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2}`, string(b))

	b, err = EncodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	_, err = EncodeValue(func() {})
	assert.Error(t, err)
}

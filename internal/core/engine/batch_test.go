package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunBatchPreservesInputOrder(t *testing.T) {
	keys := []string{"aapl", "msft", "tsla", "nvda", "goog"}

	items, err := RunBatch(context.Background(), keys, BatchOptions{Concurrency: 3}, func(_ context.Context, key string) (string, error) {
		return strings.ToUpper(key), nil
	})
	require.NoError(t, err)
	require.Len(t, items, len(keys))
	for i, item := range items {
		require.Equal(t, i, item.Index)
		require.Equal(t, keys[i], item.Key)
		require.Equal(t, strings.ToUpper(keys[i]), item.Value)
		require.NoError(t, item.Err)
	}
}

func TestRunBatchBoundsConcurrency(t *testing.T) {
	var (
		active  atomic.Int32
		maxSeen atomic.Int32
	)
	keys := make([]string, 12)
	for i := range keys {
		keys[i] = string(rune('a' + i))
	}

	_, err := RunBatch(context.Background(), keys, BatchOptions{Concurrency: 2}, func(_ context.Context, _ string) (int, error) {
		n := active.Add(1)
		for {
			seen := maxSeen.Load()
			if n <= seen || maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		return 0, nil
	})
	require.NoError(t, err)
	require.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestRunBatchCollectsPerItemErrors(t *testing.T) {
	boom := errors.New("boom")
	items, err := RunBatch(context.Background(), []string{"ok", "bad", "ok2"}, BatchOptions{}, func(_ context.Context, key string) (int, error) {
		if key == "bad" {
			return 0, boom
		}
		return len(key), nil
	})
	require.NoError(t, err)
	require.NoError(t, items[0].Err)
	require.ErrorIs(t, items[1].Err, boom)
	require.Equal(t, 3, items[2].Value)
}

func TestRunBatchFailFast(t *testing.T) {
	boom := errors.New("boom")
	_, err := RunBatch(context.Background(), []string{"a", "b", "c", "d"}, BatchOptions{Concurrency: 1, FailFast: true}, func(_ context.Context, key string) (int, error) {
		if key == "b" {
			return 0, boom
		}
		return 1, nil
	})
	require.ErrorIs(t, err, boom)
}

func TestRunBatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, []string{"a", "b"}, BatchOptions{}, func(ctx context.Context, _ string) (int, error) {
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunBatchEmpty(t *testing.T) {
	items, err := RunBatch(context.Background(), nil, BatchOptions{}, func(context.Context, string) (int, error) {
		return 0, nil
	})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestRunBatchThroughCooperativeLimiter(t *testing.T) {
	clock := newFakeClock()
	recorder := &waitRecorder{}
	limiter := NewCooperativeLimiter(NewRequestLog(3, time.Second))
	limiter.Clock = clock.Now
	limiter.Wait = recorder.Wait

	keys := []string{"a", "b", "c", "d", "e"}
	items, err := RunBatch(context.Background(), keys, BatchOptions{Concurrency: 5}, func(ctx context.Context, key string) (string, error) {
		if err := limiter.Acquire(ctx); err != nil {
			return "", err
		}
		return key, nil
	})
	require.NoError(t, err)
	require.Len(t, items, 5)
	require.Len(t, recorder.waits, 2)
}

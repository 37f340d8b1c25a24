package engine

import (
	"context"
	"sync"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 4

// BatchOptions controls a fan-out run.
type BatchOptions struct {
	Concurrency int
	// FailFast cancels outstanding work on the first error and returns it.
	FailFast bool
}

// BatchItem is the outcome for one input key.
type BatchItem[T any] struct {
	Index int
	Key   string
	Value T
	Err   error
}

type batchJob struct {
	index int
	key   string
}

// RunBatch applies fn to every key using a bounded worker pool and returns one
// item per key in input order. Without FailFast, per-key errors are reported
// on their items and the run only fails if ctx ends.
func RunBatch[T any](ctx context.Context, keys []string, opts BatchOptions, fn func(ctx context.Context, key string) (T, error)) ([]BatchItem[T], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(keys) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]BatchItem[T], len(keys))
	jobs := make(chan batchJob)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	setErr := func(err error) {
		if err == nil {
			return
		}
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	worker := func() {
		defer wg.Done()
		for job := range jobs {
			if ctx.Err() != nil {
				results[job.index] = BatchItem[T]{Index: job.index, Key: job.key, Err: ctx.Err()}
				continue
			}
			value, err := fn(ctx, job.key)
			results[job.index] = BatchItem[T]{Index: job.index, Key: job.key, Value: value, Err: err}
			if err != nil && opts.FailFast {
				setErr(err)
			}
		}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(keys) {
		concurrency = len(keys)
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for i, key := range keys {
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- batchJob{index: i, key: key}:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Batcher splits a unit of work into fixed-size batches and gates batch
// starts behind a token bucket. Members of one batch run concurrently;
// batches run strictly in submission order, each waiting for a bucket
// token before starting. With the default one-token-per-second bucket at
// most batchSize calls begin within any one-second window.
type Batcher struct {
	batchSize int
	limiter   *rate.Limiter
}

// NewBatcher creates a Batcher with the given batch size and a bucket
// refilling one batch token per second (burst 1).
func NewBatcher(batchSize int) *Batcher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Batcher{
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// NewBatcherWithRate creates a Batcher starting up to batchesPerSecond
// batches per second with the given burst.
func NewBatcherWithRate(batchSize int, batchesPerSecond float64, burst int) *Batcher {
	if batchSize < 1 {
		batchSize = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Batcher{
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(batchesPerSecond), burst),
	}
}

// BatchSize returns the configured batch size.
func (b *Batcher) BatchSize() int {
	return b.batchSize
}

// Do runs worker for indexes [0, n). Each batch fans out over its member
// indexes and joins before the next batch is considered. The first worker
// error aborts the run: in-flight members of the failing batch complete,
// later batches never start. Context cancellation aborts between batches.
func (b *Batcher) Do(ctx context.Context, n int, worker func(ctx context.Context, idx int) error) error {
	for start := 0; start < n; start += b.batchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		end := start + b.batchSize
		if end > n {
			end = n
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			batchErr error
		)
		for idx := start; idx < end; idx++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				if err := worker(ctx, idx); err != nil {
					mu.Lock()
					if batchErr == nil {
						batchErr = err
					}
					mu.Unlock()
				}
			}(idx)
		}
		wg.Wait()

		if batchErr != nil {
			return batchErr
		}
	}
	return nil
}

// DoRanges runs fn once per batch with the half-open index range
// [start, end). Use it when the batch members are dispatched together
// in a single call (e.g. a multicall) instead of fanned out here.
// Batches remain sequential behind the bucket; the first error aborts
// later batches.
func (b *Batcher) DoRanges(ctx context.Context, n int, fn func(ctx context.Context, start, end int) error) error {
	for start := 0; start < n; start += b.batchSize {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}

		end := start + b.batchSize
		if end > n {
			end = n
		}

		if err := fn(ctx, start, end); err != nil {
			return err
		}
	}
	return nil
}

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBatcher_SplitsIntoBatches(t *testing.T) {
	const tasks = 25
	const ceiling = 18

	b := NewBatcher(ceiling)

	var mu sync.Mutex
	starts := make([]time.Time, tasks)

	err := b.Do(context.Background(), tasks, func(ctx context.Context, idx int) error {
		mu.Lock()
		starts[idx] = time.Now()
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	for i, ts := range starts {
		if ts.IsZero() {
			t.Fatalf("task %d never ran", i)
		}
	}

	// 25 tasks at 18 per batch means exactly two batches; the second
	// batch must not start before the bucket refills.
	firstBatchStart := starts[0]
	for i := 1; i < ceiling; i++ {
		if starts[i].Before(firstBatchStart) {
			firstBatchStart = starts[i]
		}
	}
	secondBatchStart := starts[ceiling]
	for i := ceiling + 1; i < tasks; i++ {
		if starts[i].Before(secondBatchStart) {
			secondBatchStart = starts[i]
		}
	}

	gap := secondBatchStart.Sub(firstBatchStart)
	if gap < time.Second {
		t.Errorf("second batch started %v after first, want >= 1s", gap)
	}
	if gap > 3*time.Second {
		t.Errorf("second batch started %v after first, suspiciously late", gap)
	}
}

func TestBatcher_ErrorAbortsLaterBatches(t *testing.T) {
	b := NewBatcherWithRate(2, 1000, 1000)

	var mu sync.Mutex
	ran := make(map[int]bool)
	wantErr := errors.New("rpc down")

	err := b.Do(context.Background(), 6, func(ctx context.Context, idx int) error {
		mu.Lock()
		ran[idx] = true
		mu.Unlock()
		if idx == 1 {
			return wantErr
		}
		return nil
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() error = %v, want %v", err, wantErr)
	}

	mu.Lock()
	defer mu.Unlock()
	for idx := 2; idx < 6; idx++ {
		if ran[idx] {
			t.Errorf("task %d ran after batch failure", idx)
		}
	}
}

func TestBatcher_ContextCancelled(t *testing.T) {
	b := NewBatcher(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, 3, func(ctx context.Context, idx int) error {
		t.Error("worker ran with cancelled context")
		return nil
	})
	if err == nil {
		t.Fatal("Do() with cancelled context returned nil error")
	}
}

func TestBatcher_MinimumBatchSize(t *testing.T) {
	b := NewBatcher(0)
	if got := b.BatchSize(); got != 1 {
		t.Errorf("BatchSize() = %d, want 1", got)
	}
}

func TestBatcher_DoRanges(t *testing.T) {
	b := NewBatcher(18)

	var calls [][2]int
	var starts []time.Time

	err := b.DoRanges(context.Background(), 25, func(ctx context.Context, start, end int) error {
		calls = append(calls, [2]int{start, end})
		starts = append(starts, time.Now())
		return nil
	})
	if err != nil {
		t.Fatalf("DoRanges() error = %v", err)
	}

	want := [][2]int{{0, 18}, {18, 25}}
	if len(calls) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(calls), len(want))
	}
	for i, r := range want {
		if calls[i] != r {
			t.Errorf("range %d = %v, want %v", i, calls[i], r)
		}
	}

	if gap := starts[1].Sub(starts[0]); gap < time.Second {
		t.Errorf("second range started %v after first, want >= 1s", gap)
	}
}

func TestBatcher_DoRangesErrorAborts(t *testing.T) {
	b := NewBatcherWithRate(2, 1000, 1000)

	wantErr := errors.New("multicall failed")
	calls := 0

	err := b.DoRanges(context.Background(), 6, func(ctx context.Context, start, end int) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("DoRanges() error = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("fn called %d times after failure, want 1", calls)
	}
}

func TestBatcher_RunsAllMembersConcurrently(t *testing.T) {
	const size = 8
	b := NewBatcher(size)

	var mu sync.Mutex
	inFlight, peak := 0, 0

	err := b.Do(context.Background(), size, func(ctx context.Context, idx int) error {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if peak < 2 {
		t.Errorf("peak concurrency = %d, want batch members to overlap", peak)
	}
}

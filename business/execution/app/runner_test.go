package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	chain "github.com/flashcycle/flashcycle/business/chain/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
)

func newRunner(t *testing.T, cycle CycleFn) *Runner {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	r, err := NewRunner(RunnerConfig{Mode: ModeInterval, Interval: time.Second}, nil, cycle, log)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func waitIdle(t *testing.T, r *Runner) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.inFlight.Load() {
		if time.Now().After(deadline) {
			t.Fatal("cycle never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunner_StaleBlocksDropped(t *testing.T) {
	var mu sync.Mutex
	var processed []uint64

	r := newRunner(t, func(ctx context.Context, blockNumber uint64) error {
		mu.Lock()
		processed = append(processed, blockNumber)
		mu.Unlock()
		return nil
	})

	ctx := context.Background()
	for _, n := range []uint64{100, 99, 101} {
		r.onBlock(ctx, &chain.Block{Number: n})
		waitIdle(t, r)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []uint64{100, 101}
	if len(processed) != len(want) {
		t.Fatalf("processed %v, want %v", processed, want)
	}
	for i, n := range want {
		if processed[i] != n {
			t.Errorf("processed[%d] = %d, want %d", i, processed[i], n)
		}
	}
}

func TestRunner_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan uint64, 4)

	var mu sync.Mutex
	calls := 0

	r := newRunner(t, func(ctx context.Context, blockNumber uint64) error {
		mu.Lock()
		calls++
		mu.Unlock()
		started <- blockNumber
		<-release
		return nil
	})

	ctx := context.Background()

	r.onBlock(ctx, &chain.Block{Number: 100})
	<-started

	// Second trigger arrives while the first cycle is running: dropped.
	r.onBlock(ctx, &chain.Block{Number: 101})

	close(release)
	waitIdle(t, r)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 1 {
		t.Fatalf("cycle ran %d times, want 1 (second trigger dropped)", got)
	}

	// A block after the cycle completed is processed normally.
	r.onBlock(ctx, &chain.Block{Number: 102})
	<-started
	waitIdle(t, r)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("cycle ran %d times after new block, want 2", calls)
	}
}

func TestRunner_CycleFailureDoesNotHaltLoop(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	r := newRunner(t, func(ctx context.Context, blockNumber uint64) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return context.DeadlineExceeded // any error
	})

	ctx := context.Background()
	r.onBlock(ctx, &chain.Block{Number: 100})
	waitIdle(t, r)
	r.onBlock(ctx, &chain.Block{Number: 101})
	waitIdle(t, r)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("cycle ran %d times, want 2 (failures must not halt the loop)", calls)
	}
}

func TestRunner_BlockModeRequiresSource(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	if _, err := NewRunner(RunnerConfig{Mode: ModeBlocks}, nil, func(ctx context.Context, n uint64) error { return nil }, log); err == nil {
		t.Fatal("expected error for block mode without source")
	}
}

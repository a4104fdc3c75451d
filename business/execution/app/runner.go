package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chain "github.com/flashcycle/flashcycle/business/chain/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
)

// Mode selects what drives the quoting loop.
type Mode string

const (
	// ModeInterval re-quotes on a fixed ticker.
	ModeInterval Mode = "interval"
	// ModeBlocks re-quotes once per new block.
	ModeBlocks Mode = "blocks"
)

// BlockSource supplies the block stream for ModeBlocks.
type BlockSource interface {
	SubscribeBlocks(ctx context.Context) (<-chan *chain.Block, error)
}

// CycleFn runs one full quote-and-decide cycle. blockNumber is zero in
// interval mode.
type CycleFn func(ctx context.Context, blockNumber uint64) error

// RunnerConfig holds loop configuration.
type RunnerConfig struct {
	Mode     Mode
	Interval time.Duration // ModeInterval only
}

type runnerMetrics struct {
	cyclesRun     metric.Int64Counter
	cycleErrors   metric.Int64Counter
	blocksDropped metric.Int64Counter
	cycleLatency  metric.Float64Histogram
}

// Runner drives the quoting cycle. In block mode a cycle already in
// flight makes new blocks drop (single-flight), and blocks at or below
// the highest processed number drop as stale. Cycle failures are logged
// and the loop keeps going; only context cancellation stops it.
type Runner struct {
	config RunnerConfig
	blocks BlockSource
	cycle  CycleFn
	logger logger.LoggerInterface

	inFlight  atomic.Bool
	lastBlock atomic.Uint64

	tracer  trace.Tracer
	metrics *runnerMetrics
}

// NewRunner creates a new Runner. blocks may be nil in interval mode.
func NewRunner(cfg RunnerConfig, blocks BlockSource, cycle CycleFn, log logger.LoggerInterface) (*Runner, error) {
	if cfg.Mode == ModeBlocks && blocks == nil {
		return nil, fmt.Errorf("block mode requires a block source")
	}

	r := &Runner{
		config: cfg,
		blocks: blocks,
		cycle:  cycle,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return r, nil
}

func (r *Runner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &runnerMetrics{}

	r.metrics.cyclesRun, err = meter.Int64Counter(
		"cycles_total",
		metric.WithDescription("Quoting cycles started"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return err
	}

	r.metrics.cycleErrors, err = meter.Int64Counter(
		"cycle_errors_total",
		metric.WithDescription("Quoting cycles that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	r.metrics.blocksDropped, err = meter.Int64Counter(
		"blocks_dropped_total",
		metric.WithDescription("Blocks dropped as stale or while a cycle was in flight"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	r.metrics.cycleLatency, err = meter.Float64Histogram(
		"cycle_latency_ms",
		metric.WithDescription("Duration of one quoting cycle"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	switch r.config.Mode {
	case ModeInterval:
		return r.runInterval(ctx)
	case ModeBlocks:
		return r.runBlocks(ctx)
	default:
		return fmt.Errorf("unknown mode %q", r.config.Mode)
	}
}

func (r *Runner) runInterval(ctx context.Context) error {
	r.logger.Info(ctx, "starting interval loop", "interval", r.config.Interval)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "loop stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			r.runCycle(ctx, 0)
		}
	}
}

func (r *Runner) runBlocks(ctx context.Context) error {
	blocks, err := r.blocks.SubscribeBlocks(ctx)
	if err != nil {
		return fmt.Errorf("subscribe blocks: %w", err)
	}

	r.logger.Info(ctx, "starting block-driven loop")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "loop stopping", "reason", ctx.Err())
			return ctx.Err()
		case block, ok := <-blocks:
			if !ok {
				return fmt.Errorf("block stream closed")
			}
			if block == nil {
				continue
			}
			r.onBlock(ctx, block)
		}
	}
}

// onBlock applies the stale filter, then the single-flight guard, and
// runs the cycle inline so triggers arriving meanwhile are dropped, not
// queued.
func (r *Runner) onBlock(ctx context.Context, block *chain.Block) {
	if block.Number <= r.lastBlock.Load() {
		r.metrics.blocksDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "stale")))
		r.logger.Debug(ctx, "dropping stale block", "number", block.Number, "last", r.lastBlock.Load())
		return
	}

	if !r.inFlight.CompareAndSwap(false, true) {
		r.metrics.blocksDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "in_flight")))
		r.logger.Debug(ctx, "dropping block, cycle in flight", "number", block.Number)
		return
	}

	r.lastBlock.Store(block.Number)

	go func() {
		defer r.inFlight.Store(false)
		r.runCycle(ctx, block.Number)
	}()
}

func (r *Runner) runCycle(ctx context.Context, blockNumber uint64) {
	ctx, span := r.tracer.Start(ctx, "execution.cycle",
		trace.WithAttributes(attribute.Int64("block", int64(blockNumber))),
	)
	defer span.End()

	r.metrics.cyclesRun.Add(ctx, 1)
	began := time.Now()

	if err := r.cycle(ctx, blockNumber); err != nil {
		r.metrics.cycleErrors.Add(ctx, 1)
		span.RecordError(err)
		r.logger.Error(ctx, "cycle failed", "block", blockNumber, "error", err)
	}

	r.metrics.cycleLatency.Record(ctx, float64(time.Since(began).Milliseconds()))
}

// LastBlock returns the highest block number accepted for processing.
func (r *Runner) LastBlock() uint64 {
	return r.lastBlock.Load()
}

package app

import (
	"context"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	discovery "github.com/flashcycle/flashcycle/business/discovery/domain"
	liquidity "github.com/flashcycle/flashcycle/business/liquidity/domain"
	quoting "github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
)

// PoolAggregator refreshes pool metadata across all venues.
type PoolAggregator interface {
	FeeTierMap(ctx context.Context) (liquidity.FeeTierMap, error)
}

// RouteBuilder assembles quotable routes from cycles and pools.
type RouteBuilder interface {
	Build(ctx context.Context, cycles discovery.CycleSet, feeTiers liquidity.FeeTierMap, startAmounts map[string]*big.Int) []routing.RouteDetail
}

// RouteQuoter prices assembled routes on chain.
type RouteQuoter interface {
	Quote(ctx context.Context, routes []routing.RouteDetail) ([]quoting.RouteQuote, error)
}

// Pipeline is one full detection cycle: refresh pools, rebuild routes,
// quote them and evaluate. Cycles are enumerated once at startup and
// reused; pool metadata is re-read each cycle so the venue caches
// control its freshness.
type Pipeline struct {
	cycles       discovery.CycleSet
	startAmounts map[string]*big.Int

	pools     PoolAggregator
	builder   RouteBuilder
	quoter    RouteQuoter
	evaluator *Evaluator
	logger    logger.LoggerInterface
	tracer    trace.Tracer
}

// NewPipeline wires the detection cycle.
func NewPipeline(cycles discovery.CycleSet, startAmounts map[string]*big.Int, pools PoolAggregator, builder RouteBuilder, quoter RouteQuoter, evaluator *Evaluator, log logger.LoggerInterface) *Pipeline {
	return &Pipeline{
		cycles:       cycles,
		startAmounts: startAmounts,
		pools:        pools,
		builder:      builder,
		quoter:       quoter,
		evaluator:    evaluator,
		logger:       log,
		tracer:       otel.Tracer(tracerName),
	}
}

// Cycle runs one detection pass. It satisfies CycleFn.
func (p *Pipeline) Cycle(ctx context.Context, blockNumber uint64) error {
	ctx, span := p.tracer.Start(ctx, "execution.cycle",
		trace.WithAttributes(attribute.Int64("block", int64(blockNumber))),
	)
	defer span.End()

	feeTiers, err := p.pools.FeeTierMap(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "pool refresh failed")
		return err
	}

	routes := p.builder.Build(ctx, p.cycles, feeTiers, p.startAmounts)
	if len(routes) == 0 {
		p.logger.Debug(ctx, "no quotable routes this cycle", "block", blockNumber)
		span.SetStatus(codes.Ok, "no routes")
		return nil
	}

	quotes, err := p.quoter.Quote(ctx, routes)
	if err != nil {
		span.SetStatus(codes.Error, "quoting failed")
		return err
	}

	p.evaluator.Evaluate(ctx, quotes, blockNumber)

	span.SetAttributes(attribute.Int("routes", len(routes)))
	span.SetStatus(codes.Ok, "cycle complete")
	return nil
}

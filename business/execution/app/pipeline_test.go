package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	discovery "github.com/flashcycle/flashcycle/business/discovery/domain"
	liquidity "github.com/flashcycle/flashcycle/business/liquidity/domain"
	quoting "github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
)

type fakeAggregator struct {
	calls int
	err   error
}

func (f *fakeAggregator) FeeTierMap(ctx context.Context) (liquidity.FeeTierMap, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return liquidity.FeeTierMap{}, nil
}

type fakeBuilder struct {
	routes []routing.RouteDetail
}

func (f *fakeBuilder) Build(ctx context.Context, cycles discovery.CycleSet, feeTiers liquidity.FeeTierMap, startAmounts map[string]*big.Int) []routing.RouteDetail {
	return f.routes
}

type fakeRouteQuoter struct {
	calls int
	err   error
}

func (f *fakeRouteQuoter) Quote(ctx context.Context, routes []routing.RouteDetail) ([]quoting.RouteQuote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	quotes := make([]quoting.RouteQuote, len(routes))
	for i, route := range routes {
		quotes[i] = quoting.RouteQuote{Route: route, Err: errors.New("skipped")}
	}
	return quotes, nil
}

func newPipeline(t *testing.T, agg PoolAggregator, builder RouteBuilder, quoter RouteQuoter) *Pipeline {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	ev := newEvaluator(t, EvaluatorConfig{BorrowCostBps: 25, MinMarginBps: 5}, &fakeExecutor{}, nil)
	return NewPipeline(discovery.CycleSet{}, nil, agg, builder, quoter, ev, log)
}

func TestCycle_PoolFailureShortCircuits(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("analytics down")}
	quoter := &fakeRouteQuoter{}
	p := newPipeline(t, agg, &fakeBuilder{}, quoter)

	if err := p.Cycle(context.Background(), 10); err == nil {
		t.Fatal("expected pool refresh error to propagate")
	}
	if quoter.calls != 0 {
		t.Errorf("quoter called %d times after pool failure", quoter.calls)
	}
}

func TestCycle_NoRoutesSkipsQuoting(t *testing.T) {
	quoter := &fakeRouteQuoter{}
	p := newPipeline(t, &fakeAggregator{}, &fakeBuilder{}, quoter)

	if err := p.Cycle(context.Background(), 10); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if quoter.calls != 0 {
		t.Errorf("quoter called %d times with no routes", quoter.calls)
	}
}

func TestCycle_QuotesBuiltRoutes(t *testing.T) {
	quoter := &fakeRouteQuoter{}
	builder := &fakeBuilder{routes: []routing.RouteDetail{{Symbol: "AAA -> BBB"}}}
	p := newPipeline(t, &fakeAggregator{}, builder, quoter)

	if err := p.Cycle(context.Background(), 10); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if quoter.calls != 1 {
		t.Errorf("quoter called %d times, want 1", quoter.calls)
	}
}

func TestCycle_QuoteFailurePropagates(t *testing.T) {
	quoter := &fakeRouteQuoter{err: errors.New("rpc down")}
	builder := &fakeBuilder{routes: []routing.RouteDetail{{Symbol: "AAA -> BBB"}}}
	p := newPipeline(t, &fakeAggregator{}, builder, quoter)

	if err := p.Cycle(context.Background(), 10); err == nil {
		t.Fatal("expected quote error to propagate")
	}
}

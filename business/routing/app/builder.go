// Package app contains the swap-path building service for the routing context.
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
	"github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
)

const tracerName = "github.com/flashcycle/flashcycle/business/routing/app"

// Builder assembles RouteDetails from token cycles and fee-tier maps.
type Builder struct {
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewBuilder creates a new Builder.
func NewBuilder(log logger.LoggerInterface) *Builder {
	return &Builder{
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Build produces one RouteDetail per routable cycle. Cycles with a hop
// lacking candidates are dropped whole; cycles whose starting token has
// no configured amount are skipped. Neither is an error.
func (b *Builder) Build(ctx context.Context, cycles discovery.CycleSet, feeTiers liquidity.FeeTierMap, startAmounts map[string]*big.Int) []domain.RouteDetail {
	ctx, span := b.tracer.Start(ctx, "routing.build",
		trace.WithAttributes(attribute.Int("cycles", cycles.Total())),
	)
	defer span.End()

	var routes []domain.RouteDetail
	dropped := 0
	skipped := 0

	for _, group := range cycles {
		for _, cycle := range group {
			amount, ok := startAmounts[cycle.Start().Symbol]
			if !ok {
				skipped++
				continue
			}

			path, ok := b.buildPath(cycle, feeTiers)
			if !ok {
				dropped++
				continue
			}

			routes = append(routes, domain.RouteDetail{
				Symbol:        cycle.Symbol(),
				InitialAmount: new(big.Int).Set(amount),
				Path:          path,
			})
		}
	}

	b.logger.Debug(ctx, "swap paths built",
		"routes", len(routes), "dropped", dropped, "skipped", skipped)

	span.SetAttributes(
		attribute.Int("routes", len(routes)),
		attribute.Int("dropped", dropped),
	)
	span.SetStatus(codes.Ok, "built")

	return routes
}

// buildPath assembles the cycle's hops, wrapping last back to first.
// Returns false as soon as any hop has no candidates.
func (b *Builder) buildPath(cycle discovery.TokenCycle, feeTiers liquidity.FeeTierMap) (domain.SwapPath, bool) {
	hops := make([]domain.SwapHop, 0, cycle.Len())

	for i := 0; i < cycle.Len(); i++ {
		tokenIn := cycle.Tokens[i]
		tokenOut := cycle.Tokens[(i+1)%cycle.Len()]

		key := liquidity.PairKey{In: tokenIn.Key(), Out: tokenOut.Key()}
		entries := feeTiers.Candidates(key)
		if len(entries) == 0 {
			return domain.SwapPath{}, false
		}

		candidates := make([]domain.QuoterCandidate, len(entries))
		for j, e := range entries {
			candidates[j] = domain.QuoterCandidate{
				Venue:    e.Venue,
				Protocol: e.Protocol,
				Factory:  e.Factory,
				Router:   e.Router,
				Permit:   e.Permit,
				FeeTier:  e.FeeTier,
			}
		}

		hops = append(hops, domain.SwapHop{
			TokenIn:    tokenIn,
			TokenOut:   tokenOut,
			Candidates: candidates,
		})
	}

	return domain.SwapPath{Hops: hops}, true
}

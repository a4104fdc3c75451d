package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/flashcycle/flashcycle/business/chain/app"
	"github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/apperror"
	"github.com/flashcycle/flashcycle/internal/circuitbreaker"
	"github.com/flashcycle/flashcycle/internal/logger"
)

const (
	tracerName = "github.com/flashcycle/flashcycle/business/quoting/infra/ethereum"
	meterName  = "github.com/flashcycle/flashcycle/business/quoting/infra/ethereum"
)

type quoterMetrics struct {
	multicalls metric.Int64Counter
	reverts    metric.Int64Counter
}

// Quoter prices routes against the on-chain route quoter, batching the
// calls through Multicall3 with allowFailure set so one reverting route
// never takes down its batch.
type Quoter struct {
	quoterAddr    common.Address
	multicallAddr common.Address
	pool          chainapp.ClientPool
	logger        logger.LoggerInterface

	quoterABI    abi.ABI
	multicallABI abi.ABI

	cb *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *quoterMetrics
}

// NewQuoter creates a Quoter bound to the deployed contract addresses.
func NewQuoter(quoterAddr, multicallAddr common.Address, pool chainapp.ClientPool, log logger.LoggerInterface) (*Quoter, error) {
	quoterABI, err := abi.JSON(strings.NewReader(RouteQuoterABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	multicallABI, err := abi.JSON(strings.NewReader(Multicall3ABI))
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	q := &Quoter{
		quoterAddr:    quoterAddr,
		multicallAddr: multicallAddr,
		pool:          pool,
		logger:        log,
		quoterABI:     quoterABI,
		multicallABI:  multicallABI,
		cb:            circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("route-quoter")),
		tracer:        otel.Tracer(tracerName),
	}

	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return q, nil
}

func (q *Quoter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &quoterMetrics{}

	q.metrics.multicalls, err = meter.Int64Counter(
		"quoter_multicalls_total",
		metric.WithDescription("Total aggregate3 round trips"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	q.metrics.reverts, err = meter.Int64Counter(
		"quoter_route_reverts_total",
		metric.WithDescription("Route quote calls that reverted"),
		metric.WithUnit("{revert}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// QuoteRoutes prices the given routes in one aggregate3 round trip.
func (q *Quoter) QuoteRoutes(ctx context.Context, routes []routing.RouteDetail) ([]domain.RouteQuote, error) {
	ctx, span := q.tracer.Start(ctx, "quoter.quote_routes",
		trace.WithAttributes(attribute.Int("routes", len(routes))),
	)
	defer span.End()

	if len(routes) == 0 {
		return nil, nil
	}

	calls := make([]Call3, len(routes))
	for i, route := range routes {
		callData, err := q.encodeRoute(route)
		if err != nil {
			span.RecordError(err)
			return nil, apperror.New(apperror.CodeContractCallFailed,
				apperror.WithCause(err),
				apperror.WithContext("encode route "+route.Symbol))
		}
		calls[i] = Call3{
			Target:       q.quoterAddr,
			AllowFailure: true,
			CallData:     callData,
		}
	}

	payload, err := q.multicallABI.Pack("aggregate3", calls)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("pack aggregate3"))
	}

	q.metrics.multicalls.Add(ctx, 1)

	client := q.pool.Next()
	raw, err := q.cb.Execute(func() ([]byte, error) {
		return client.CallContract(ctx, goethereum.CallMsg{
			To:   &q.multicallAddr,
			Data: payload,
		}, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "multicall failed")
		return nil, apperror.New(apperror.CodeMulticallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("aggregate3 of %d routes", len(routes))))
	}

	results, err := q.decodeMulticall(raw)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(results) != len(routes) {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("aggregate3 returned %d results for %d calls", len(results), len(routes))))
	}

	quotes := make([]domain.RouteQuote, len(routes))
	reverted := 0
	for i, res := range results {
		if !res.Success {
			reverted++
			quotes[i] = domain.RouteQuote{
				Route: routes[i],
				Err: apperror.New(apperror.CodeQuoteFailed,
					apperror.WithContext("quote reverted for "+routes[i].Symbol)),
			}
			continue
		}

		hops, err := q.decodeHops(routes[i], res.ReturnData)
		if err != nil {
			reverted++
			quotes[i] = domain.RouteQuote{Route: routes[i], Err: err}
			continue
		}
		quotes[i] = domain.RouteQuote{Route: routes[i], Hops: hops}
	}

	q.metrics.reverts.Add(ctx, int64(reverted))
	span.SetAttributes(attribute.Int("reverted", reverted))
	span.SetStatus(codes.Ok, "quoted")

	return quotes, nil
}

// encodeRoute packs one quoteBestRoute call.
func (q *Quoter) encodeRoute(route routing.RouteDetail) ([]byte, error) {
	hops := make([]SwapHop, len(route.Path.Hops))
	for i, hop := range route.Path.Hops {
		candidates := make([]Candidate, len(hop.Candidates))
		for j, c := range hop.Candidates {
			candidates[j] = Candidate{
				Factory: c.Factory,
				Fee:     big.NewInt(c.FeeTier),
			}
		}
		hops[i] = SwapHop{
			TokenIn:    hop.TokenIn.Address,
			TokenOut:   hop.TokenOut.Address,
			Candidates: candidates,
		}
	}

	return q.quoterABI.Pack("quoteBestRoute", route.InitialAmount, hops)
}

func (q *Quoter) decodeMulticall(raw []byte) ([]Call3Result, error) {
	out, err := q.multicallABI.Unpack("aggregate3", raw)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithCause(err),
			apperror.WithContext("unpack aggregate3"))
	}

	results := *abi.ConvertType(out[0], new([]Call3Result)).(*[]Call3Result)
	return results, nil
}

// decodeHops unpacks one quoteBestRoute return and resolves each chosen
// factory back to its venue.
func (q *Quoter) decodeHops(route routing.RouteDetail, returnData []byte) ([]domain.HopQuote, error) {
	out, err := q.quoterABI.Unpack("quoteBestRoute", returnData)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithCause(err),
			apperror.WithContext("unpack quoteBestRoute for "+route.Symbol))
	}

	results := *abi.ConvertType(out[0], new([]HopResult)).(*[]HopResult)
	if len(results) != len(route.Path.Hops) {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("%s: %d hop results for %d hops", route.Symbol, len(results), len(route.Path.Hops))))
	}

	venueByFactory := make(map[common.Address]string)
	for _, hop := range route.Path.Hops {
		for _, c := range hop.Candidates {
			venueByFactory[c.Factory] = c.Venue
		}
	}

	hops := make([]domain.HopQuote, len(results))
	for i, r := range results {
		hops[i] = domain.HopQuote{
			AmountIn:  r.AmountIn,
			AmountOut: r.AmountOut,
			Venue:     venueByFactory[r.Factory],
			FeeTier:   r.Fee.Int64(),
		}
	}
	return hops, nil
}

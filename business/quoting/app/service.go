package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
	"github.com/flashcycle/flashcycle/internal/ratelimit"
)

const (
	tracerName = "github.com/flashcycle/flashcycle/business/quoting/app"
	meterName  = "github.com/flashcycle/flashcycle/business/quoting/app"
)

type quoterMetrics struct {
	routesQuoted metric.Int64Counter
	routesFailed metric.Int64Counter
	batchLatency metric.Float64Histogram
}

// BatchQuoter prices route sets in throttled batches. Each batch goes
// out as one multicall; batches run sequentially behind the limiter so
// the node's calls-per-second ceiling is respected.
type BatchQuoter struct {
	quoter  ContractQuoter
	batcher *ratelimit.Batcher
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *quoterMetrics
}

// NewBatchQuoter creates a new BatchQuoter.
func NewBatchQuoter(quoter ContractQuoter, batcher *ratelimit.Batcher, log logger.LoggerInterface) (*BatchQuoter, error) {
	q := &BatchQuoter{
		quoter:  quoter,
		batcher: batcher,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return q, nil
}

func (q *BatchQuoter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &quoterMetrics{}

	q.metrics.routesQuoted, err = meter.Int64Counter(
		"quotes_routes_total",
		metric.WithDescription("Total routes quoted"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return err
	}

	q.metrics.routesFailed, err = meter.Int64Counter(
		"quotes_route_failures_total",
		metric.WithDescription("Routes whose quote call reverted"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return err
	}

	q.metrics.batchLatency, err = meter.Float64Histogram(
		"quotes_batch_latency_ms",
		metric.WithDescription("Latency of one quote batch"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Quote prices all routes. Per-route reverts come back as failed
// entries; a batch-level RPC failure aborts the remaining batches and
// is returned to the caller.
func (q *BatchQuoter) Quote(ctx context.Context, routes []routing.RouteDetail) ([]domain.RouteQuote, error) {
	ctx, span := q.tracer.Start(ctx, "quoting.quote",
		trace.WithAttributes(
			attribute.Int("routes", len(routes)),
			attribute.Int("batch_size", q.batcher.BatchSize()),
		),
	)
	defer span.End()

	quotes := make([]domain.RouteQuote, len(routes))

	err := q.batcher.DoRanges(ctx, len(routes), func(ctx context.Context, start, end int) error {
		began := time.Now()

		batch, err := q.quoter.QuoteRoutes(ctx, routes[start:end])
		q.metrics.batchLatency.Record(ctx, float64(time.Since(began).Milliseconds()))
		if err != nil {
			return err
		}
		copy(quotes[start:end], batch)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch aborted")
		return nil, err
	}

	failed := 0
	for _, quote := range quotes {
		if quote.Failed() {
			failed++
		}
	}
	q.metrics.routesQuoted.Add(ctx, int64(len(quotes)))
	q.metrics.routesFailed.Add(ctx, int64(failed))

	q.logger.Debug(ctx, "routes quoted", "total", len(quotes), "failed", failed)

	span.SetAttributes(attribute.Int("failed", failed))
	span.SetStatus(codes.Ok, "quoted")

	return quotes, nil
}

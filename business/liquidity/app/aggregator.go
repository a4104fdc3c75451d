package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/flashcycle/flashcycle/business/liquidity/domain"
	"github.com/flashcycle/flashcycle/internal/apperror"
	"github.com/flashcycle/flashcycle/internal/kvstore"
	"github.com/flashcycle/flashcycle/internal/logger"
)

const (
	tracerName = "github.com/flashcycle/flashcycle/business/liquidity/app"
	meterName  = "github.com/flashcycle/flashcycle/business/liquidity/app"
)

type aggregatorMetrics struct {
	fetches     metric.Int64Counter
	fetchErrors metric.Int64Counter
	cacheHits   metric.Int64Counter
	poolsServed metric.Int64Gauge
}

// VenueSource pairs a pool source with its refresh policy.
type VenueSource struct {
	Source   PoolSource
	PoolSize int           // top-K per ranking
	CacheTTL time.Duration // pool metadata refresh window
}

// Aggregator merges per-venue pool listings into directed fee-tier maps.
type Aggregator struct {
	sources []VenueSource
	store   kvstore.Store
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *aggregatorMetrics
}

// NewAggregator creates a new Aggregator.
func NewAggregator(sources []VenueSource, store kvstore.Store, log logger.LoggerInterface) (*Aggregator, error) {
	a := &Aggregator{
		sources: sources,
		store:   store,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &aggregatorMetrics{}

	a.metrics.fetches, err = meter.Int64Counter(
		"pool_metadata_fetches_total",
		metric.WithDescription("Total pool metadata fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	a.metrics.fetchErrors, err = meter.Int64Counter(
		"pool_metadata_fetch_errors_total",
		metric.WithDescription("Total pool metadata fetch failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	a.metrics.cacheHits, err = meter.Int64Counter(
		"pool_metadata_cache_hits_total",
		metric.WithDescription("Pool metadata cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	a.metrics.poolsServed, err = meter.Int64Gauge(
		"pool_metadata_pools",
		metric.WithDescription("Pools in the most recent merged map"),
		metric.WithUnit("{pool}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// FeeTierMap fetches every venue's pools and merges them into one
// directed map. Any venue failing aborts the whole refresh; partial
// maps are never returned.
func (a *Aggregator) FeeTierMap(ctx context.Context) (domain.FeeTierMap, error) {
	ctx, span := a.tracer.Start(ctx, "liquidity.fee_tier_map",
		trace.WithAttributes(attribute.Int("venues", len(a.sources))),
	)
	defer span.End()

	maps := make([]domain.FeeTierMap, 0, len(a.sources))
	total := 0

	for _, vs := range a.sources {
		pools, err := a.venuePools(ctx, vs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "venue fetch failed")
			return nil, err
		}
		total += len(pools)
		maps = append(maps, domain.NewFeeTierMap(vs.Source.Venue(), pools))
	}

	a.metrics.poolsServed.Record(ctx, int64(total))
	span.SetAttributes(attribute.Int("pools", total))
	span.SetStatus(codes.Ok, "merged")

	return domain.Merge(maps...), nil
}

// venuePools returns the deduplicated pool list for one venue, from the
// cache when fresh, otherwise fetched and written through.
func (a *Aggregator) venuePools(ctx context.Context, vs VenueSource) ([]domain.Pool, error) {
	venue := vs.Source.Venue()
	key := fmt.Sprintf("pools:%s-%d", venue.Name, vs.PoolSize)

	ctx, span := a.tracer.Start(ctx, "liquidity.venue_pools",
		trace.WithAttributes(attribute.String("venue", venue.Name)),
	)
	defer span.End()

	if raw, err := a.store.Get(ctx, key); err == nil {
		pools, decodeErr := domain.DecodePools(raw)
		if decodeErr == nil {
			a.metrics.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", venue.Name)))
			span.AddEvent("cache_hit")
			return pools, nil
		}
		a.logger.Warn(ctx, "discarding corrupt pool cache entry", "key", key, "error", decodeErr)
		_ = a.store.Remove(ctx, key)
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		a.logger.Warn(ctx, "pool cache read failed, refetching", "key", key, "error", err)
	}

	a.metrics.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", venue.Name)))

	byTx, err := vs.Source.TopPools(ctx, RankByTxCount, vs.PoolSize)
	if err != nil {
		a.metrics.fetchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", venue.Name)))
		return nil, apperror.New(apperror.CodePoolFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("venue %s ranking %s", venue.Name, RankByTxCount)))
	}

	byVolume, err := vs.Source.TopPools(ctx, RankByVolume, vs.PoolSize)
	if err != nil {
		a.metrics.fetchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", venue.Name)))
		return nil, apperror.New(apperror.CodePoolFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("venue %s ranking %s", venue.Name, RankByVolume)))
	}

	pools := domain.DedupePools(byTx, byVolume)

	raw, err := domain.EncodePools(pools)
	if err != nil {
		return nil, err
	}
	if err := a.store.Write(ctx, key, raw, vs.CacheTTL); err != nil {
		a.logger.Warn(ctx, "pool cache write failed", "key", key, "error", err)
	}

	a.logger.Info(ctx, "pool metadata refreshed",
		"venue", venue.Name, "pools", len(pools), "ttl", vs.CacheTTL)

	span.SetAttributes(attribute.Int("pools", len(pools)))
	span.SetStatus(codes.Ok, "fetched")

	return pools, nil
}

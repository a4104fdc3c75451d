// Package analytics implements PoolSource over a venue's subgraph endpoint.
package analytics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/flashcycle/flashcycle/business/liquidity/app"
	"github.com/flashcycle/flashcycle/business/liquidity/domain"
	"github.com/flashcycle/flashcycle/internal/apm"
	"github.com/flashcycle/flashcycle/internal/apperror"
	"github.com/flashcycle/flashcycle/internal/circuitbreaker"
	"github.com/flashcycle/flashcycle/internal/httpclient"
	"github.com/flashcycle/flashcycle/internal/logger"
	"github.com/flashcycle/flashcycle/internal/ratelimit"
)

const poolsQuery = `query topPools($limit: Int!, $orderBy: String!) {
  pools(first: $limit, orderBy: $orderBy, orderDirection: desc) {
    id
    feeTier
    txCount
    volumeUSD
    token0 { id symbol }
    token1 { id symbol }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type poolsResponse struct {
	Data struct {
		Pools []poolRecord `json:"pools"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type poolRecord struct {
	ID        string      `json:"id"`
	FeeTier   string      `json:"feeTier"`
	TxCount   string      `json:"txCount"`
	VolumeUSD string      `json:"volumeUSD"`
	Token0    tokenRecord `json:"token0"`
	Token1    tokenRecord `json:"token1"`
}

type tokenRecord struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// Source fetches pool listings from a subgraph endpoint. Requests are
// rate limited per endpoint and guarded by a circuit breaker.
type Source struct {
	venue   domain.Venue
	client  httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*poolsResponse]
	logger  logger.LoggerInterface
	tracer  apm.Tracer
}

// NewSource creates a Source for one venue's analytics endpoint.
func NewSource(venue domain.Venue, endpoint string, log logger.LoggerInterface) (*Source, error) {
	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName(venue.Name),
		httpclient.WithBaseURL(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("analytics client for %s: %w", venue.Name, err)
	}

	return &Source{
		venue:   venue,
		client:  client,
		limiter: ratelimit.New(2, 1), // subgraph endpoints throttle aggressively
		cb:      circuitbreaker.New[*poolsResponse](circuitbreaker.DefaultConfig("analytics-" + venue.Name)),
		logger:  log,
		tracer:  apm.NewTracer("github.com/flashcycle/flashcycle/business/liquidity/infra/analytics"),
	}, nil
}

// Venue describes the venue this source serves.
func (s *Source) Venue() domain.Venue {
	return s.venue
}

// TopPools returns the venue's top pools ordered by the given ranking.
func (s *Source) TopPools(ctx context.Context, ranking app.Ranking, limit int) ([]domain.Pool, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "analytics.top_pools")
	defer span.End()

	if err := s.limiter.Wait(ctx); err != nil {
		span.NoticeError(err)
		return nil, err
	}

	resp, err := s.cb.Execute(func() (*poolsResponse, error) {
		var out poolsResponse
		httpResp, err := s.client.NewRequest().
			SetBody(graphQLRequest{
				Query: poolsQuery,
				Variables: map[string]any{
					"limit":   limit,
					"orderBy": string(ranking),
				},
			}).
			SetResult(&out).
			Post(ctx, "")
		if err != nil {
			return nil, err
		}
		if httpResp.IsError() {
			return nil, fmt.Errorf("analytics endpoint returned %s", httpResp.Status)
		}
		if len(out.Errors) > 0 {
			return nil, fmt.Errorf("analytics query failed: %s", out.Errors[0].Message)
		}
		return &out, nil
	})
	if err != nil {
		span.NoticeError(err)
		return nil, apperror.New(apperror.CodePoolFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("venue %s ranking %s", s.venue.Name, ranking)))
	}

	pools := make([]domain.Pool, 0, len(resp.Data.Pools))
	for _, r := range resp.Data.Pools {
		p, err := s.toPool(r)
		if err != nil {
			// One malformed record poisons the whole fetch; partial
			// data must never be returned.
			return nil, apperror.New(apperror.CodePoolFetchFailed,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("venue %s pool %s", s.venue.Name, r.ID)))
		}
		pools = append(pools, p)
	}

	s.logger.Debug(ctx, "analytics pools fetched",
		"venue", s.venue.Name, "ranking", string(ranking), "pools", len(pools))

	return pools, nil
}

func (s *Source) toPool(r poolRecord) (domain.Pool, error) {
	if !common.IsHexAddress(r.ID) {
		return domain.Pool{}, fmt.Errorf("invalid pool address %q", r.ID)
	}
	if !common.IsHexAddress(r.Token0.ID) || !common.IsHexAddress(r.Token1.ID) {
		return domain.Pool{}, fmt.Errorf("invalid token address in pool %s", r.ID)
	}

	feeTier, err := strconv.ParseInt(r.FeeTier, 10, 64)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("invalid fee tier %q: %w", r.FeeTier, err)
	}

	txCount, err := strconv.ParseInt(r.TxCount, 10, 64)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("invalid tx count %q: %w", r.TxCount, err)
	}

	volume, err := decimal.NewFromString(r.VolumeUSD)
	if err != nil {
		return domain.Pool{}, fmt.Errorf("invalid volume %q: %w", r.VolumeUSD, err)
	}

	return domain.Pool{
		Venue:     s.venue.Name,
		Address:   common.HexToAddress(r.ID),
		Token0:    domain.PairToken{Symbol: r.Token0.Symbol, Address: common.HexToAddress(r.Token0.ID)},
		Token1:    domain.PairToken{Symbol: r.Token1.Symbol, Address: common.HexToAddress(r.Token1.ID)},
		FeeTier:   feeTier,
		VolumeUSD: volume,
		TxCount:   txCount,
	}, nil
}

// Package app contains application services and port definitions for the liquidity context.
package app

import (
	"context"

	"github.com/flashcycle/flashcycle/business/liquidity/domain"
)

// Ranking selects the metric a pool listing is ordered by.
type Ranking string

const (
	RankByTxCount Ranking = "txCount"
	RankByVolume  Ranking = "volumeUSD"
)

// PoolSource lists a venue's top pools by a ranking metric. Live
// analytics endpoints and static snapshots both implement it.
type PoolSource interface {
	// Venue describes the venue this source serves.
	Venue() domain.Venue

	// TopPools returns the top-limit pools ordered by the given ranking.
	// A source failure is an error; partial data is never returned.
	TopPools(ctx context.Context, ranking Ranking, limit int) ([]domain.Pool, error)
}

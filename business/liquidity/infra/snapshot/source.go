// Package snapshot implements PoolSource over a recorded on-disk pool listing.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/flashcycle/flashcycle/business/liquidity/app"
	"github.com/flashcycle/flashcycle/business/liquidity/domain"
	"github.com/flashcycle/flashcycle/internal/apperror"
)

// Source serves pool listings from a static snapshot file, for offline
// runs and deterministic tests. It applies the ranking and limit the
// same way a live endpoint would.
type Source struct {
	venue domain.Venue
	pools []domain.Pool
}

// NewSource loads a snapshot file of domain.Pool records.
func NewSource(venue domain.Venue, path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.New(apperror.CodeSnapshotNotFound,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("snapshot %s for venue %s", path, venue.Name)))
	}

	var pools []domain.Pool
	if err := json.Unmarshal(raw, &pools); err != nil {
		return nil, apperror.New(apperror.CodeSnapshotNotFound,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("corrupt snapshot %s", path)))
	}

	return &Source{venue: venue, pools: pools}, nil
}

// Venue describes the venue this source serves.
func (s *Source) Venue() domain.Venue {
	return s.venue
}

// TopPools returns the snapshot's top pools ordered by the given ranking.
func (s *Source) TopPools(ctx context.Context, ranking app.Ranking, limit int) ([]domain.Pool, error) {
	sorted := make([]domain.Pool, len(s.pools))
	copy(sorted, s.pools)

	switch ranking {
	case app.RankByTxCount:
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].TxCount > sorted[j].TxCount })
	case app.RankByVolume:
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].VolumeUSD.GreaterThan(sorted[j].VolumeUSD) })
	default:
		return nil, fmt.Errorf("unknown ranking %q", ranking)
	}

	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

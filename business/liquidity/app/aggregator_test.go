package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/flashcycle/flashcycle/business/liquidity/domain"
	"github.com/flashcycle/flashcycle/internal/apperror"
	"github.com/flashcycle/flashcycle/internal/kvstore"
	"github.com/flashcycle/flashcycle/internal/logger"
)

var (
	wbnb = domain.PairToken{Symbol: "WBNB", Address: common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")}
	usdt = domain.PairToken{Symbol: "USDT", Address: common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")}
	btcb = domain.PairToken{Symbol: "BTCB", Address: common.HexToAddress("0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c")}
)

type fakeSource struct {
	venue    domain.Venue
	byTx     []domain.Pool
	byVolume []domain.Pool
	err      error
	calls    int
}

func (f *fakeSource) Venue() domain.Venue { return f.venue }

func (f *fakeSource) TopPools(ctx context.Context, ranking Ranking, limit int) ([]domain.Pool, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if ranking == RankByTxCount {
		return f.byTx, nil
	}
	return f.byVolume, nil
}

func pool(venue string, addr string, t0, t1 domain.PairToken, fee int64) domain.Pool {
	return domain.Pool{
		Venue:   venue,
		Address: common.HexToAddress(addr),
		Token0:  t0,
		Token1:  t1,
		FeeTier: fee,
	}
}

func testVenue(name string) domain.Venue {
	return domain.Venue{
		Name:     name,
		Protocol: "v3",
		Factory:  common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865"),
		Router:   common.HexToAddress("0x13f4EA83D0bd40E75C8222255bc855a974568Dd4"),
	}
}

func newAggregator(t *testing.T, sources ...VenueSource) *Aggregator {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	a, err := NewAggregator(sources, kvstore.NewMemoryStore(), log)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return a
}

func TestFeeTierMap_DeduplicatesAcrossRankings(t *testing.T) {
	shared := pool("pancakeswap-v3", "0x1000000000000000000000000000000000000001", wbnb, usdt, 500)
	src := &fakeSource{
		venue:    testVenue("pancakeswap-v3"),
		byTx:     []domain.Pool{shared, pool("pancakeswap-v3", "0x1000000000000000000000000000000000000002", wbnb, btcb, 2500)},
		byVolume: []domain.Pool{shared}, // same address in both rankings
	}

	a := newAggregator(t, VenueSource{Source: src, PoolSize: 10, CacheTTL: time.Hour})

	m, err := a.FeeTierMap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := m.Candidates(domain.NewPairKey(wbnb, usdt))
	if len(entries) != 1 {
		t.Errorf("shared pool appears %d times, want 1", len(entries))
	}
}

func TestFeeTierMap_BothDirectionsInserted(t *testing.T) {
	src := &fakeSource{
		venue: testVenue("pancakeswap-v3"),
		byTx:  []domain.Pool{pool("pancakeswap-v3", "0x1000000000000000000000000000000000000001", wbnb, usdt, 500)},
	}

	a := newAggregator(t, VenueSource{Source: src, PoolSize: 10, CacheTTL: time.Hour})

	m, err := a.FeeTierMap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := m.Candidates(domain.NewPairKey(wbnb, usdt)); len(got) != 1 {
		t.Errorf("forward direction: got %d entries, want 1", len(got))
	}
	if got := m.Candidates(domain.NewPairKey(usdt, wbnb)); len(got) != 1 {
		t.Errorf("reverse direction: got %d entries, want 1", len(got))
	}
}

func TestFeeTierMap_EntriesSortedByFee(t *testing.T) {
	src := &fakeSource{
		venue: testVenue("pancakeswap-v3"),
		byTx: []domain.Pool{
			pool("pancakeswap-v3", "0x1000000000000000000000000000000000000001", wbnb, usdt, 2500),
			pool("pancakeswap-v3", "0x1000000000000000000000000000000000000002", wbnb, usdt, 100),
			pool("pancakeswap-v3", "0x1000000000000000000000000000000000000003", wbnb, usdt, 500),
		},
	}

	a := newAggregator(t, VenueSource{Source: src, PoolSize: 10, CacheTTL: time.Hour})

	m, err := a.FeeTierMap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := m.Candidates(domain.NewPairKey(wbnb, usdt))
	for i := 1; i < len(entries); i++ {
		if entries[i-1].FeeTier > entries[i].FeeTier {
			t.Errorf("entries not fee-ascending: %d before %d", entries[i-1].FeeTier, entries[i].FeeTier)
		}
	}
}

func TestFeeTierMap_SourceFailureSurfaces(t *testing.T) {
	src := &fakeSource{
		venue: testVenue("pancakeswap-v3"),
		err:   errors.New("endpoint down"),
	}

	a := newAggregator(t, VenueSource{Source: src, PoolSize: 10, CacheTTL: time.Hour})

	if _, err := a.FeeTierMap(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	} else if apperror.GetCode(err) != apperror.CodePoolFetchFailed {
		t.Errorf("got code %s, want %s", apperror.GetCode(err), apperror.CodePoolFetchFailed)
	}
}

func TestFeeTierMap_SecondCallServedFromCache(t *testing.T) {
	src := &fakeSource{
		venue: testVenue("pancakeswap-v3"),
		byTx:  []domain.Pool{pool("pancakeswap-v3", "0x1000000000000000000000000000000000000001", wbnb, usdt, 500)},
	}

	a := newAggregator(t, VenueSource{Source: src, PoolSize: 10, CacheTTL: time.Hour})
	ctx := context.Background()

	if _, err := a.FeeTierMap(ctx); err != nil {
		t.Fatalf("first call: %v", err)
	}
	callsAfterFirst := src.calls

	if _, err := a.FeeTierMap(ctx); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if src.calls != callsAfterFirst {
		t.Errorf("cache miss on second call: source called %d more times", src.calls-callsAfterFirst)
	}
}

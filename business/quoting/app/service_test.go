package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	discovery "github.com/flashcycle/flashcycle/business/discovery/domain"
	"github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
	"github.com/flashcycle/flashcycle/internal/ratelimit"
	"github.com/flashcycle/flashcycle/internal/token"
)

type fakeContractQuoter struct {
	batches [][]routing.RouteDetail
	revert  map[string]error // routes to mark as reverted
	err     error            // transport-level failure
}

func (f *fakeContractQuoter) QuoteRoutes(ctx context.Context, routes []routing.RouteDetail) ([]domain.RouteQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, routes)

	quotes := make([]domain.RouteQuote, len(routes))
	for i, r := range routes {
		if err, reverted := f.revert[r.Symbol]; reverted {
			quotes[i] = domain.RouteQuote{Route: r, Err: err}
			continue
		}
		quotes[i] = domain.RouteQuote{
			Route: r,
			Hops: []domain.HopQuote{
				{AmountIn: r.InitialAmount, AmountOut: big.NewInt(2e18), Venue: "pancakeswap-v3", FeeTier: 500},
			},
		}
	}
	return quotes, nil
}

func testRoutes(n int) []routing.RouteDetail {
	a := token.MustNew(56, "0x00000000000000000000000000000000000000Aa", 18, "AAA")
	b := token.MustNew(56, "0x00000000000000000000000000000000000000Bb", 18, "BBB")
	cycle := discovery.TokenCycle{Tokens: []token.Token{a, b}}

	routes := make([]routing.RouteDetail, n)
	for i := range routes {
		routes[i] = routing.RouteDetail{
			Symbol:        cycle.Symbol(),
			InitialAmount: big.NewInt(int64(i+1) * 1e15),
			Path: routing.SwapPath{Hops: []routing.SwapHop{
				{TokenIn: a, TokenOut: b, Candidates: []routing.QuoterCandidate{{Venue: "pancakeswap-v3", FeeTier: 500}}},
				{TokenIn: b, TokenOut: a, Candidates: []routing.QuoterCandidate{{Venue: "pancakeswap-v3", FeeTier: 500}}},
			}},
		}
	}
	return routes
}

func newBatchQuoter(t *testing.T, contract ContractQuoter, batchSize int) *BatchQuoter {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	q, err := NewBatchQuoter(contract, ratelimit.NewBatcherWithRate(batchSize, 1000, 1000), log)
	if err != nil {
		t.Fatalf("NewBatchQuoter: %v", err)
	}
	return q
}

func TestQuote_ChunksIntoBatches(t *testing.T) {
	contract := &fakeContractQuoter{}
	q := newBatchQuoter(t, contract, 10)

	quotes, err := q.Quote(context.Background(), testRoutes(25))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if len(quotes) != 25 {
		t.Fatalf("got %d quotes, want 25", len(quotes))
	}

	wantSizes := []int{10, 10, 5}
	if len(contract.batches) != len(wantSizes) {
		t.Fatalf("got %d batches, want %d", len(contract.batches), len(wantSizes))
	}
	for i, want := range wantSizes {
		if got := len(contract.batches[i]); got != want {
			t.Errorf("batch %d size = %d, want %d", i, got, want)
		}
	}
}

func TestQuote_RevertIsolatedToRoute(t *testing.T) {
	routes := testRoutes(3)
	routes[1].Symbol = "BBB -> AAA"

	contract := &fakeContractQuoter{revert: map[string]error{"BBB -> AAA": errors.New("execution reverted")}}
	q := newBatchQuoter(t, contract, 10)

	quotes, err := q.Quote(context.Background(), routes)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}

	if !quotes[1].Failed() {
		t.Error("reverted route not marked failed")
	}
	if quotes[0].Failed() || quotes[2].Failed() {
		t.Error("sibling routes affected by one route's revert")
	}
	if quotes[0].FinalAmount() == nil {
		t.Error("successful route missing hop amounts")
	}
}

func TestQuote_TransportFailureAborts(t *testing.T) {
	wantErr := errors.New("connection refused")
	q := newBatchQuoter(t, &fakeContractQuoter{err: wantErr}, 10)

	if _, err := q.Quote(context.Background(), testRoutes(5)); !errors.Is(err, wantErr) {
		t.Fatalf("Quote() error = %v, want %v", err, wantErr)
	}
}

func TestQuote_EmptyInput(t *testing.T) {
	q := newBatchQuoter(t, &fakeContractQuoter{}, 10)

	quotes, err := q.Quote(context.Background(), nil)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("got %d quotes for empty input", len(quotes))
	}
}

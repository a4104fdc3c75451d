package ethereum

import (
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/logger"
	"github.com/flashcycle/flashcycle/internal/token"
)

func testQuoter(t *testing.T) *Quoter {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	q, err := NewQuoter(
		common.HexToAddress("0x78D78E420Da98ad378D7799bE8f4AF69033EB077"),
		common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11"),
		nil, log,
	)
	if err != nil {
		t.Fatalf("NewQuoter: %v", err)
	}
	return q
}

func testRoute() routing.RouteDetail {
	a := token.MustNew(56, "0x00000000000000000000000000000000000000Aa", 18, "AAA")
	b := token.MustNew(56, "0x00000000000000000000000000000000000000Bb", 18, "BBB")
	factory := common.HexToAddress("0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865")

	return routing.RouteDetail{
		Symbol:        "AAA -> BBB",
		InitialAmount: big.NewInt(1e18),
		Path: routing.SwapPath{Hops: []routing.SwapHop{
			{TokenIn: a, TokenOut: b, Candidates: []routing.QuoterCandidate{{Venue: "pancakeswap-v3", Factory: factory, FeeTier: 500}}},
			{TokenIn: b, TokenOut: a, Candidates: []routing.QuoterCandidate{{Venue: "pancakeswap-v3", Factory: factory, FeeTier: 500}}},
		}},
	}
}

func TestEncodeRoute_Selector(t *testing.T) {
	q := testQuoter(t)

	callData, err := q.encodeRoute(testRoute())
	if err != nil {
		t.Fatalf("encodeRoute: %v", err)
	}

	wantSelector := q.quoterABI.Methods["quoteBestRoute"].ID
	if len(callData) < 4 {
		t.Fatal("call data too short")
	}
	for i := range wantSelector {
		if callData[i] != wantSelector[i] {
			t.Fatalf("selector mismatch: got %x, want %x", callData[:4], wantSelector)
		}
	}
}

func TestDecodeHops(t *testing.T) {
	q := testQuoter(t)
	route := testRoute()
	factory := route.Path.Hops[0].Candidates[0].Factory

	results := []HopResult{
		{AmountIn: big.NewInt(1e18), AmountOut: big.NewInt(2e18), Factory: factory, Fee: big.NewInt(500)},
		{AmountIn: big.NewInt(2e18), AmountOut: big.NewInt(3e18), Factory: factory, Fee: big.NewInt(500)},
	}
	returnData, err := q.quoterABI.Methods["quoteBestRoute"].Outputs.Pack(results)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	hops, err := q.decodeHops(route, returnData)
	if err != nil {
		t.Fatalf("decodeHops: %v", err)
	}
	if len(hops) != 2 {
		t.Fatalf("got %d hops, want 2", len(hops))
	}
	if hops[0].AmountIn.Cmp(big.NewInt(1e18)) != 0 || hops[1].AmountOut.Cmp(big.NewInt(3e18)) != 0 {
		t.Errorf("hop amounts wrong: %+v", hops)
	}
	if hops[0].Venue != "pancakeswap-v3" {
		t.Errorf("venue = %q, want pancakeswap-v3", hops[0].Venue)
	}
	if hops[0].FeeTier != 500 {
		t.Errorf("fee tier = %d, want 500", hops[0].FeeTier)
	}
}

func TestDecodeHops_CountMismatch(t *testing.T) {
	q := testQuoter(t)
	route := testRoute()

	results := []HopResult{
		{AmountIn: big.NewInt(1), AmountOut: big.NewInt(2), Factory: common.Address{}, Fee: big.NewInt(500)},
	}
	returnData, err := q.quoterABI.Methods["quoteBestRoute"].Outputs.Pack(results)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	if _, err := q.decodeHops(route, returnData); err == nil {
		t.Error("expected error for hop count mismatch")
	}
}

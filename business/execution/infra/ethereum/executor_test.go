package ethereum

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/flashcycle/flashcycle/business/execution/app"
	quoting "github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/apperror"
	"github.com/flashcycle/flashcycle/internal/token"
)

func testRequest(t *testing.T) app.ExecutionRequest {
	t.Helper()

	a := token.MustNew(56, "0x00000000000000000000000000000000000000Aa", 18, "AAA")
	b := token.MustNew(56, "0x00000000000000000000000000000000000000Bb", 18, "BBB")

	pancake := routing.QuoterCandidate{
		Venue:   "pancakeswap",
		Factory: common.HexToAddress("0x0000000000000000000000000000000000000F01"),
		Router:  common.HexToAddress("0x0000000000000000000000000000000000000F02"),
		Permit:  common.HexToAddress("0x0000000000000000000000000000000000000F03"),
		FeeTier: 500,
	}
	biswap := routing.QuoterCandidate{
		Venue:   "biswap",
		Factory: common.HexToAddress("0x0000000000000000000000000000000000000F04"),
		Router:  common.HexToAddress("0x0000000000000000000000000000000000000F05"),
		Permit:  common.HexToAddress("0x0000000000000000000000000000000000000F06"),
		FeeTier: 2500,
	}

	route := routing.RouteDetail{
		Symbol:        "AAA -> BBB",
		InitialAmount: big.NewInt(1e18),
		Path: routing.SwapPath{Hops: []routing.SwapHop{
			{TokenIn: a, TokenOut: b, Candidates: []routing.QuoterCandidate{pancake, biswap}},
			{TokenIn: b, TokenOut: a, Candidates: []routing.QuoterCandidate{pancake}},
		}},
	}

	return app.ExecutionRequest{
		BorrowToken:  a,
		BorrowAmount: big.NewInt(1e18),
		Route:        route,
		Hops: []quoting.HopQuote{
			{AmountIn: big.NewInt(1e18), AmountOut: big.NewInt(5e17), Venue: "biswap", FeeTier: 2500},
			{AmountIn: big.NewInt(5e17), AmountOut: big.NewInt(1.01e18), Venue: "pancakeswap", FeeTier: 500},
		},
	}
}

func testExecutor(t *testing.T) *Executor {
	t.Helper()
	contractABI, err := abi.JSON(strings.NewReader(FlashCycleExecutorABI))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return &Executor{
		config:      ExecutorConfig{GasPriceCeiling: big.NewInt(10_000_000_000)},
		contractABI: contractABI,
	}
}

func TestEncodeCall_Selector(t *testing.T) {
	e := testExecutor(t)

	calldata, err := e.encodeCall(testRequest(t))
	if err != nil {
		t.Fatalf("encodeCall: %v", err)
	}

	want := e.contractABI.Methods["executeFlashLoan"].ID
	if !bytes.Equal(calldata[:4], want) {
		t.Errorf("selector = %x, want %x", calldata[:4], want)
	}
}

func TestEncodeCall_ResolvesQuotedCandidate(t *testing.T) {
	e := testExecutor(t)
	req := testRequest(t)

	calldata, err := e.encodeCall(req)
	if err != nil {
		t.Fatalf("encodeCall: %v", err)
	}

	args, err := e.contractABI.Methods["executeFlashLoan"].Inputs.Unpack(calldata[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}

	hops := *abi.ConvertType(args[2], new([]ExecHop)).(*[]ExecHop)
	if len(hops) != 2 {
		t.Fatalf("got %d hops, want 2", len(hops))
	}
	// First hop was quoted on biswap; its router must win over the
	// fee-ascending pancake candidate.
	if hops[0].Router != common.HexToAddress("0x0000000000000000000000000000000000000F05") {
		t.Errorf("hop 0 router = %s, want biswap router", hops[0].Router)
	}
	if hops[0].Fee.Int64() != 2500 {
		t.Errorf("hop 0 fee = %d, want 2500", hops[0].Fee.Int64())
	}
	if hops[1].Factory != common.HexToAddress("0x0000000000000000000000000000000000000F01") {
		t.Errorf("hop 1 factory = %s, want pancake factory", hops[1].Factory)
	}

	ceiling := args[3].(*big.Int)
	if ceiling.Cmp(big.NewInt(10_000_000_000)) != 0 {
		t.Errorf("gas price ceiling = %s, want 10000000000", ceiling)
	}
}

func TestEncodeCall_UnknownCandidateRejected(t *testing.T) {
	e := testExecutor(t)
	req := testRequest(t)
	req.Hops[0].Venue = "unknown"

	_, err := e.encodeCall(req)
	if err == nil {
		t.Fatal("expected error for quoted venue with no candidate")
	}
	if code := apperror.GetCode(err); code != apperror.CodeInvalidQuote {
		t.Errorf("code = %s, want %s", code, apperror.CodeInvalidQuote)
	}
}

func TestEncodeCall_HopCountMismatch(t *testing.T) {
	e := testExecutor(t)
	req := testRequest(t)
	req.Hops = req.Hops[:1]

	_, err := e.encodeCall(req)
	if err == nil {
		t.Fatal("expected error for hop count mismatch")
	}
	if code := apperror.GetCode(err); code != apperror.CodeInvalidQuote {
		t.Errorf("code = %s, want %s", code, apperror.CodeInvalidQuote)
	}
}

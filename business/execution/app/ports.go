// Package app contains application services and port definitions for the execution context.
package app

import (
	"context"
	"math/big"

	"github.com/flashcycle/flashcycle/business/execution/domain"
	quoting "github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
	"github.com/flashcycle/flashcycle/internal/token"
)

// ExecutionRequest carries one flash-loan submission. Hops are the
// winning per-hop quotes; they pin the venue and fee the transaction
// must swap through.
type ExecutionRequest struct {
	BorrowToken  token.Token
	BorrowAmount *big.Int
	Route        routing.RouteDetail
	Hops         []quoting.HopQuote
}

// ExecutionResult is the mined outcome of a submitted transaction.
type ExecutionResult struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	Success     bool
}

// Executor submits flash-loan execution transactions and waits for the
// receipt.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

// TradeRecorder persists decisions: executions and below-margin
// predictions alike.
type TradeRecorder interface {
	CreateTradeRecord(ctx context.Context, record domain.TradeRecord) error
}

package domain

import (
	"math/big"
	"time"
)

// RecordKind distinguishes why a trade record was written.
type RecordKind string

const (
	// RecordPrediction marks a profitable route below the execution
	// margin; written for later analysis, nothing was submitted.
	RecordPrediction RecordKind = "prediction"
	// RecordExecution marks a submitted flash-loan transaction.
	RecordExecution RecordKind = "execution"
)

// TradeRecord is the persisted outcome of one decision.
// Amounts stay big.Int in memory; the store serializes them losslessly.
type TradeRecord struct {
	Kind          RecordKind
	RouteSymbol   string
	BlockNumber   uint64
	AmountIn      *big.Int
	FinalAmount   *big.Int
	NetProfit     *big.Int
	ProfitRateBps int64
	TxHash        string // empty for predictions
	Success       bool   // execution receipt status; true for predictions
	GasUsed       uint64
	CreatedAt     time.Time
}

// Package domain contains the core domain types for the execution context.
package domain

import "math/big"

// BasisPoints is the bps denominator: 10,000 bps = 100%.
const BasisPoints = 10_000

var bpsDenominator = big.NewInt(BasisPoints)

// RepayAmount returns the flash-loan repayment for a borrowed principal:
// amount * (10000 + borrowCostBps) / 10000, integer arithmetic throughout.
func RepayAmount(amount *big.Int, borrowCostBps int64) *big.Int {
	repay := new(big.Int).Mul(amount, big.NewInt(BasisPoints+borrowCostBps))
	return repay.Quo(repay, bpsDenominator)
}

// Decision is the profitability verdict for one quoted route.
// Ephemeral: computed per quoting cycle, never stored as-is.
type Decision struct {
	NetProfit     *big.Int // finalAmount - amountIn
	ProfitRateBps int64    // netProfit expressed in bps of amountIn
	Profitable    bool     // netProfit > 0
	CoversCosts   bool     // rate strictly above borrow cost plus margin
}

// Decide computes the decision for a route quoted from amountIn to
// finalAmount. Execution requires the profit rate to strictly clear
// borrowCostBps + minMarginBps, the same bps arithmetic RepayAmount
// uses, so "covers costs" and "final > repay" never disagree.
// A non-positive amountIn cannot fund a cycle; it decides as
// not-profitable with rate 0 rather than dividing by zero.
func Decide(amountIn, finalAmount *big.Int, borrowCostBps, minMarginBps int64) Decision {
	if amountIn.Sign() <= 0 {
		return Decision{NetProfit: new(big.Int)}
	}

	net := new(big.Int).Sub(finalAmount, amountIn)

	rate := new(big.Int).Mul(net, bpsDenominator)
	rate.Quo(rate, amountIn)

	rateBps := rate.Int64()

	return Decision{
		NetProfit:     net,
		ProfitRateBps: rateBps,
		Profitable:    net.Sign() > 0,
		CoversCosts:   rateBps > borrowCostBps+minMarginBps,
	}
}

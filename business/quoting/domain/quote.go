// Package domain contains the core domain types for the quoting context.
package domain

import (
	"math/big"

	routing "github.com/flashcycle/flashcycle/business/routing/domain"
)

// HopQuote is the quoter contract's result for one hop: the realized
// amounts and the venue option it selected.
type HopQuote struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Venue     string
	FeeTier   int64
}

// RouteQuote is the outcome of quoting one route. A route whose
// on-chain call reverted carries Err and no hops; sibling routes in the
// same batch are unaffected.
type RouteQuote struct {
	Route routing.RouteDetail
	Hops  []HopQuote
	Err   error
}

// Failed reports whether the route's quote call reverted.
func (q RouteQuote) Failed() bool {
	return q.Err != nil
}

// AmountIn returns the first hop's input amount.
func (q RouteQuote) AmountIn() *big.Int {
	if len(q.Hops) == 0 {
		return nil
	}
	return q.Hops[0].AmountIn
}

// FinalAmount returns the last hop's output amount.
func (q RouteQuote) FinalAmount() *big.Int {
	if len(q.Hops) == 0 {
		return nil
	}
	return q.Hops[len(q.Hops)-1].AmountOut
}

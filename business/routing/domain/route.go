// Package domain contains the core domain types for the routing context.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/flashcycle/flashcycle/internal/token"
)

// QuoterCandidate is one admissible venue/fee option for a directed hop.
type QuoterCandidate struct {
	Venue    string
	Protocol string
	Factory  common.Address
	Router   common.Address
	Permit   common.Address
	FeeTier  int64
}

// SwapHop is one directed swap with its candidate options.
type SwapHop struct {
	TokenIn    token.Token
	TokenOut   token.Token
	Candidates []QuoterCandidate
}

// SwapPath is an ordered list of hops forming a closed cycle.
// Invariant: every hop carries at least one candidate.
type SwapPath struct {
	Hops []SwapHop
}

// Valid reports whether every hop has at least one candidate.
func (p SwapPath) Valid() bool {
	if len(p.Hops) == 0 {
		return false
	}
	for _, hop := range p.Hops {
		if len(hop.Candidates) == 0 {
			return false
		}
	}
	return true
}

// RouteDetail is a fully-assembled quotable route. Immutable once built.
type RouteDetail struct {
	Symbol        string   // e.g. "USDT -> BTCB -> WBNB"
	InitialAmount *big.Int // starting token's native decimal scale
	Path          SwapPath
}

// StartToken returns the route's starting token.
func (r RouteDetail) StartToken() token.Token {
	return r.Path.Hops[0].TokenIn
}

// String renders the route for logs.
func (r RouteDetail) String() string {
	return fmt.Sprintf("%s (in %s)", r.Symbol, r.InitialAmount)
}

// Package app contains application services and port definitions for the quoting context.
package app

import (
	"context"

	"github.com/flashcycle/flashcycle/business/quoting/domain"
	routing "github.com/flashcycle/flashcycle/business/routing/domain"
)

// ContractQuoter prices a group of routes in one read-only round trip.
// A reverted route comes back as a failed RouteQuote entry; an RPC or
// transport failure is an error for the whole group.
type ContractQuoter interface {
	QuoteRoutes(ctx context.Context, routes []routing.RouteDetail) ([]domain.RouteQuote, error)
}

// Package app contains application services and port definitions for the chain context.
package app

import (
	"context"

	"github.com/flashcycle/flashcycle/business/chain/domain"
)

// ChainService coordinates node interactions.
type ChainService struct {
	subscriber BlockSubscriber
	gasOracle  GasOracle
}

// NewChainService creates a new ChainService.
func NewChainService(subscriber BlockSubscriber, gasOracle GasOracle) *ChainService {
	return &ChainService{
		subscriber: subscriber,
		gasOracle:  gasOracle,
	}
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *ChainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// LatestBlock retrieves the most recent block.
func (s *ChainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.subscriber.LatestBlock(ctx)
}

// GasPrice retrieves the current gas price.
func (s *ChainService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gasOracle.GasPrice(ctx)
}

// ConnectionState returns the current connection state.
func (s *ChainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// Package ethereum provides chain node infrastructure adapters.
package ethereum

import (
	"context"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/flashcycle/flashcycle/internal/apperror"
	"github.com/flashcycle/flashcycle/internal/logger"
)

const (
	tracerName = "github.com/flashcycle/flashcycle/business/chain/infra/ethereum"
	meterName  = "github.com/flashcycle/flashcycle/business/chain/infra/ethereum"
)

// Pool is a round-robin pool of node clients. Read-heavy callers rotate
// through the configured endpoints so no single node takes all the load.
type Pool struct {
	clients []*ethclient.Client
	counter atomic.Uint64
	logger  logger.LoggerInterface
}

// NewPool dials every endpoint and returns the pool. All endpoints must
// be reachable at startup.
func NewPool(ctx context.Context, urls []string, log logger.LoggerInterface) (*Pool, error) {
	if len(urls) == 0 {
		return nil, apperror.New(apperror.CodeChainConnectionFailed,
			apperror.WithContext("no rpc urls configured"))
	}

	clients := make([]*ethclient.Client, 0, len(urls))
	for _, url := range urls {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, apperror.New(apperror.CodeChainConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to dial "+url))
		}
		clients = append(clients, client)
	}

	log.Info(ctx, "node pool connected", "endpoints", len(clients))

	return &Pool{clients: clients, logger: log}, nil
}

// Next returns the next client in rotation.
func (p *Pool) Next() *ethclient.Client {
	n := p.counter.Add(1)
	return p.clients[(n-1)%uint64(len(p.clients))]
}

// Size returns the number of clients in the pool.
func (p *Pool) Size() int {
	return len(p.clients)
}

// Close closes all clients in the pool.
func (p *Pool) Close() {
	for _, c := range p.clients {
		c.Close()
	}
}

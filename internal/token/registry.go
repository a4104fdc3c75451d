package token

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type registryKey struct {
	chainID uint64
	address common.Address
}

// Registry indexes tokens by identity and by symbol.
type Registry struct {
	mu       sync.RWMutex
	byID     map[registryKey]Token
	bySymbol map[string]Token
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[registryKey]Token),
		bySymbol: make(map[string]Token),
	}
}

// Register adds or replaces a token.
func (r *Registry) Register(t Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[registryKey{t.ChainID, t.Address}] = t
	r.bySymbol[t.Symbol] = t
}

// Get looks a token up by identity.
func (r *Registry) Get(chainID uint64, addr common.Address) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[registryKey{chainID, addr}]
	return t, ok
}

// GetBySymbol looks a token up by display symbol.
func (r *Registry) GetBySymbol(symbol string) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.bySymbol[symbol]
	return t, ok
}

// All returns registered tokens sorted by symbol. Sorting makes dependent
// cache keys stable.
func (r *Registry) All() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Token, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

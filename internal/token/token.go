// Package token provides the token value type used across discovery,
// routing and execution. Identity is (chain id, contract address); the
// symbol is display metadata only.
package token

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token describes an ERC20 token on one chain. Immutable once constructed.
// Fields are exported and tagged so cached cycles round-trip field-for-field.
type Token struct {
	ChainID  uint64         `json:"chainId"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
}

// New constructs a Token, validating its fields.
func New(chainID uint64, addr common.Address, decimals uint8, symbol string) (Token, error) {
	if chainID == 0 {
		return Token{}, fmt.Errorf("token %s: zero chain id", symbol)
	}
	if addr == (common.Address{}) {
		return Token{}, fmt.Errorf("token %s: zero address", symbol)
	}
	if symbol == "" {
		return Token{}, fmt.Errorf("token %s: empty symbol", addr.Hex())
	}
	if decimals > 30 {
		return Token{}, fmt.Errorf("token %s: suspicious decimals %d", symbol, decimals)
	}
	return Token{
		ChainID:  chainID,
		Address:  addr,
		Decimals: decimals,
		Symbol:   symbol,
	}, nil
}

// MustNew constructs a Token and panics on invalid input. For registries
// and tests with known-good values.
func MustNew(chainID uint64, hexAddr string, decimals uint8, symbol string) Token {
	t, err := New(chainID, common.HexToAddress(hexAddr), decimals, symbol)
	if err != nil {
		panic(err)
	}
	return t
}

// Key returns the cache key form "SYMBOL-0xaddress".
func (t Token) Key() string {
	return fmt.Sprintf("%s-%s", t.Symbol, strings.ToLower(t.Address.Hex()))
}

// Equal compares identity: chain id and address.
func (t Token) Equal(other Token) bool {
	return t.ChainID == other.ChainID && t.Address == other.Address
}

// String returns the display symbol.
func (t Token) String() string {
	return t.Symbol
}

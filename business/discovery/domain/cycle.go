// Package domain contains the core domain types for the discovery context.
package domain

import (
	"fmt"
	"strings"

	"github.com/flashcycle/flashcycle/internal/token"
)

// TokenCycle is an ordered sequence of distinct tokens of fixed length.
// The last hop implicitly returns to the first token.
type TokenCycle struct {
	Tokens []token.Token
}

// NewTokenCycle validates and constructs a cycle.
func NewTokenCycle(tokens []token.Token) (TokenCycle, error) {
	if len(tokens) < 2 {
		return TokenCycle{}, fmt.Errorf("cycle needs at least 2 tokens, got %d", len(tokens))
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		key := t.Key()
		if _, dup := seen[key]; dup {
			return TokenCycle{}, fmt.Errorf("duplicate token %s in cycle", t.Symbol)
		}
		seen[key] = struct{}{}
	}
	return TokenCycle{Tokens: tokens}, nil
}

// Start returns the cycle's starting token.
func (c TokenCycle) Start() token.Token {
	return c.Tokens[0]
}

// Len returns the number of tokens in the cycle.
func (c TokenCycle) Len() int {
	return len(c.Tokens)
}

// Symbol renders the cycle as "A -> B -> C".
func (c TokenCycle) Symbol() string {
	parts := make([]string, len(c.Tokens))
	for i, t := range c.Tokens {
		parts[i] = t.Symbol
	}
	return strings.Join(parts, " -> ")
}

// CycleSet groups cycles by their starting token key.
type CycleSet map[string][]TokenCycle

// Total returns the number of cycles across all starting tokens.
func (s CycleSet) Total() int {
	n := 0
	for _, cycles := range s {
		n += len(cycles)
	}
	return n
}

// ForStart returns the cycles beginning at the given token.
func (s CycleSet) ForStart(t token.Token) []TokenCycle {
	return s[t.Key()]
}

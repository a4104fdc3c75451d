package app

import (
	"context"
	"io"
	"testing"

	"github.com/flashcycle/flashcycle/business/discovery/domain"
	"github.com/flashcycle/flashcycle/internal/kvstore"
	"github.com/flashcycle/flashcycle/internal/logger"
	"github.com/flashcycle/flashcycle/internal/token"
)

func testTokens(n int) []token.Token {
	all := []token.Token{
		token.MustNew(56, "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", 18, "WBNB"),
		token.MustNew(56, "0x55d398326f99059fF775485246999027B3197955", 18, "USDT"),
		token.MustNew(56, "0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c", 18, "BTCB"),
		token.MustNew(56, "0x2170Ed0880ac9A755fd29B2688956BD959F933F8", 18, "ETH"),
		token.MustNew(56, "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56", 18, "BUSD"),
	}
	return all[:n]
}

func newEnumerator() *Enumerator {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	return NewEnumerator(kvstore.NewMemoryStore(), log)
}

func TestEnumerate_PermutationCount(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		length int
		want   int // n! / (n-length)!
	}{
		{"three choose three", 3, 3, 6},
		{"four choose three", 4, 3, 24},
		{"five choose two", 5, 2, 20},
		{"five choose four", 5, 4, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := newEnumerator().Enumerate(context.Background(), testTokens(tt.n), tt.length)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := set.Total(); got != tt.want {
				t.Errorf("got %d cycles, want %d", got, tt.want)
			}

			seen := make(map[string]struct{})
			for _, cycles := range set {
				for _, c := range cycles {
					if c.Len() != tt.length {
						t.Errorf("cycle %s has length %d, want %d", c.Symbol(), c.Len(), tt.length)
					}
					inCycle := make(map[string]struct{})
					for _, tok := range c.Tokens {
						if _, dup := inCycle[tok.Key()]; dup {
							t.Errorf("cycle %s repeats token %s", c.Symbol(), tok.Symbol)
						}
						inCycle[tok.Key()] = struct{}{}
					}
					if _, dup := seen[c.Symbol()]; dup {
						t.Errorf("duplicate cycle %s", c.Symbol())
					}
					seen[c.Symbol()] = struct{}{}
				}
			}
		})
	}
}

func TestEnumerate_DegenerateInput(t *testing.T) {
	set, err := newEnumerator().Enumerate(context.Background(), testTokens(2), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Total() != 0 {
		t.Errorf("got %d cycles for 2 tokens at length 3, want 0", set.Total())
	}
}

func TestEnumerate_CacheRoundTrip(t *testing.T) {
	store := kvstore.NewMemoryStore()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	enum := NewEnumerator(store, log)
	ctx := context.Background()

	tokens := testTokens(3)
	first, err := enum.Enumerate(ctx, tokens, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second call must be served from the store; a fresh enumerator over
	// the same store sees identical tokens field-for-field.
	second, err := NewEnumerator(store, log).Enumerate(ctx, tokens, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Total() != second.Total() {
		t.Fatalf("cache round trip changed cycle count: %d vs %d", first.Total(), second.Total())
	}
	for start, cycles := range first {
		got := second[start]
		if len(got) != len(cycles) {
			t.Fatalf("start %s: %d cycles cached, %d decoded", start, len(cycles), len(got))
		}
		for i, c := range cycles {
			for j, want := range c.Tokens {
				have := got[i].Tokens[j]
				if have.ChainID != want.ChainID || have.Address != want.Address ||
					have.Decimals != want.Decimals || have.Symbol != want.Symbol {
					t.Errorf("token mismatch after round trip: got %+v, want %+v", have, want)
				}
			}
		}
	}
}

func TestEnumerate_OrderIndependentCacheKey(t *testing.T) {
	tokens := testTokens(3)
	reversed := []token.Token{tokens[2], tokens[1], tokens[0]}

	if a, b := cacheKey(sortedBySymbol(tokens), 3), cacheKey(sortedBySymbol(reversed), 3); a != b {
		t.Errorf("cache keys differ for same token set: %q vs %q", a, b)
	}
}

func sortedBySymbol(tokens []token.Token) []token.Token {
	out := make([]token.Token, len(tokens))
	copy(out, tokens)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Symbol < out[j-1].Symbol; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func TestDecodeCycleSet_Corrupt(t *testing.T) {
	if _, err := domain.DecodeCycleSet("{not json"); err == nil {
		t.Error("expected error decoding corrupt payload")
	}
}

package token

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a human-readable quantity ("0.5") into the raw
// fixed-point integer at the token's native decimal scale.
func ParseAmount(t Token, human string) (*big.Int, error) {
	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q for %s: %w", human, t.Symbol, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q for %s", human, t.Symbol)
	}

	scaled := d.Shift(int32(t.Decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals for %s", human, t.Decimals, t.Symbol)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders a raw fixed-point integer as a human-readable
// decimal string. For logs and reports only; never feeds back into math.
func FormatAmount(t Token, raw *big.Int) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(t.Decimals)).String()
}

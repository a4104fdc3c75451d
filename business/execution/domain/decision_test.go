package domain

import (
	"math/big"
	"testing"
)

func TestRepayAmount(t *testing.T) {
	tests := []struct {
		name          string
		amount        string
		borrowCostBps int64
		want          string
	}{
		{"one token at 25 bps", "1000000000000000000", 25, "1002500000000000000"},
		{"zero cost", "1000000000000000000", 0, "1000000000000000000"},
		{"small principal rounds down", "3", 25, "3"},
		{"hundred bps", "5000000000000000000", 100, "5050000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, _ := new(big.Int).SetString(tt.amount, 10)
			want, _ := new(big.Int).SetString(tt.want, 10)

			if got := RepayAmount(amount, tt.borrowCostBps); got.Cmp(want) != 0 {
				t.Errorf("RepayAmount(%s, %d) = %s, want %s", tt.amount, tt.borrowCostBps, got, want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	in := big.NewInt(1e18)

	tests := []struct {
		name            string
		finalAmount     *big.Int
		borrowCostBps   int64
		minMarginBps    int64
		wantProfitable  bool
		wantCoversCosts bool
		wantRateBps     int64
	}{
		{"loss", big.NewInt(9e17), 25, 5, false, false, -1000},
		{"break even", big.NewInt(1e18), 25, 5, false, false, 0},
		{"profitable below margin", big.NewInt(1.002e18), 25, 5, true, false, 20},
		{"exactly at threshold is not enough", big.NewInt(1.003e18), 25, 5, true, false, 30},
		{"clears threshold", big.NewInt(1.0031e18), 25, 5, true, true, 31},
		{"well above", big.NewInt(1.01e18), 25, 5, true, true, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(in, tt.finalAmount, tt.borrowCostBps, tt.minMarginBps)

			if d.Profitable != tt.wantProfitable {
				t.Errorf("Profitable = %v, want %v", d.Profitable, tt.wantProfitable)
			}
			if d.CoversCosts != tt.wantCoversCosts {
				t.Errorf("CoversCosts = %v, want %v", d.CoversCosts, tt.wantCoversCosts)
			}
			if d.ProfitRateBps != tt.wantRateBps {
				t.Errorf("ProfitRateBps = %d, want %d", d.ProfitRateBps, tt.wantRateBps)
			}

			wantNet := new(big.Int).Sub(tt.finalAmount, in)
			if d.NetProfit.Cmp(wantNet) != 0 {
				t.Errorf("NetProfit = %s, want %s", d.NetProfit, wantNet)
			}
		})
	}
}

// Quoted amounts come back from on-chain data; a zero or negative
// amountIn must decide as not-profitable, never panic.
func TestDecide_NonPositiveAmountIn(t *testing.T) {
	tests := []struct {
		name     string
		amountIn *big.Int
	}{
		{"zero", big.NewInt(0)},
		{"negative", big.NewInt(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.amountIn, big.NewInt(1e18), 25, 5)

			if d.Profitable || d.CoversCosts {
				t.Errorf("Decide(%s, ...) = %+v, want not profitable", tt.amountIn, d)
			}
			if d.ProfitRateBps != 0 {
				t.Errorf("ProfitRateBps = %d, want 0", d.ProfitRateBps)
			}
			if d.NetProfit == nil || d.NetProfit.Sign() != 0 {
				t.Errorf("NetProfit = %v, want 0", d.NetProfit)
			}
		})
	}
}

// A route that clears the cost threshold must also beat the repay
// amount computed independently; the two formulas share the same bps
// arithmetic.
func TestDecide_ConsistentWithRepayAmount(t *testing.T) {
	in := big.NewInt(1e18)
	const borrowCostBps = 25

	finals := []*big.Int{
		big.NewInt(1.001e18),
		big.NewInt(1.0025e18),
		big.NewInt(1.0026e18),
		big.NewInt(1.01e18),
	}

	repay := RepayAmount(in, borrowCostBps)
	for _, final := range finals {
		d := Decide(in, final, borrowCostBps, 0)
		beatsRepay := final.Cmp(repay) > 0
		if d.CoversCosts && !beatsRepay {
			t.Errorf("final %s covers costs but does not beat repay %s", final, repay)
		}
	}
}

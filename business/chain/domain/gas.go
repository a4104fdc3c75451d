// Package domain contains the core domain types for the chain context.
package domain

import (
	"math/big"
	"time"
)

// GasPrice represents a gas price observation.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       wei,
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei.
func (p *GasPrice) Gwei() float64 {
	gwei := new(big.Float).SetInt(p.Wei)
	gwei.Quo(gwei, big.NewFloat(1e9))
	f, _ := gwei.Float64()
	return f
}

// Exceeds reports whether the price is above the given ceiling in wei.
func (p *GasPrice) Exceeds(ceiling *big.Int) bool {
	if ceiling == nil {
		return false
	}
	return p.Wei.Cmp(ceiling) > 0
}

// EstimatedCost returns the total cost in wei for the given gas limit.
func (p *GasPrice) EstimatedCost(gasLimit uint64) *big.Int {
	return new(big.Int).Mul(p.Wei, new(big.Int).SetUint64(gasLimit))
}

/*

This file contains the types describing the treasury portfolio and the market
data it is valued against. Snapshots are constructed once per evaluation and
treated as immutable: anything that changes a portfolio produces a new
snapshot.

*/

package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// WeightSumTolerance is the maximum deviation of sum(weights) from 1.0 that a
// valid snapshot with positive total value may carry.
const WeightSumTolerance = 1e-6

var ErrInvalidSnapshot = errors.New("invalid portfolio snapshot")

// AssetSymbol identifies a tradable asset (e.g. "SOL", "USDC").
type AssetSymbol string

// PortfolioSnapshot captures the treasury holdings at a point in time.
// Holdings are quantities of each asset, not USD values; Weights are the
// fraction of TotalValueUSD each asset represents.
type PortfolioSnapshot struct {
	TotalValueUSD float64                 `json:"total_value_usd"`
	Holdings      map[AssetSymbol]float64 `json:"holdings"`
	Weights       map[AssetSymbol]float64 `json:"weights"`
}

// MarketSnapshot carries the per-asset market data a single evaluation runs
// against. Volatilities are daily return standard deviations as fractions
// (0.08 = 8%).
type MarketSnapshot struct {
	Prices       map[AssetSymbol]float64 `json:"prices"`
	Volatilities map[AssetSymbol]float64 `json:"volatilities"`
}

// PricePoint holds one historical price observation.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// NewPortfolioSnapshot derives a snapshot from raw holdings and current
// prices. Every held asset must have a positive price in the market snapshot.
func NewPortfolioSnapshot(holdings map[AssetSymbol]float64, market MarketSnapshot) (PortfolioSnapshot, error) {
	if len(holdings) == 0 {
		return PortfolioSnapshot{}, fmt.Errorf("%w: no holdings", ErrInvalidSnapshot)
	}

	total := 0.0
	for symbol, quantity := range holdings {
		if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0 {
			return PortfolioSnapshot{}, fmt.Errorf("%w: holding %s has invalid quantity %f", ErrInvalidSnapshot, symbol, quantity)
		}
		price, ok := market.Prices[symbol]
		if !ok {
			return PortfolioSnapshot{}, fmt.Errorf("%w: no price for held asset %s", ErrInvalidSnapshot, symbol)
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return PortfolioSnapshot{}, fmt.Errorf("%w: non-positive price %f for asset %s", ErrInvalidSnapshot, price, symbol)
		}
		total += quantity * price
	}

	snapshot := PortfolioSnapshot{
		TotalValueUSD: total,
		Holdings:      make(map[AssetSymbol]float64, len(holdings)),
		Weights:       make(map[AssetSymbol]float64, len(holdings)),
	}
	for symbol, quantity := range holdings {
		snapshot.Holdings[symbol] = quantity
		if total > 0 {
			snapshot.Weights[symbol] = quantity * market.Prices[symbol] / total
		} else {
			snapshot.Weights[symbol] = 0
		}
	}

	return snapshot, nil
}

// Validate checks the structural invariants of the snapshot. A snapshot with
// positive total value must carry weights summing to 1 within
// WeightSumTolerance.
func (p PortfolioSnapshot) Validate() error {
	if math.IsNaN(p.TotalValueUSD) || math.IsInf(p.TotalValueUSD, 0) || p.TotalValueUSD < 0 {
		return fmt.Errorf("%w: total value %f", ErrInvalidSnapshot, p.TotalValueUSD)
	}
	if len(p.Holdings) == 0 {
		return fmt.Errorf("%w: no holdings", ErrInvalidSnapshot)
	}

	weightSum := 0.0
	for symbol, weight := range p.Weights {
		if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
			return fmt.Errorf("%w: weight for %s is %f", ErrInvalidSnapshot, symbol, weight)
		}
		weightSum += weight
	}
	if p.TotalValueUSD > 0 && math.Abs(weightSum-1.0) > WeightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.9f, expected 1.0", ErrInvalidSnapshot, weightSum)
	}

	return nil
}

// Clone returns a deep copy. Route evaluation works on copies so candidate
// routes stay comparable against the same baseline.
func (p PortfolioSnapshot) Clone() PortfolioSnapshot {
	clone := PortfolioSnapshot{
		TotalValueUSD: p.TotalValueUSD,
		Holdings:      make(map[AssetSymbol]float64, len(p.Holdings)),
		Weights:       make(map[AssetSymbol]float64, len(p.Weights)),
	}
	for symbol, quantity := range p.Holdings {
		clone.Holdings[symbol] = quantity
	}
	for symbol, weight := range p.Weights {
		clone.Weights[symbol] = weight
	}
	return clone
}

// Validate checks that every listed price and volatility is a usable number.
func (m MarketSnapshot) Validate() error {
	if len(m.Prices) == 0 {
		return fmt.Errorf("%w: market snapshot has no prices", ErrInvalidSnapshot)
	}
	for symbol, price := range m.Prices {
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return fmt.Errorf("%w: price for %s is %f", ErrInvalidSnapshot, symbol, price)
		}
	}
	for symbol, vol := range m.Volatilities {
		if math.IsNaN(vol) || math.IsInf(vol, 0) || vol < 0 {
			return fmt.Errorf("%w: volatility for %s is %f", ErrInvalidSnapshot, symbol, vol)
		}
	}
	return nil
}

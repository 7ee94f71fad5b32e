/*

This file contains a synthetic treasury used for demos and tests. The numbers
are deliberately simple: a two-thirds volatile, one-third stable book that
exercises every code path without any external data.

*/

package treasury

import (
	"github.com/arcadia-fi/trm/internal/types"
)

// DemoManager serves a fixed synthetic treasury.
type DemoManager struct{}

// NewDemoManager returns a manager backed by the built-in demo book.
func NewDemoManager() *DemoManager {
	return &DemoManager{}
}

// GetHoldings returns the demo book: roughly 66% SOL / 34% USDC by value at
// demo prices.
func (m *DemoManager) GetHoldings() (map[types.AssetSymbol]float64, error) {
	return map[types.AssetSymbol]float64{
		"SOL":  400,
		"USDC": 34000,
	}, nil
}

// GetMarket returns demo prices and volatilities. SOL volatility matches its
// rough historical daily figure.
func (m *DemoManager) GetMarket() (types.MarketSnapshot, error) {
	return types.MarketSnapshot{
		Prices: map[types.AssetSymbol]float64{
			"SOL":  165.0,
			"USDC": 1.0,
		},
		Volatilities: map[types.AssetSymbol]float64{
			"SOL":  0.08,
			"USDC": 0.002,
		},
	}, nil
}

// GetRouteCandidates returns two routes that de-risk the book by different
// amounts, plus a hold.
func (m *DemoManager) GetRouteCandidates() ([]types.RouteCandidate, error) {
	return []types.RouteCandidate{
		{
			ID:          "derisk-25",
			Description: "Swap a quarter of SOL into USDC",
			Actions: []types.RouteAction{
				{
					Type:                 types.RouteActionSwap,
					FromAsset:            "SOL",
					ToAsset:              "USDC",
					FromAmountPct:        25,
					Venue:                "jupiter",
					EstimatedSlippageBps: 12,
				},
			},
		},
		{
			ID:          "derisk-50",
			Description: "Swap half of SOL into USDC",
			Actions: []types.RouteAction{
				{
					Type:                 types.RouteActionSwap,
					FromAsset:            "SOL",
					ToAsset:              "USDC",
					FromAmountPct:        50,
					Venue:                "jupiter",
					EstimatedSlippageBps: 25,
				},
			},
		},
		{
			ID:          "hold",
			Description: "Keep the current allocation",
			Actions: []types.RouteAction{
				{Type: types.RouteActionNoOp},
			},
		},
	}, nil
}

// Close is a no-op.
func (m *DemoManager) Close() error {
	return nil
}

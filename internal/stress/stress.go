/*

This file contains the deterministic stress-test sweep. No randomness: each
scenario shifts prices by fixed fractions and revalues the portfolio at the
shocked prices. Shift resolution for an asset is exact symbol first, then
asset class, then the DEFAULT key, otherwise unshifted.

*/

package stress

import (
	"errors"
	"fmt"

	"github.com/arcadia-fi/trm/internal/analyzer"
	"github.com/arcadia-fi/trm/internal/logger"
	"github.com/arcadia-fi/trm/internal/types"
)

// ErrMissingPrice indicates the market snapshot lacks a price for a held asset.
var ErrMissingPrice = errors.New("no market price for held asset")

// DefaultScenarios is the standard sweep run every evaluation cycle. The
// magnitudes follow observed historical events rather than model output.
func DefaultScenarios() []types.ShockScenario {
	return []types.ShockScenario{
		{
			Name:        "crypto_crash_50",
			Description: "Severe crypto crash of 50%, stables hold peg",
			PriceShifts: map[string]float64{
				types.ShiftKeyCrypto: -0.50,
			},
		},
		{
			Name:        "correlated_crash_70",
			Description: "Crypto down 70% with stables slipping 2% as liquidity drains",
			PriceShifts: map[string]float64{
				types.ShiftKeyCrypto: -0.70,
				types.ShiftKeyStable: -0.02,
			},
		},
		{
			Name:        "stable_depeg_5",
			Description: "Stablecoins slip 5% off peg, crypto unchanged",
			PriceShifts: map[string]float64{
				types.ShiftKeyStable: -0.05,
			},
		},
		{
			Name:        "stable_depeg_8",
			Description: "Deep stablecoin depeg of 8%, crypto unchanged",
			PriceShifts: map[string]float64{
				types.ShiftKeyStable: -0.08,
			},
		},
		{
			Name:        "melt_up_100",
			Description: "Crypto doubles; gains report as negative loss",
			PriceShifts: map[string]float64{
				types.ShiftKeyCrypto: 1.00,
			},
		},
		{
			Name:        "melt_up_150",
			Description: "Crypto rallies 150%",
			PriceShifts: map[string]float64{
				types.ShiftKeyCrypto: 1.50,
			},
		},
	}
}

// Run revalues the portfolio under every scenario. Results come back in the
// same order as the scenarios.
func Run(portfolio types.PortfolioSnapshot, market types.MarketSnapshot, scenarios []types.ShockScenario) ([]types.StressResult, error) {
	log := logger.GetForComponent("stress")

	if err := portfolio.Validate(); err != nil {
		return nil, err
	}

	results := make([]types.StressResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		result, err := runScenario(portfolio, market, scenario)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if len(results) > 0 {
		worst := results[0]
		for _, r := range results[1:] {
			if r.LossPct > worst.LossPct {
				worst = r
			}
		}
		log.Debug().
			Int("scenarios", len(results)).
			Str("worst_scenario", worst.ScenarioName).
			Float64("worst_loss_pct", worst.LossPct).
			Msg("Stress sweep complete")
	}

	return results, nil
}

func runScenario(portfolio types.PortfolioSnapshot, market types.MarketSnapshot, scenario types.ShockScenario) (types.StressResult, error) {
	original := 0.0
	stressed := 0.0
	for symbol, quantity := range portfolio.Holdings {
		price, ok := market.Prices[symbol]
		if !ok {
			return types.StressResult{}, fmt.Errorf("scenario %s: %w: %s", scenario.Name, ErrMissingPrice, symbol)
		}
		shift := resolveShift(symbol, scenario.PriceShifts)
		original += quantity * price
		stressed += quantity * price * (1.0 + shift)
	}

	result := types.StressResult{
		ScenarioName:     scenario.Name,
		OriginalValueUSD: original,
		StressedValueUSD: stressed,
		LossUSD:          original - stressed,
	}
	if original > 0 {
		result.LossPct = result.LossUSD / original * 100.0
	}
	return result, nil
}

// resolveShift finds the price shift for one asset: exact symbol beats class
// key beats DEFAULT.
func resolveShift(symbol types.AssetSymbol, shifts map[string]float64) float64 {
	if shift, ok := shifts[string(symbol)]; ok {
		return shift
	}
	if analyzer.IsStablecoin(symbol) {
		if shift, ok := shifts[types.ShiftKeyStable]; ok {
			return shift
		}
	} else {
		if shift, ok := shifts[types.ShiftKeyCrypto]; ok {
			return shift
		}
	}
	if shift, ok := shifts[types.ShiftKeyDefault]; ok {
		return shift
	}
	return 0
}

package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMarket() MarketSnapshot {
	return MarketSnapshot{
		Prices: map[AssetSymbol]float64{
			"SOL":  150.0,
			"USDC": 1.0,
		},
		Volatilities: map[AssetSymbol]float64{
			"SOL":  0.08,
			"USDC": 0.002,
		},
	}
}

func TestNewPortfolioSnapshot(t *testing.T) {
	holdings := map[AssetSymbol]float64{
		"SOL":  400,
		"USDC": 40000,
	}

	snapshot, err := NewPortfolioSnapshot(holdings, testMarket())
	require.NoError(t, err)

	assert.InDelta(t, 100000.0, snapshot.TotalValueUSD, 1e-9)
	assert.InDelta(t, 0.6, snapshot.Weights["SOL"], 1e-12)
	assert.InDelta(t, 0.4, snapshot.Weights["USDC"], 1e-12)
	require.NoError(t, snapshot.Validate())
}

func TestNewPortfolioSnapshotRejectsBadInput(t *testing.T) {
	market := testMarket()

	_, err := NewPortfolioSnapshot(nil, market)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = NewPortfolioSnapshot(map[AssetSymbol]float64{"SOL": -1}, market)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	_, err = NewPortfolioSnapshot(map[AssetSymbol]float64{"SOL": math.NaN()}, market)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	// Held asset with no market price
	_, err = NewPortfolioSnapshot(map[AssetSymbol]float64{"DOGE": 1000}, market)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestValidateCatchesWeightDrift(t *testing.T) {
	snapshot := PortfolioSnapshot{
		TotalValueUSD: 1000,
		Holdings:      map[AssetSymbol]float64{"SOL": 10},
		Weights:       map[AssetSymbol]float64{"SOL": 0.9},
	}
	assert.ErrorIs(t, snapshot.Validate(), ErrInvalidSnapshot)

	snapshot.Weights["SOL"] = 1.0
	assert.NoError(t, snapshot.Validate())
}

func TestCloneDoesNotAlias(t *testing.T) {
	original, err := NewPortfolioSnapshot(map[AssetSymbol]float64{"SOL": 400, "USDC": 40000}, testMarket())
	require.NoError(t, err)

	clone := original.Clone()
	clone.Holdings["SOL"] = 0
	clone.Weights["SOL"] = 0

	assert.Equal(t, 400.0, original.Holdings["SOL"])
	assert.InDelta(t, 0.6, original.Weights["SOL"], 1e-12)
}

func TestZeroValuePortfolioSkipsWeightCheck(t *testing.T) {
	snapshot := PortfolioSnapshot{
		TotalValueUSD: 0,
		Holdings:      map[AssetSymbol]float64{"SOL": 0},
		Weights:       map[AssetSymbol]float64{"SOL": 0},
	}
	assert.NoError(t, snapshot.Validate())
}

func TestMarketSnapshotValidate(t *testing.T) {
	market := testMarket()
	require.NoError(t, market.Validate())

	market.Prices["SOL"] = -5
	assert.ErrorIs(t, market.Validate(), ErrInvalidSnapshot)

	market = testMarket()
	market.Volatilities["SOL"] = math.Inf(1)
	assert.ErrorIs(t, market.Validate(), ErrInvalidSnapshot)

	assert.Error(t, MarketSnapshot{}.Validate())
}

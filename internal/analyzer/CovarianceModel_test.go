package analyzer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-fi/trm/internal/types"
)

func testMarket() types.MarketSnapshot {
	return types.MarketSnapshot{
		Prices: map[types.AssetSymbol]float64{
			"BTC": 60000, "ETH": 3000, "SOL": 150, "USDC": 1, "USDT": 1, "JUP": 0.8,
		},
		Volatilities: map[types.AssetSymbol]float64{
			"BTC": 0.05, "ETH": 0.06, "SOL": 0.08, "USDC": 0.002, "USDT": 0.003, "JUP": 0.12,
		},
	}
}

func TestBuildCovarianceModelShape(t *testing.T) {
	assets := []types.AssetSymbol{"BTC", "ETH", "SOL", "USDC"}
	model, err := BuildCovarianceModel(assets, testMarket(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	require.Equal(t, 4, model.Dim())
	require.Len(t, model.Volatilities, 4)

	for i := 0; i < 4; i++ {
		assert.Equal(t, 1.0, model.Correlation.At(i, i), "diagonal correlation must be 1")
		assert.InDelta(t, model.Volatilities[i]*model.Volatilities[i], model.Covariance.At(i, i), 1e-12)
		for j := 0; j < 4; j++ {
			// Symmetry and the clamp
			assert.Equal(t, model.Correlation.At(i, j), model.Correlation.At(j, i))
			if i != j {
				assert.LessOrEqual(t, model.Correlation.At(i, j), correlationClamp)
				assert.GreaterOrEqual(t, model.Correlation.At(i, j), -correlationClamp)
			}
		}
	}

	// Covariance entries follow rho * vol_i * vol_j
	rho := model.Correlation.At(0, 1)
	assert.InDelta(t, rho*model.Volatilities[0]*model.Volatilities[1], model.Covariance.At(0, 1), 1e-12)
}

func TestBuildCovarianceModelDeterministic(t *testing.T) {
	assets := []types.AssetSymbol{"BTC", "ETH", "SOL", "USDC", "USDT"}

	a, err := BuildCovarianceModel(assets, testMarket(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := BuildCovarianceModel(assets, testMarket(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	for i := 0; i < len(assets); i++ {
		for j := 0; j < len(assets); j++ {
			assert.Equal(t, a.Correlation.At(i, j), b.Correlation.At(i, j))
		}
	}
}

func TestPairCorrelationClasses(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		rho := pairCorrelation("USDC", "USDT", rng)
		assert.InDelta(t, stableStableBase, rho, stableStableJitter+0.01, "stable pair should sit near its base")

		rho = pairCorrelation("SOL", "USDC", rng)
		assert.InDelta(t, cryptoStableBase, rho, cryptoStableJitter+1e-9)

		rho = pairCorrelation("BTC", "ETH", rng)
		assert.InDelta(t, majorMajorBase, rho, majorMajorJitter+1e-9)

		rho = pairCorrelation("JUP", "SOL", rng)
		assert.InDelta(t, defaultBase, rho, defaultJitter+1e-9)
	}
}

func TestResolveVolatilityFallbacks(t *testing.T) {
	empty := types.MarketSnapshot{Prices: map[types.AssetSymbol]float64{}}

	vol, err := resolveVolatility("BTC", empty)
	require.NoError(t, err)
	assert.Equal(t, 0.05, vol)

	vol, err = resolveVolatility("USDC", empty)
	require.NoError(t, err)
	assert.Equal(t, defaultStableVolatility, vol)

	vol, err = resolveVolatility("SOMETHING", empty)
	require.NoError(t, err)
	assert.Equal(t, defaultCryptoVolatility, vol)

	// Market estimate wins over the default
	vol, err = resolveVolatility("SOL", testMarket())
	require.NoError(t, err)
	assert.Equal(t, 0.08, vol)
}

func TestBuildCovarianceModelRejectsBadInput(t *testing.T) {
	_, err := BuildCovarianceModel(nil, testMarket(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInvalidMarketData)

	_, err = BuildCovarianceModel([]types.AssetSymbol{"SOL"}, testMarket(), nil)
	assert.ErrorIs(t, err, ErrInvalidMarketData)
}

func TestIsStablecoin(t *testing.T) {
	assert.True(t, IsStablecoin("USDC"))
	assert.True(t, IsStablecoin("USDT"))
	assert.True(t, IsStablecoin("sUSD"))
	assert.False(t, IsStablecoin("SOL"))
	assert.False(t, IsStablecoin("BTC"))
}

func TestCalculateVolatility(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Constant price has zero volatility
	flat := []types.PricePoint{
		{Timestamp: base, Price: 100},
		{Timestamp: base.AddDate(0, 0, 1), Price: 100},
		{Timestamp: base.AddDate(0, 0, 2), Price: 100},
	}
	vol, err := CalculateVolatility(flat)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vol)

	// Alternating moves produce a positive volatility
	moving := []types.PricePoint{
		{Timestamp: base, Price: 100},
		{Timestamp: base.AddDate(0, 0, 1), Price: 110},
		{Timestamp: base.AddDate(0, 0, 2), Price: 99},
		{Timestamp: base.AddDate(0, 0, 3), Price: 108},
	}
	vol, err = CalculateVolatility(moving)
	require.NoError(t, err)
	assert.Greater(t, vol, 0.0)

	// Unsorted input gives the same answer
	shuffled := []types.PricePoint{moving[2], moving[0], moving[3], moving[1]}
	vol2, err := CalculateVolatility(shuffled)
	require.NoError(t, err)
	assert.InDelta(t, vol, vol2, 1e-12)

	_, err = CalculateVolatility(flat[:1])
	assert.ErrorIs(t, err, ErrInsufficientData)

	// Non-positive prices are skipped; all-bad input errors
	_, err = CalculateVolatility([]types.PricePoint{
		{Timestamp: base, Price: 0},
		{Timestamp: base.AddDate(0, 0, 1), Price: -5},
	})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

package simulations

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-fi/trm/internal/analyzer"
	"github.com/arcadia-fi/trm/internal/types"
)

func testMarket() types.MarketSnapshot {
	return types.MarketSnapshot{
		Prices: map[types.AssetSymbol]float64{
			"SOL": 150, "USDC": 1,
		},
		Volatilities: map[types.AssetSymbol]float64{
			"SOL": 0.08, "USDC": 0.002,
		},
	}
}

func testPortfolio(t *testing.T) (types.PortfolioSnapshot, types.CovarianceModel) {
	t.Helper()

	// 70% SOL / 30% USDC on a $100k book
	portfolio, err := types.NewPortfolioSnapshot(map[types.AssetSymbol]float64{
		"SOL":  466.6666666666667, // $70,000
		"USDC": 30000,             // $30,000
	}, testMarket())
	require.NoError(t, err)

	model, err := analyzer.BuildCovarianceModel(
		[]types.AssetSymbol{"SOL", "USDC"}, testMarket(), rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	return portfolio, model
}

func TestEvaluateProducesPlausibleVaR(t *testing.T) {
	portfolio, model := testPortfolio(t)

	report, err := Evaluate(portfolio, model, 20000, 7)
	require.NoError(t, err)

	// A 70% allocation to an 8%-vol asset should land the 1-day 95% VaR in
	// the high single digits of portfolio value.
	assert.Greater(t, report.VaRPct95_24h, 4.0)
	assert.Less(t, report.VaRPct95_24h, 14.0)

	assert.Greater(t, report.VaR95_1d, 0.0)
	assert.GreaterOrEqual(t, report.VaR99_1d, report.VaR95_1d, "99% VaR cannot be below 95% VaR")
	assert.GreaterOrEqual(t, report.ExpectedShortfall95, report.VaR95_1d, "tail mean cannot be below the tail cutoff")

	assert.Equal(t, 20000, report.TrialCount)
	assert.Equal(t, int64(7), report.Seed)
	assert.InDelta(t, report.VaR95_1d/portfolio.TotalValueUSD*100, report.VaRPct95_24h, 1e-9)
}

func TestEvaluateHorizonScaling(t *testing.T) {
	portfolio, model := testPortfolio(t)

	report, err := Evaluate(portfolio, model, 5000, 3)
	require.NoError(t, err)

	assert.InDelta(t, report.VaR95_1d*math.Sqrt(7), report.VaR95_7d, 1e-9)
	assert.InDelta(t, report.VaR99_1d*math.Sqrt(7), report.VaR99_7d, 1e-9)
}

func TestEvaluateDeterministic(t *testing.T) {
	portfolio, model := testPortfolio(t)

	a, err := Evaluate(portfolio, model, 10000, 12345)
	require.NoError(t, err)
	b, err := Evaluate(portfolio, model, 10000, 12345)
	require.NoError(t, err)

	assert.Equal(t, a, b, "identical seed and trials must reproduce the report exactly")

	c, err := Evaluate(portfolio, model, 10000, 54321)
	require.NoError(t, err)
	assert.NotEqual(t, a.VaR95_1d, c.VaR95_1d, "different seeds should differ")
}

func TestEvaluateSingleAsset(t *testing.T) {
	portfolio, err := types.NewPortfolioSnapshot(
		map[types.AssetSymbol]float64{"SOL": 100}, testMarket())
	require.NoError(t, err)

	model, err := analyzer.BuildCovarianceModel(
		[]types.AssetSymbol{"SOL"}, testMarket(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	report, err := Evaluate(portfolio, model, 20000, 5)
	require.NoError(t, err)

	// Pure 8%-vol exposure: 95% VaR around 1.645 sigma
	assert.InDelta(t, 13.2, report.VaRPct95_24h, 2.5)
	assert.InDelta(t, 0.08, report.PortfolioVolatility, 1e-9)
}

func TestEvaluateInputValidation(t *testing.T) {
	portfolio, model := testPortfolio(t)

	_, err := Evaluate(portfolio, model, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidTrialCount)

	_, err = Evaluate(portfolio, model, -5, 1)
	assert.ErrorIs(t, err, ErrInvalidTrialCount)

	_, err = Evaluate(types.PortfolioSnapshot{}, model, 100, 1)
	assert.ErrorIs(t, err, ErrInvalidPortfolio)

	_, err = Evaluate(portfolio, types.CovarianceModel{}, 100, 1)
	assert.ErrorIs(t, err, ErrInvalidPortfolio)

	// Held asset the model does not know
	stray := portfolio.Clone()
	stray.Holdings["DOGE"] = 1
	_, err = Evaluate(stray, model, 100, 1)
	assert.ErrorIs(t, err, ErrInvalidPortfolio)
}

func TestEvaluateZeroValuePortfolio(t *testing.T) {
	_, model := testPortfolio(t)

	portfolio := types.PortfolioSnapshot{
		TotalValueUSD: 0,
		Holdings:      map[types.AssetSymbol]float64{"SOL": 0},
		Weights:       map[types.AssetSymbol]float64{"SOL": 0},
	}

	report, err := Evaluate(portfolio, model, 1000, 2)
	require.NoError(t, err)
	assert.Zero(t, report.VaR95_1d)
	assert.Zero(t, report.VaRPct95_24h)
	assert.Equal(t, 1000, report.TrialCount)
}

func TestRunTrialsPartitionOrder(t *testing.T) {
	loadings := []float64{0.05}

	// Trial counts that do not divide evenly across partitions still fill
	// every slot deterministically.
	for _, trials := range []int{1, 7, 16, 17, 1000} {
		a := runTrials(loadings, trials, 11)
		b := runTrials(loadings, trials, 11)
		require.Len(t, a, trials)
		assert.Equal(t, a, b)
	}
}

func TestExpectedShortfall(t *testing.T) {
	sorted := []float64{-0.10, -0.08, -0.05, 0.01, 0.02}

	// Only -0.10 sits strictly beyond a -0.08 cutoff
	assert.InDelta(t, 0.10, expectedShortfall(sorted, -0.08), 1e-12)

	// Nothing beyond the worst observation: empty tail is zero
	assert.Zero(t, expectedShortfall(sorted, -0.2))
}

func TestFiniteOnly(t *testing.T) {
	in := []float64{0.01, math.NaN(), -0.02, math.Inf(1), math.Inf(-1)}
	assert.Equal(t, []float64{0.01, -0.02}, finiteOnly(in))

	assert.Empty(t, finiteOnly([]float64{math.NaN(), math.Inf(1)}))
}

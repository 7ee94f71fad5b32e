package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-fi/trm/internal/config"
	"github.com/arcadia-fi/trm/internal/treasury"
	"github.com/arcadia-fi/trm/internal/types"
)

func testEngine(t *testing.T, baseSeed int64) *Engine {
	t.Helper()

	params := config.DefaultRiskParameters
	params.TrialCount = 10000

	e, err := New(Config{
		TreasuryManager: treasury.NewDemoManager(),
		RiskParams:      &params,
		ConfigName:      DEFAULT_RISK_CONFIG_NAME,
		ConfigVersion:   DEFAULT_RISK_CONFIG_VERSION,
		BaseSeed:        baseSeed,
		Persist:         false,
	})
	require.NoError(t, err)
	return e
}

func TestNewValidatesConfig(t *testing.T) {
	params := config.DefaultRiskParameters

	_, err := New(Config{RiskParams: &params, ConfigName: "x", ConfigVersion: 1})
	assert.Error(t, err, "nil treasury manager must be rejected")

	_, err = New(Config{TreasuryManager: treasury.NewDemoManager(), ConfigName: "x", ConfigVersion: 1})
	assert.Error(t, err, "nil risk parameters must be rejected")

	badParams := params
	badParams.TrialCount = 0
	_, err = New(Config{TreasuryManager: treasury.NewDemoManager(), RiskParams: &badParams, ConfigName: "x", ConfigVersion: 1})
	assert.Error(t, err, "zero trial count must be rejected")

	_, err = New(Config{TreasuryManager: treasury.NewDemoManager(), RiskParams: &params, ConfigName: "", ConfigVersion: 1})
	assert.Error(t, err, "empty config name must be rejected")
}

func TestRunCycleEndToEnd(t *testing.T) {
	e := testEngine(t, 1000)

	snapshot, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, uint64(1), snapshot.CycleNumber)
	assert.Equal(t, int64(1001), snapshot.Seed, "cycle seed is base seed plus cycle number")
	assert.NotEmpty(t, snapshot.ID)

	// Demo book: 400 SOL at $165 plus 34,000 USDC
	assert.InDelta(t, 100000.0, snapshot.PortfolioValueUSD, 1e-6)

	// All three demo routes clear the venue and swap-size policy
	require.Len(t, snapshot.RouteRankings, 3)
	assert.Equal(t, "derisk-50", snapshot.RouteRankings[0].ID,
		"the deepest de-risk should carry the lowest risk score")

	require.Len(t, snapshot.StressResults, 6)

	// 66% crypto down 70% plus a 2% stable slip: worst case just under half
	assert.InDelta(t, 46.88, snapshot.WorstCaseLossPct, 0.1)

	// Halving the SOL leg cuts VaR far beyond the recommendation margin
	assert.Equal(t, "derisk-50", snapshot.RecommendedRouteID)

	// The correlated crash scenario exceeds the 45% stress alert threshold
	assert.True(t, snapshot.PolicyBreached)

	assert.Greater(t, snapshot.BaselineVar.VaRPct95_24h, 4.0)
	assert.Less(t, snapshot.BaselineVar.VaRPct95_24h, 14.0)
}

func TestRunCycleDeterministicAcrossEngines(t *testing.T) {
	a, err := testEngine(t, 77).RunCycle(context.Background())
	require.NoError(t, err)
	b, err := testEngine(t, 77).RunCycle(context.Background())
	require.NoError(t, err)

	// Cycle ID and wall-clock differ; everything derived from the seed must not.
	assert.Equal(t, a.BaselineVar, b.BaselineVar)
	assert.Equal(t, a.RouteRankings, b.RouteRankings)
	assert.Equal(t, a.StressResults, b.StressResults)
	assert.Equal(t, a.RecommendedRouteID, b.RecommendedRouteID)
	assert.Equal(t, a.Seed, b.Seed)
}

func TestRunCycleAdvancesSeedPerCycle(t *testing.T) {
	e := testEngine(t, 500)
	ctx := context.Background()

	first, err := e.RunCycle(ctx)
	require.NoError(t, err)
	second, err := e.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(501), first.Seed)
	assert.Equal(t, int64(502), second.Seed)
	assert.NotEqual(t, first.BaselineVar.VaR95_1d, second.BaselineVar.VaR95_1d)
}

func TestFilterRoutesPolicy(t *testing.T) {
	e := testEngine(t, 1)

	routes := []types.RouteCandidate{
		{
			ID: "ok",
			Actions: []types.RouteAction{{
				Type: types.RouteActionSwap, FromAsset: "SOL", ToAsset: "USDC",
				FromAmountPct: 25, Venue: "jupiter",
			}},
		},
		{
			ID: "shady-venue",
			Actions: []types.RouteAction{{
				Type: types.RouteActionSwap, FromAsset: "SOL", ToAsset: "USDC",
				FromAmountPct: 25, Venue: "unvetted-dex",
			}},
		},
		{
			ID: "oversized",
			Actions: []types.RouteAction{{
				Type: types.RouteActionSwap, FromAsset: "SOL", ToAsset: "USDC",
				FromAmountPct: 90, Venue: "jupiter",
			}},
		},
		{
			ID:      "hold",
			Actions: []types.RouteAction{{Type: types.RouteActionNoOp}},
		},
	}

	eligible := e.filterRoutes(routes, e.logger)
	require.Len(t, eligible, 2)
	assert.Equal(t, "ok", eligible[0].ID)
	assert.Equal(t, "hold", eligible[1].ID)
}

func TestPolicyBreaches(t *testing.T) {
	e := testEngine(t, 1)

	portfolio := types.PortfolioSnapshot{
		TotalValueUSD: 100000,
		Holdings:      map[types.AssetSymbol]float64{"SOL": 600, "USDC": 10000},
		Weights:       map[types.AssetSymbol]float64{"SOL": 0.9, "USDC": 0.1},
	}

	baseline := types.VarReport{VaRPct95_24h: 12.0}
	reasons := e.policyBreaches(portfolio, baseline, 50.0)

	// VaR over limit, stable floor broken, stress alert tripped
	require.Len(t, reasons, 3)

	healthy := types.PortfolioSnapshot{
		TotalValueUSD: 100000,
		Holdings:      map[types.AssetSymbol]float64{"SOL": 200, "USDC": 70000},
		Weights:       map[types.AssetSymbol]float64{"SOL": 0.3, "USDC": 0.7},
	}
	reasons = e.policyBreaches(healthy, types.VarReport{VaRPct95_24h: 3.0}, 12.0)
	assert.Empty(t, reasons)
}

func TestAssetUniverseCoversRouteTargets(t *testing.T) {
	e := testEngine(t, 1)

	portfolio := types.PortfolioSnapshot{
		TotalValueUSD: 1000,
		Holdings:      map[types.AssetSymbol]float64{"SOL": 1},
		Weights:       map[types.AssetSymbol]float64{"SOL": 1},
	}
	routes := []types.RouteCandidate{
		{
			ID: "swap",
			Actions: []types.RouteAction{{
				Type: types.RouteActionSwap, FromAsset: "SOL", ToAsset: "USDC", FromAmountPct: 10,
			}},
		},
	}

	universe := e.assetUniverse(portfolio, routes)
	assert.Equal(t, []types.AssetSymbol{"SOL", "USDC"}, universe, "sorted and deduplicated")
}

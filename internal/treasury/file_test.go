package treasury

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-fi/trm/internal/types"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileManagerRoundTrip(t *testing.T) {
	dir := t.TempDir()

	portfolioPath := writeFixture(t, dir, "portfolio.json", `{"SOL": 400, "USDC": 34000}`)
	marketPath := writeFixture(t, dir, "market.json", `{
		"prices": {"SOL": 165, "USDC": 1},
		"volatilities": {"SOL": 0.08, "USDC": 0.002}
	}`)
	routesPath := writeFixture(t, dir, "routes.json", `[
		{"id": "r1", "description": "swap", "actions": [
			{"type": "SWAP", "from_asset": "SOL", "to_asset": "USDC", "from_amount_pct": 25, "venue": "jupiter", "estimated_slippage_bps": 12}
		]}
	]`)

	m, err := NewFileManager(portfolioPath, marketPath, routesPath)
	require.NoError(t, err)
	defer m.Close()

	holdings, err := m.GetHoldings()
	require.NoError(t, err)
	assert.Equal(t, 400.0, holdings["SOL"])
	assert.Equal(t, 34000.0, holdings["USDC"])

	market, err := m.GetMarket()
	require.NoError(t, err)
	assert.Equal(t, 165.0, market.Prices["SOL"])
	assert.Equal(t, 0.08, market.Volatilities["SOL"])

	routes, err := m.GetRouteCandidates()
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "r1", routes[0].ID)
	require.Len(t, routes[0].Actions, 1)
	assert.Equal(t, types.RouteActionSwap, routes[0].Actions[0].Type)
	assert.Equal(t, types.AssetSymbol("SOL"), routes[0].Actions[0].FromAsset)
}

func TestFileManagerSeesEdits(t *testing.T) {
	dir := t.TempDir()

	portfolioPath := writeFixture(t, dir, "portfolio.json", `{"SOL": 100}`)
	marketPath := writeFixture(t, dir, "market.json", `{"prices": {"SOL": 150}, "volatilities": {"SOL": 0.08}}`)
	routesPath := writeFixture(t, dir, "routes.json", `[]`)

	m, err := NewFileManager(portfolioPath, marketPath, routesPath)
	require.NoError(t, err)

	// Files are re-read on every call
	writeFixture(t, dir, "portfolio.json", `{"SOL": 250}`)
	holdings, err := m.GetHoldings()
	require.NoError(t, err)
	assert.Equal(t, 250.0, holdings["SOL"])
}

func TestFileManagerRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFixture(t, dir, "good.json", `{}`)
	routes := writeFixture(t, dir, "routes.json", `[]`)

	_, err := NewFileManager(filepath.Join(dir, "missing.json"), good, routes)
	assert.Error(t, err)

	badMarket := writeFixture(t, dir, "market.json", `{"prices": {"SOL": -1}}`)
	portfolio := writeFixture(t, dir, "portfolio.json", `{"SOL": 1}`)
	_, err = NewFileManager(portfolio, badMarket, routes)
	assert.Error(t, err)

	notJSON := writeFixture(t, dir, "garbage.json", `not json`)
	_, err = NewFileManager(notJSON, good, routes)
	assert.Error(t, err)
}

func TestDemoManagerIsInternallyConsistent(t *testing.T) {
	m := NewDemoManager()

	holdings, err := m.GetHoldings()
	require.NoError(t, err)
	market, err := m.GetMarket()
	require.NoError(t, err)

	// Every demo holding has a price and a volatility
	for symbol := range holdings {
		assert.Contains(t, market.Prices, symbol)
		assert.Contains(t, market.Volatilities, symbol)
	}

	snapshot, err := types.NewPortfolioSnapshot(holdings, market)
	require.NoError(t, err)
	assert.InDelta(t, 100000.0, snapshot.TotalValueUSD, 1e-6)

	routes, err := m.GetRouteCandidates()
	require.NoError(t, err)
	assert.NotEmpty(t, routes)
}

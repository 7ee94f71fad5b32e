package treasury

import (
	"github.com/arcadia-fi/trm/internal/types"
)

// Manager defines the interface for reading the treasury under evaluation.
// This interface abstracts away where the holdings and market data come from,
// allowing for different implementations (file-backed, on-chain indexer,
// synthetic demo).
type Manager interface {
	// GetHoldings returns the current asset quantities held by the treasury.
	GetHoldings() (map[types.AssetSymbol]float64, error)

	// GetMarket returns the market snapshot (prices and volatility estimates)
	// to value the treasury against.
	GetMarket() (types.MarketSnapshot, error)

	// GetRouteCandidates returns the rebalancing routes proposed for the
	// current cycle.
	GetRouteCandidates() ([]types.RouteCandidate, error)

	// Close cleans up any resources used by the manager.
	Close() error
}

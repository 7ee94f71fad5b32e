/*

This file contains the default risk parameters for the TRM.

These parameters are designed for managing a sizeable DAO treasury in a
production environment. Each value has been chosen to balance capital
preservation against the cost of rebalancing.

*/

package config

import (
	"github.com/arcadia-fi/trm/internal/types"
)

// DefaultRiskParameters provides a baseline policy for the TRM engine.
// These values are used if no active parameters are found in the database
// during initialization.
//
// IMPORTANT: These defaults are calibrated for treasuries holding a majority
// of value in volatile crypto assets. They favor flagging too often over
// flagging too late.
var DefaultRiskParameters = types.RiskParameters{
	// --- Policy Limits ---
	MaxVarPct24h: 8.0, // Flag the cycle if the 95% 1-day VaR exceeds 8% of treasury value.
	// Rationale: A treasury expecting to lose more than 8% on a bad-but-plausible
	// day is carrying too much market risk for an organization with fixed
	// operating expenses. Runway planning breaks down above this level.

	MinStableAllocationPct: 0.20, // Keep at least 20% of value in stablecoins.
	// Rationale: 20% covers roughly 12-18 months of typical DAO operating costs
	// regardless of what the volatile assets do. Below this floor the treasury
	// is forced to sell into drawdowns to pay contributors.

	StressAlertLossPct: 45.0, // Flag if any stress scenario loses more than 45% of value.
	// Rationale: The crash scenarios model historical worst cases. A portfolio
	// that loses over 45% under any of them is effectively a leveraged bet on
	// one asset class and needs restructuring, not monitoring.

	AllowedVenues: []string{"jupiter", "orca", "uniswap"},
	// Rationale: Limit execution to venues with deep liquidity and long
	// operating histories. Routes through unvetted venues are rejected before
	// scoring rather than merely penalized.

	// --- Route Recommendation ---
	MinVarImprovementPct: 0.5, // Require a 0.5 percentage point VaR reduction to recommend a route.
	// Rationale: Swaps cost real money in slippage. A route must reduce risk by
	// a margin that outlasts normal market noise before it is worth executing.

	MaxSingleSwapPct: 50.0, // No single action may move more than half of an asset's holding.
	// Rationale: Large swaps create market impact well beyond the quoted
	// slippage estimate. Bigger reallocations should be split across cycles.

	// --- Simulation Tuning ---
	TrialCount: 20000, // Monte Carlo trials per VaR evaluation.
	// Rationale: 20k trials keeps the 95th/99th percentile estimates stable to
	// well under 0.1% of portfolio value while an evaluation still completes in
	// tens of milliseconds on commodity hardware.
}

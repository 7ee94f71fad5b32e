/*

This file contains the types for candidate rebalancing routes. A route is a
sequence of actions transforming one portfolio allocation into another; the
planner scores routes by projected risk and execution cost.

*/

package types

// RouteActionType defines the specific low-level route operations.
type RouteActionType string

const (
	RouteActionSwap            RouteActionType = "SWAP"
	RouteActionAddLiquidity    RouteActionType = "ADD_LIQUIDITY"    // Move assets into a venue liquidity position
	RouteActionRemoveLiquidity RouteActionType = "REMOVE_LIQUIDITY" // Unwind a venue liquidity position
	RouteActionNoOp            RouteActionType = "NO_OP"            // Placeholder if no action needed for a step
)

// RouteAction represents a single executable step in a rebalancing route.
type RouteAction struct {
	Type RouteActionType `json:"type"`

	// Fields for SWAP
	FromAsset     AssetSymbol `json:"from_asset,omitempty"`
	ToAsset       AssetSymbol `json:"to_asset,omitempty"`
	FromAmountPct float64     `json:"from_amount_pct,omitempty"` // Percentage of the current FromAsset holding to move (0-100)

	Venue                string  `json:"venue,omitempty"`                  // Execution venue identifier (e.g. "jupiter")
	EstimatedSlippageBps float64 `json:"estimated_slippage_bps,omitempty"` // Expected execution cost in basis points of notional
}

// RouteCandidate is one proposed reallocation submitted for scoring.
type RouteCandidate struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Actions     []RouteAction `json:"actions"`
}

// RouteAnalysis is the scored outcome for a single candidate. RiskScore
// combines the projected VaR percentage with the slippage cost; lower is
// better.
type RouteAnalysis struct {
	ID                 string    `json:"id"`
	Description        string    `json:"description"`
	ProjectedVarReport VarReport `json:"projected_var_report"`
	SlippageCostBps    float64   `json:"slippage_cost_bps"`
	RiskScore          float64   `json:"risk_score"`
}

/*

This file contains the types for the deterministic stress-test sweep: named
price-shock scenarios and the per-scenario revaluation results.

*/

package types

// Class keys usable in a scenario's PriceShifts map alongside exact asset
// symbols. Resolution order for an asset is: exact symbol, class key,
// ShiftKeyDefault, otherwise no shift.
const (
	ShiftKeyCrypto  = "CRYPTO" // Applies to every non-stablecoin asset
	ShiftKeyStable  = "STABLE" // Applies to every stablecoin asset
	ShiftKeyDefault = "DEFAULT"
)

// ShockScenario describes one deterministic price shock. Shift values are
// fractional price changes (-0.50 = price halves, 1.0 = price doubles).
type ShockScenario struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	PriceShifts map[string]float64 `json:"price_shifts"`
}

// StressResult is the portfolio revaluation under a single scenario.
// LossPct is positive for losses and negative for gains.
type StressResult struct {
	ScenarioName     string  `json:"scenario_name"`
	OriginalValueUSD float64 `json:"original_value_usd"`
	StressedValueUSD float64 `json:"stressed_value_usd"`
	LossUSD          float64 `json:"loss_usd"`
	LossPct          float64 `json:"loss_pct"`
}

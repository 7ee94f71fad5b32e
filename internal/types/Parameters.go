/*

This file contains the risk policy parameters for the TRM. The parameters are
loaded from the database (or defaults) at startup and passed into the engine
as an immutable value; nothing below the engine reads configuration from the
environment.

*/

package types

// RiskParameters holds the numeric policy limits and evaluation tuning used
// by the TRM engine. Different sets of these parameters can exist for
// different treasury mandates.
type RiskParameters struct {
	// --- Policy Limits ---
	MaxVarPct24h           float64  `json:"max_var_pct_24h"`           // Maximum tolerated 95% 1-day VaR as a percentage of treasury value. Breaching this flags the evaluation and triggers a rebalance recommendation.
	MinStableAllocationPct float64  `json:"min_stable_allocation_pct"` // Minimum fraction of treasury value (0.0-1.0) that must sit in stablecoins.
	StressAlertLossPct     float64  `json:"stress_alert_loss_pct"`     // Worst-case stress scenario loss percentage above which the evaluation is flagged.
	AllowedVenues          []string `json:"allowed_venues"`            // Execution venues candidate routes may use; routes touching other venues are rejected before scoring.

	// --- Route Recommendation ---
	MinVarImprovementPct float64 `json:"min_var_improvement_pct"` // Minimum reduction in VaR percentage points a route must deliver before it is recommended over holding.
	MaxSingleSwapPct     float64 `json:"max_single_swap_pct"`     // Maximum FromAmountPct a single route action may request (0-100).

	// --- Simulation Tuning ---
	TrialCount int `json:"trial_count"` // Monte Carlo trials per VaR evaluation.
}

// VenueAllowed reports whether the venue is in the allowlist. An empty
// allowlist permits every venue.
func (p RiskParameters) VenueAllowed(venue string) bool {
	if len(p.AllowedVenues) == 0 {
		return true
	}
	for _, allowed := range p.AllowedVenues {
		if allowed == venue {
			return true
		}
	}
	return false
}

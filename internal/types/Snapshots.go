/*

This file contains the persisted record of one full evaluation cycle. The
engine writes one EvaluationSnapshot per cycle; the dashboard and analytics
queries read them back.

*/

package types

import "time"

// EvaluationSnapshot is the durable record of a single engine cycle: the
// portfolio that was evaluated, the baseline risk report, the ranked routes,
// the stress sweep, and the policy verdict.
type EvaluationSnapshot struct {
	ID          string    `json:"id"`
	CycleNumber uint64    `json:"cycle_number"`
	Timestamp   time.Time `json:"timestamp"`

	PortfolioValueUSD float64                 `json:"portfolio_value_usd"`
	Holdings          map[AssetSymbol]float64 `json:"holdings"`
	Weights           map[AssetSymbol]float64 `json:"weights"`

	BaselineVar   VarReport       `json:"baseline_var"`
	RouteRankings []RouteAnalysis `json:"route_rankings"`
	StressResults []StressResult  `json:"stress_results"`

	// WorstCaseLossPct is the largest LossPct across StressResults, 0 when
	// no scenarios ran.
	WorstCaseLossPct float64 `json:"worst_case_loss_pct"`

	// PolicyBreached is set when the baseline VaR exceeds MaxVarPct24h, the
	// stable allocation falls below the floor, or the worst stress loss
	// exceeds the alert threshold.
	PolicyBreached bool     `json:"policy_breached"`
	BreachReasons  []string `json:"breach_reasons,omitempty"`

	// RecommendedRouteID names the top-ranked route when it clears the
	// improvement threshold; empty means hold.
	RecommendedRouteID string `json:"recommended_route_id,omitempty"`

	// Replay information for the whole cycle.
	Seed       int64 `json:"seed"`
	TrialCount int   `json:"trial_count"`
}

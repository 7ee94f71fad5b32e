package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// RiskSummary represents high-level treasury risk statistics
type RiskSummary struct {
	PortfolioValueUSD float64 `json:"portfolio_value_usd"`
	VarPct95_24h      float64 `json:"var_pct_95_24h"`
	WorstCaseLossPct  float64 `json:"worst_case_loss_pct"`
	PolicyBreached    bool    `json:"policy_breached"`
	TotalCycles       int     `json:"total_cycles"`
	LastUpdated       string  `json:"last_updated"`
}

// RiskMetrics represents aggregated risk data across recent cycles
type RiskMetrics struct {
	AvgVarPct95_24h  float64 `json:"avg_var_pct_95_24h"`
	MaxVarPct95_24h  float64 `json:"max_var_pct_95_24h"`
	MaxWorstCaseLoss float64 `json:"max_worst_case_loss_pct"`
	BreachedCycles   int     `json:"breached_cycles"`
	TotalCycles      int     `json:"total_cycles"`
}

// GetRiskSummary retrieves the headline figures from the most recent cycle.
func GetRiskSummary() (*RiskSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &RiskSummary{}

	query := `
		SELECT
			portfolio_value_usd,
			var_pct_95_24h,
			worst_case_loss_pct,
			policy_breached,
			snapshot_timestamp
		FROM evaluation_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1
	`

	var lastUpdated sql.NullString
	err := DB.QueryRow(query).Scan(
		&summary.PortfolioValueUSD,
		&summary.VarPct95_24h,
		&summary.WorstCaseLossPct,
		&summary.PolicyBreached,
		&lastUpdated,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get latest evaluation values: %w", err)
	}

	if lastUpdated.Valid {
		summary.LastUpdated = lastUpdated.String
	}

	err = DB.QueryRow("SELECT COUNT(*) FROM evaluation_snapshots").Scan(&summary.TotalCycles)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get total cycle count")
	}

	log.Info().
		Float64("portfolioValue", summary.PortfolioValueUSD).
		Int("totalCycles", summary.TotalCycles).
		Msg("Retrieved risk summary")
	return summary, nil
}

// GetRiskMetrics retrieves aggregated risk metrics across all recorded cycles.
func GetRiskMetrics() (*RiskMetrics, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	metrics := &RiskMetrics{}

	query := `
		SELECT
			COALESCE(AVG(var_pct_95_24h), 0) as avg_var,
			COALESCE(MAX(var_pct_95_24h), 0) as max_var,
			COALESCE(MAX(worst_case_loss_pct), 0) as max_worst_case,
			COUNT(CASE WHEN policy_breached THEN 1 END) as breached_cycles,
			COUNT(*) as total_cycles
		FROM evaluation_snapshots
	`

	err := DB.QueryRow(query).Scan(
		&metrics.AvgVarPct95_24h,
		&metrics.MaxVarPct95_24h,
		&metrics.MaxWorstCaseLoss,
		&metrics.BreachedCycles,
		&metrics.TotalCycles,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get risk metrics: %w", err)
	}

	log.Info().
		Float64("avgVar", metrics.AvgVarPct95_24h).
		Float64("maxVar", metrics.MaxVarPct95_24h).
		Int("totalCycles", metrics.TotalCycles).
		Msg("Retrieved risk metrics")

	return metrics, nil
}

// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/arcadia-fi/trm/internal/types"
)

// SaveEvaluationSnapshot saves a complete evaluation snapshot to the database.
func SaveEvaluationSnapshot(snapshot types.EvaluationSnapshot, riskParamsID *int64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Marshal all JSONB fields
	holdingsJSON, err := json.Marshal(snapshot.Holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings: %w", err)
	}

	weightsJSON, err := json.Marshal(snapshot.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	baselineVarJSON, err := json.Marshal(snapshot.BaselineVar)
	if err != nil {
		return fmt.Errorf("failed to marshal baseline_var: %w", err)
	}

	routeRankingsJSON, err := json.Marshal(snapshot.RouteRankings)
	if err != nil {
		return fmt.Errorf("failed to marshal route_rankings: %w", err)
	}

	stressResultsJSON, err := json.Marshal(snapshot.StressResults)
	if err != nil {
		return fmt.Errorf("failed to marshal stress_results: %w", err)
	}

	breachReasonsJSON, err := json.Marshal(snapshot.BreachReasons)
	if err != nil {
		return fmt.Errorf("failed to marshal breach_reasons: %w", err)
	}

	query := `
		INSERT INTO evaluation_snapshots (
			snapshot_id, cycle_number, snapshot_timestamp, risk_params_id,
			portfolio_value_usd, holdings, weights,
			baseline_var, var_pct_95_24h, route_rankings, stress_results, worst_case_loss_pct,
			policy_breached, breach_reasons, recommended_route_id,
			seed, trial_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`

	_, err = DB.Exec(
		query,
		snapshot.ID, snapshot.CycleNumber, snapshot.Timestamp, riskParamsID,
		snapshot.PortfolioValueUSD, holdingsJSON, weightsJSON,
		baselineVarJSON, snapshot.BaselineVar.VaRPct95_24h, routeRankingsJSON, stressResultsJSON, snapshot.WorstCaseLossPct,
		snapshot.PolicyBreached, breachReasonsJSON, snapshot.RecommendedRouteID,
		snapshot.Seed, snapshot.TrialCount,
	)

	if err != nil {
		return fmt.Errorf("failed to save evaluation snapshot: %w", err)
	}

	log.Info().
		Str("snapshot_id", snapshot.ID).
		Uint64("cycle_number", snapshot.CycleNumber).
		Float64("portfolio_value", snapshot.PortfolioValueUSD).
		Bool("policy_breached", snapshot.PolicyBreached).
		Msg("Evaluation snapshot saved to database")

	return nil
}

// LoadEvaluationSnapshot retrieves a single snapshot by its ID.
func LoadEvaluationSnapshot(snapshotID string) (*types.EvaluationSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, cycle_number, snapshot_timestamp,
		       portfolio_value_usd, holdings, weights,
		       baseline_var, route_rankings, stress_results, worst_case_loss_pct,
		       policy_breached, breach_reasons, recommended_route_id,
		       seed, trial_count
		FROM evaluation_snapshots
		WHERE snapshot_id = $1;
	`

	return scanSnapshot(DB.QueryRow(query, snapshotID))
}

// LoadLatestEvaluationSnapshot retrieves the most recent snapshot.
func LoadLatestEvaluationSnapshot() (*types.EvaluationSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, cycle_number, snapshot_timestamp,
		       portfolio_value_usd, holdings, weights,
		       baseline_var, route_rankings, stress_results, worst_case_loss_pct,
		       policy_breached, breach_reasons, recommended_route_id,
		       seed, trial_count
		FROM evaluation_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1;
	`

	return scanSnapshot(DB.QueryRow(query))
}

// LoadRecentEvaluationSnapshots retrieves the newest snapshots, newest first.
func LoadRecentEvaluationSnapshots(limit int) ([]types.EvaluationSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT snapshot_id, cycle_number, snapshot_timestamp,
		       portfolio_value_usd, holdings, weights,
		       baseline_var, route_rankings, stress_results, worst_case_loss_pct,
		       policy_breached, breach_reasons, recommended_route_id,
		       seed, trial_count
		FROM evaluation_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]types.EvaluationSnapshot, 0, limit)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating snapshot rows: %w", err)
	}

	return snapshots, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*types.EvaluationSnapshot, error) {
	var snapshot types.EvaluationSnapshot
	var holdingsJSON, weightsJSON, baselineVarJSON, routeRankingsJSON, stressResultsJSON, breachReasonsJSON []byte

	err := row.Scan(
		&snapshot.ID, &snapshot.CycleNumber, &snapshot.Timestamp,
		&snapshot.PortfolioValueUSD, &holdingsJSON, &weightsJSON,
		&baselineVarJSON, &routeRankingsJSON, &stressResultsJSON, &snapshot.WorstCaseLossPct,
		&snapshot.PolicyBreached, &breachReasonsJSON, &snapshot.RecommendedRouteID,
		&snapshot.Seed, &snapshot.TrialCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan evaluation snapshot: %w", err)
	}

	for _, field := range []struct {
		name string
		data []byte
		dest interface{}
	}{
		{"holdings", holdingsJSON, &snapshot.Holdings},
		{"weights", weightsJSON, &snapshot.Weights},
		{"baseline_var", baselineVarJSON, &snapshot.BaselineVar},
		{"route_rankings", routeRankingsJSON, &snapshot.RouteRankings},
		{"stress_results", stressResultsJSON, &snapshot.StressResults},
		{"breach_reasons", breachReasonsJSON, &snapshot.BreachReasons},
	} {
		if len(field.data) == 0 {
			continue
		}
		if err := json.Unmarshal(field.data, field.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", field.name, err)
		}
	}

	return &snapshot, nil
}

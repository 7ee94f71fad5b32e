/*

This file manages the persistent global cycle counter for the TRM system.
The cycle counter is stored in the database to ensure continuity across restarts.
The counter also anchors reproducibility: each cycle's simulation seed is the
configured base seed plus the cycle number.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCurrentCycleNumber retrieves the current cycle number from the database
func GetCurrentCycleNumber() (uint64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_cycle FROM cycle_counter WHERE id = 1;`

	var currentCycle uint64
	row := DB.QueryRow(query)
	err := row.Scan(&currentCycle)

	if err != nil {
		if err == sql.ErrNoRows {
			// Should not happen; EnsureSchema seeds the row
			log.Warn().Msg("No cycle counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current cycle number: %w", err)
	}

	log.Debug().Uint64("currentCycle", currentCycle).Msg("Retrieved current cycle number")
	return currentCycle, nil
}

// IncrementCycleNumber increments the cycle counter and returns the new value
func IncrementCycleNumber() (uint64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE cycle_counter
		SET current_cycle = current_cycle + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;`

	var newCycle uint64
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newCycle)

	if err != nil {
		return 0, fmt.Errorf("failed to increment cycle number: %w", err)
	}

	log.Info().Uint64("newCycle", newCycle).Msg("Incremented cycle counter")
	return newCycle, nil
}

// ResetCycleNumber resets the cycle counter to a specific value (for testing/maintenance)
func ResetCycleNumber(cycleNumber uint64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE cycle_counter
		SET current_cycle = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, cycleNumber)
	if err != nil {
		return fmt.Errorf("failed to reset cycle number to %d: %w", cycleNumber, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting cycle number")
	}

	log.Warn().Uint64("cycleNumber", cycleNumber).Msg("Reset cycle counter")
	return nil
}

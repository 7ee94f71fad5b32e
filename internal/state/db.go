// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS risk_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			max_var_pct_24h DECIMAL(10, 4) NOT NULL,
			min_stable_allocation_pct DECIMAL(10, 8) NOT NULL,
			stress_alert_loss_pct DECIMAL(10, 4) NOT NULL,
			allowed_venues JSONB NOT NULL,
			min_var_improvement_pct DECIMAL(10, 4) NOT NULL,
			max_single_swap_pct DECIMAL(10, 4) NOT NULL,
			trial_count INTEGER NOT NULL,
			CONSTRAINT uq_risk_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_risk_parameters_config_active_timestamp ON risk_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS evaluation_snapshots (
			snapshot_id UUID PRIMARY KEY,
			cycle_number BIGINT NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			risk_params_id INTEGER REFERENCES risk_parameters(params_id),

			-- Evaluated State
			portfolio_value_usd DECIMAL(20, 8) NOT NULL,
			holdings JSONB,
			weights JSONB,

			-- Risk Output
			baseline_var JSONB,
			var_pct_95_24h DECIMAL(10, 4) NOT NULL,
			route_rankings JSONB,
			stress_results JSONB,
			worst_case_loss_pct DECIMAL(10, 4) NOT NULL,

			-- Verdict
			policy_breached BOOLEAN NOT NULL,
			breach_reasons JSONB,
			recommended_route_id VARCHAR(255),

			-- Replay
			seed BIGINT NOT NULL,
			trial_count INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_evaluation_snapshots_timestamp ON evaluation_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_evaluation_snapshots_cycle ON evaluation_snapshots(cycle_number DESC);
		CREATE INDEX IF NOT EXISTS idx_evaluation_snapshots_breached ON evaluation_snapshots(policy_breached, snapshot_timestamp DESC);

		-- Cycle counter table for persistent global cycle tracking
		CREATE TABLE IF NOT EXISTS cycle_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO cycle_counter (id, current_cycle)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

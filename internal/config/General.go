package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PortfolioFile is the path to the JSON file describing treasury holdings.
	PortfolioFile string
	// MarketFile is the path to the JSON file with current prices and volatilities.
	MarketFile string
	// RoutesFile is the path to the JSON file listing candidate rebalancing routes.
	RoutesFile string

	// TrialCount is the number of Monte Carlo trials per evaluation.
	TrialCount uint64
	// BaseSeed is the RNG seed for the first cycle; each cycle uses BaseSeed + cycle number.
	BaseSeed uint64

	// CycleIntervalSeconds is how long the engine sleeps between evaluation cycles.
	CycleIntervalSeconds uint64
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PortfolioFile, err = getEnv("TRM_PORTFOLIO_FILE")
	if err != nil {
		return err
	}

	MarketFile, err = getEnv("TRM_MARKET_FILE")
	if err != nil {
		return err
	}

	RoutesFile, err = getEnv("TRM_ROUTES_FILE")
	if err != nil {
		return err
	}

	TrialCount, err = getEnvAsUint64("TRM_TRIALS")
	if err != nil {
		return err
	}

	BaseSeed, err = getEnvAsUint64("TRM_SEED")
	if err != nil {
		return err
	}

	CycleIntervalSeconds, err = getEnvAsUint64("TRM_CYCLE_INTERVAL_SECONDS")
	if err != nil {
		return err
	}

	log.Debug().
		Str("PortfolioFile", PortfolioFile).
		Uint64("TrialCount", TrialCount).
		Uint64("BaseSeed", BaseSeed).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

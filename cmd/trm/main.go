package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/arcadia-fi/trm/internal/config"
	"github.com/arcadia-fi/trm/internal/engine"
	"github.com/arcadia-fi/trm/internal/logger"
	"github.com/arcadia-fi/trm/internal/state"
	"github.com/arcadia-fi/trm/internal/treasury"
	"github.com/arcadia-fi/trm/internal/web"
)

// main is the entry point for the TRM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("TRM Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Risk Parameters
	riskParams, err := state.LoadActiveRiskParameters(engine.DEFAULT_RISK_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active risk parameters, using defaults and saving.")
		defaultParams := config.DefaultRiskParameters
		if _, err := state.SaveRiskParameters(defaultParams, engine.DEFAULT_RISK_CONFIG_NAME, engine.DEFAULT_RISK_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default risk parameters.")
		}
		riskParams = &defaultParams
	}

	// The trial count from the environment overrides the stored policy value
	// so operators can tune precision without a parameters migration.
	if config.TrialCount > 0 {
		riskParams.TrialCount = int(config.TrialCount)
	}
	log.Info().Msg("Risk parameters loaded successfully.")

	// --- Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engine.DEFAULT_RISK_CONFIG_NAME)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting TRM web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 2. Treasury Manager Initialization ---
	var tm treasury.Manager
	trmMode := os.Getenv("TRM_MODE")

	if trmMode == "demo" {
		log.Warn().Msg("Initializing TRM in DEMO mode with a synthetic treasury.")
		tm = treasury.NewDemoManager()
	} else {
		fileManager, err := treasury.NewFileManager(config.PortfolioFile, config.MarketFile, config.RoutesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize file-backed treasury manager")
		}
		tm = fileManager
	}
	defer tm.Close()

	// --- 3. Create Engine Instance with Dependency Injection ---
	log.Info().Msg("Creating TRM engine instance...")

	engineConfig := engine.Config{
		TreasuryManager: tm,
		RiskParams:      riskParams,
		ConfigName:      engine.DEFAULT_RISK_CONFIG_NAME,
		ConfigVersion:   engine.DEFAULT_RISK_CONFIG_VERSION,
		BaseSeed:        int64(config.BaseSeed),
		Persist:         true,
	}

	trmEngine, err := engine.New(engineConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create TRM engine instance")
	}

	log.Info().Msg("TRM engine instance created successfully")

	// --- 4. Start Main Loop ---
	interval := time.Duration(config.CycleIntervalSeconds) * time.Second
	log.Info().Str("interval", interval.String()).Msg("Starting TRM main loop")

	ctx := context.Background()
	trmEngine.RunLoop(ctx, interval)
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}

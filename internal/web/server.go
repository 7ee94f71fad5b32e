package web

import (
	"embed"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/arcadia-fi/trm/internal/logger"
	"github.com/arcadia-fi/trm/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var dashboardHTML []byte

// WebServer handles HTTP requests for treasury risk data visualization
type WebServer struct {
	router     *mux.Router
	port       string
	configName string
}

// NewWebServer creates a new web server instance
func NewWebServer(port, configName string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:     mux.NewRouter(),
		port:       port,
		configName: configName,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Static files
	staticHandler := http.FileServer(http.FS(staticFiles))
	ws.router.PathPrefix("/static/").Handler(http.StripPrefix("/", staticHandler))

	// Dashboard routes
	ws.router.HandleFunc("/", ws.handleDashboard).Methods("GET")
	ws.router.HandleFunc("/dashboard", ws.handleDashboard).Methods("GET")

	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/evaluations", ws.handleGetEvaluations).Methods("GET")
	api.HandleFunc("/evaluations/latest", ws.handleGetLatestEvaluation).Methods("GET")
	api.HandleFunc("/evaluations/{id}", ws.handleGetEvaluation).Methods("GET")
	api.HandleFunc("/risk-parameters", ws.handleGetRiskParameters).Methods("GET")
	api.HandleFunc("/risk/summary", ws.handleGetRiskSummary).Methods("GET")
	api.HandleFunc("/risk/metrics", ws.handleGetRiskMetrics).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns comprehensive server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var cycleInfo map[string]interface{}
	var hasErrors bool
	var lastCycleTime *time.Time

	latest, cycleErr := state.LoadLatestEvaluationSnapshot()
	if cycleErr == nil && latest != nil {
		cycleInfo = map[string]interface{}{
			"current_cycle":     latest.CycleNumber,
			"last_cycle_time":   latest.Timestamp,
			"policy_breached":   latest.PolicyBreached,
			"recommended_route": latest.RecommendedRouteID,
		}
		lastCycleTime = &latest.Timestamp
	} else {
		cycleInfo = map[string]interface{}{
			"current_cycle":   0,
			"last_cycle_time": nil,
			"policy_breached": false,
		}
		hasErrors = true // No cycle data available indicates an issue
	}

	dbHealthy := true
	if dbErr := state.TestDBConnection(); dbErr != nil {
		dbHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	var uptimeSeconds int64
	if lastCycleTime != nil {
		uptimeSeconds = int64(time.Since(*lastCycleTime).Seconds())
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
			"uptime_seconds":     uptimeSeconds,
		},
		"component": map[string]interface{}{
			"name":    "trm-treasury-risk-manager",
			"version": "1.0.0",
		},
		"trm_status": map[string]interface{}{
			"database_healthy":  dbHealthy,
			"has_recent_errors": hasErrors,
			"cycle_info":        cycleInfo,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleDashboard serves the main dashboard HTML
func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}

// handleGetEvaluations returns paginated evaluation snapshots
func (ws *WebServer) handleGetEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	snapshots, err := state.LoadRecentEvaluationSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent evaluations")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve evaluations")
		return
	}

	response := map[string]interface{}{
		"evaluations": snapshots,
		"count":       len(snapshots),
		"limit":       limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetEvaluation returns a specific evaluation snapshot by ID
func (ws *WebServer) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	snapshot, err := state.LoadEvaluationSnapshot(id)
	if err != nil {
		webLogger.Error().Err(err).Str("snapshotId", id).Msg("Failed to get evaluation")
		ws.writeErrorResponse(w, http.StatusNotFound, "Evaluation not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetLatestEvaluation returns the most recent evaluation snapshot
func (ws *WebServer) handleGetLatestEvaluation(w http.ResponseWriter, r *http.Request) {
	snapshot, err := state.LoadLatestEvaluationSnapshot()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get latest evaluation")
		ws.writeErrorResponse(w, http.StatusNotFound, "No evaluations found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

// handleGetRiskParameters returns the active risk parameters
func (ws *WebServer) handleGetRiskParameters(w http.ResponseWriter, r *http.Request) {
	params, err := state.LoadActiveRiskParameters(ws.configName)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get risk parameters")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve risk parameters")
		return
	}

	response := map[string]interface{}{
		"parameters": params,
		"timestamp":  time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetRiskSummary returns headline treasury risk statistics
func (ws *WebServer) handleGetRiskSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := state.GetRiskSummary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get risk summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve risk summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetRiskMetrics returns aggregated risk metrics
func (ws *WebServer) handleGetRiskMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := state.GetRiskMetrics()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get risk metrics")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve risk metrics")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, metrics)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

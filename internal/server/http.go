package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicetools/dictation-service/internal/config"
	"github.com/voicetools/dictation-service/internal/history"
	"github.com/voicetools/dictation-service/internal/metrics"
	"github.com/voicetools/dictation-service/internal/pipeline"
	"github.com/voicetools/dictation-service/internal/recorder"
)

// HTTPServer provides HTTP API endpoints for recording control and
// monitoring
type HTTPServer struct {
	server   *http.Server
	logger   *slog.Logger
	config   *config.Config
	recorder *recorder.Service
	store    *history.Store
	metrics  *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, rec *recorder.Service, store *history.Store, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		recorder:  rec,
		store:     store,
		metrics:   m,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Recording control endpoints
	mux.HandleFunc("/record/start", h.withMetrics("/record/start", h.handleRecordStart))
	mux.HandleFunc("/record/stop", h.withMetrics("/record/stop", h.handleRecordStop))

	// Session status endpoint
	mux.HandleFunc("/status", h.withMetrics("/status", h.handleStatus))

	// Transcript history endpoint
	mux.HandleFunc("/history", h.withMetrics("/history", h.handleHistory))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Wrap the response writer to capture the status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "dictation-service",
			"version": "1.0.0",
		},
		"recording": h.recorder.Active(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleRecordStart implements the POST /record/start endpoint
func (h *HTTPServer) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, err := h.recorder.Start()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session_id": sessionID,
		"started_at": time.Now().UTC(),
	})
}

// handleRecordStop implements the POST /record/stop endpoint. The
// response carries the final transcript, so the request blocks until
// the pipeline drains or the finalize timeout fires.
func (h *HTTPServer) handleRecordStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	outcome, err := h.recorder.Stop(r.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrNotRecording) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcome)
}

// handleStatus implements the /status endpoint
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"recording": h.recorder.Active(),
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	}
	if stats, ok := h.recorder.SessionStats(); ok {
		status["session"] = stats
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleHistory implements the /history endpoint
func (h *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":       len(entries),
		"timestamp":   time.Now().UTC(),
		"transcripts": entries,
	})
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"audio": map[string]interface{}{
			"sample_rate": h.config.Audio.SampleRate,
			"channels":    h.config.Audio.Channels,
			"block_size":  h.config.Audio.BlockSize,
			"source":      h.config.Audio.Source,
		},
		"pipeline": map[string]interface{}{
			"window_duration":    h.config.Pipeline.WindowDuration,
			"overlap_duration":   h.config.Pipeline.OverlapDuration,
			"min_flush_duration": h.config.Pipeline.MinFlushDuration,
			"queue_capacity":     h.config.Pipeline.QueueCapacity,
			"max_overlap_words":  h.config.Pipeline.MaxOverlapWords,
			"finalize_timeout":   h.config.Pipeline.FinalizeTimeout,
		},
		"engine": map[string]interface{}{
			"backend":         h.config.Engine.Backend,
			"sample_rate":     h.config.Engine.SampleRate,
			"language":        h.config.Engine.Language,
			"chunk_beam_size": h.config.Engine.ChunkBeamSize,
			"final_beam_size": h.config.Engine.FinalBeamSize,
			"endpoint":        h.config.Engine.Remote.Endpoint,
			// Note: API key is intentionally omitted for security
		},
		"recordings": map[string]interface{}{
			"directory":    h.config.Recordings.Directory,
			"delete_old":   h.config.Recordings.DeleteOld,
			"max_age_days": h.config.Recordings.MaxAgeDays,
		},
		"history": map[string]interface{}{
			"enabled":        h.config.History.Enabled,
			"retention_days": h.config.History.RetentionDays,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Dictation Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":              "API documentation",
			"GET /health":        "Service health check",
			"POST /record/start": "Start a new recording",
			"POST /record/stop":  "Stop the recording and return the transcript",
			"GET /status":        "Active session status",
			"GET /history":       "Recent transcripts (limit query parameter)",
			"GET /config":        "Get service configuration",
			"GET /metrics":       "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}

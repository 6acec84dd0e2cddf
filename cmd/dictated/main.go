package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicetools/dictation-service/internal/config"
	"github.com/voicetools/dictation-service/internal/engine"
	"github.com/voicetools/dictation-service/internal/history"
	"github.com/voicetools/dictation-service/internal/metrics"
	"github.com/voicetools/dictation-service/internal/pipeline"
	"github.com/voicetools/dictation-service/internal/recorder"
	"github.com/voicetools/dictation-service/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "dictation-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("channels", cfg.Audio.Channels),
		slog.Float64("window_duration", cfg.Pipeline.WindowDuration),
		slog.Float64("overlap_duration", cfg.Pipeline.OverlapDuration),
		slog.Int("queue_capacity", cfg.Pipeline.QueueCapacity),
		slog.String("engine_backend", cfg.Engine.Backend),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Create the transcription engine for the configured backend
	eng, err := newEngine(cfg)
	if err != nil {
		logger.Error("Failed to create transcription engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription engine initialized",
		slog.String("backend", cfg.Engine.Backend),
	)

	// Open the transcript history store (if enabled)
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(ctx, history.Config{
			Path:          cfg.History.Path,
			RetentionDays: cfg.History.RetentionDays,
		}, logger)
		if err != nil {
			logger.Error("Failed to open history store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer store.Close()
		logger.Info("History store opened", slog.String("path", cfg.History.Path))
	}

	// Initialize recorder service
	rec := recorder.NewService(recorderConfig(cfg), eng, store, appMetrics, logger)
	logger.Info("Recorder service initialized",
		slog.String("recordings_dir", cfg.Recordings.Directory),
	)

	// Delete stale recordings from previous runs
	if err := rec.CleanupOldRecordings(); err != nil {
		logger.Warn("Recording cleanup failed", slog.String("error", err.Error()))
	}

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, rec, store, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)

		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Feed stdin audio into the recorder (if configured)
	if cfg.Audio.Source == "stdin" {
		src := recorder.NewSource(os.Stdin, cfg.Audio.BlockSize, cfg.Audio.Channels, logger)
		go func() {
			if err := src.Run(ctx, rec.Feed); err != nil && ctx.Err() == nil {
				logger.Error("Audio source failed", slog.String("error", err.Error()))
			}
		}()
		logger.Info("Reading audio from stdin",
			slog.Int("block_size", cfg.Audio.BlockSize),
		)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Finish any in-flight recording so its transcript is not lost
	if rec.Active() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()

		outcome, err := rec.Stop(stopCtx)
		if err != nil {
			logger.Error("Error finishing recording", slog.String("error", err.Error()))
		} else {
			logger.Info("In-flight recording finished",
				slog.String("session_id", outcome.SessionID),
				slog.String("source", string(outcome.Source)),
			)
		}
	}

	logger.Info("Service stopped")
}

// newEngine creates the transcription engine for the configured backend
func newEngine(cfg *config.Config) (engine.Engine, error) {
	switch cfg.Engine.Backend {
	case "remote":
		return engine.NewRemoteEngine(engine.RemoteConfig{
			Endpoint:      cfg.Engine.Remote.Endpoint,
			APIKey:        cfg.Engine.Remote.APIKey,
			Model:         cfg.Engine.Remote.Model,
			Timeout:       cfg.Engine.Remote.GetTimeoutDuration(),
			MaxRetries:    cfg.Engine.Remote.MaxRetries,
			MaxConcurrent: cfg.Engine.Remote.MaxConcurrent,
		})
	case "socket":
		return engine.NewSocketEngine(engine.SocketConfig{
			URL:     cfg.Engine.Socket.URL,
			Timeout: cfg.Engine.Socket.GetTimeoutDuration(),
		})
	case "exec":
		return engine.NewExecEngine(engine.ExecConfig{
			Command:   cfg.Engine.Exec.Command,
			ModelPath: cfg.Engine.Exec.ModelPath,
		})
	case "mock":
		return engine.NewMockEngine(), nil
	default:
		return nil, fmt.Errorf("unknown engine backend: %s", cfg.Engine.Backend)
	}
}

// recorderConfig assembles the recorder configuration from the service
// configuration
func recorderConfig(cfg *config.Config) recorder.Config {
	rate := cfg.Audio.SampleRate

	return recorder.Config{
		SampleRate: rate,
		Channels:   cfg.Audio.Channels,
		Session: pipeline.SessionConfig{
			SampleRate:       rate,
			Channels:         cfg.Audio.Channels,
			WindowFrames:     int(cfg.Pipeline.WindowDuration * float64(rate)),
			OverlapFrames:    int(cfg.Pipeline.OverlapDuration * float64(rate)),
			MinFlushFrames:   int(cfg.Pipeline.MinFlushDuration * float64(rate)),
			QueueCapacity:    cfg.Pipeline.QueueCapacity,
			MaxOverlapWords:  cfg.Pipeline.MaxOverlapWords,
			EngineSampleRate: cfg.Engine.SampleRate,
			ChunkParams: engine.Params{
				BeamSize:    cfg.Engine.ChunkBeamSize,
				Temperature: cfg.Engine.Temperature,
				Language:    cfg.Engine.Language,
			},
			FinalizeTimeout: cfg.Pipeline.GetFinalizeTimeout(),
		},
		FinalParams: engine.Params{
			BeamSize:    cfg.Engine.FinalBeamSize,
			Temperature: cfg.Engine.Temperature,
			Language:    cfg.Engine.Language,
		},
		RecordingsDir: cfg.Recordings.Directory,
		DeleteOld:     cfg.Recordings.DeleteOld,
		MaxAge:        cfg.Recordings.GetMaxAge(),
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

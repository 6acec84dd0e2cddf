package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Engine     EngineConfig     `yaml:"engine"`
	Recordings RecordingsConfig `yaml:"recordings"`
	History    HistoryConfig    `yaml:"history"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AudioConfig contains capture-side audio parameters
type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	BlockSize  int    `yaml:"block_size"` // frames per capture block
	Source     string `yaml:"source"`     // "stdin" or "none"
}

// PipelineConfig contains the streaming chunk pipeline parameters
type PipelineConfig struct {
	WindowDuration   float64 `yaml:"window_duration"`    // seconds
	OverlapDuration  float64 `yaml:"overlap_duration"`   // seconds
	MinFlushDuration float64 `yaml:"min_flush_duration"` // seconds
	QueueCapacity    int     `yaml:"queue_capacity"`     // blocks
	MaxOverlapWords  int     `yaml:"max_overlap_words"`
	FinalizeTimeout  int     `yaml:"finalize_timeout"` // seconds
}

// EngineConfig contains transcription engine configuration
type EngineConfig struct {
	Backend       string  `yaml:"backend"` // "remote", "socket", "exec" or "mock"
	SampleRate    int     `yaml:"sample_rate"`
	Language      string  `yaml:"language"`
	ChunkBeamSize int     `yaml:"chunk_beam_size"`
	FinalBeamSize int     `yaml:"final_beam_size"`
	Temperature   float64 `yaml:"temperature"`

	Remote RemoteEngineConfig `yaml:"remote"`
	Socket SocketEngineConfig `yaml:"socket"`
	Exec   ExecEngineConfig   `yaml:"exec"`
}

// RemoteEngineConfig contains HTTP transcription API configuration
type RemoteEngineConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// SocketEngineConfig contains websocket transcription server configuration
type SocketEngineConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// ExecEngineConfig contains local command-line transcriber configuration
type ExecEngineConfig struct {
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
}

// RecordingsConfig contains recording persistence configuration
type RecordingsConfig struct {
	Directory  string `yaml:"directory"`
	DeleteOld  bool   `yaml:"delete_old"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// HistoryConfig contains transcript history store configuration
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if err := c.Recordings.Validate(); err != nil {
		return fmt.Errorf("recordings config: %w", err)
	}

	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", a.SampleRate)
	}

	if a.Channels < 1 || a.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	if a.BlockSize < 64 {
		return fmt.Errorf("block_size must be at least 64 frames, got %d", a.BlockSize)
	}

	validSources := map[string]bool{"stdin": true, "none": true, "": true}
	if !validSources[a.Source] {
		return fmt.Errorf("source must be 'stdin' or 'none', got '%s'", a.Source)
	}

	return nil
}

// Validate validates pipeline configuration
func (p *PipelineConfig) Validate() error {
	if p.WindowDuration <= 0 {
		return fmt.Errorf("window_duration must be positive, got %f", p.WindowDuration)
	}

	if p.OverlapDuration < 0 {
		return fmt.Errorf("overlap_duration cannot be negative, got %f", p.OverlapDuration)
	}

	if p.OverlapDuration >= p.WindowDuration {
		return fmt.Errorf("overlap_duration (%f) must be less than window_duration (%f)",
			p.OverlapDuration, p.WindowDuration)
	}

	if p.MinFlushDuration < 0 {
		return fmt.Errorf("min_flush_duration cannot be negative, got %f", p.MinFlushDuration)
	}

	if p.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", p.QueueCapacity)
	}

	if p.MaxOverlapWords < 2 {
		return fmt.Errorf("max_overlap_words must be at least 2, got %d", p.MaxOverlapWords)
	}

	if p.FinalizeTimeout < 1 {
		return fmt.Errorf("finalize_timeout must be at least 1 second, got %d", p.FinalizeTimeout)
	}

	return nil
}

// Validate validates engine configuration
func (e *EngineConfig) Validate() error {
	switch e.Backend {
	case "remote":
		if e.Remote.Endpoint == "" {
			return fmt.Errorf("remote.endpoint cannot be empty")
		}
		if e.Remote.Timeout < 1 {
			return fmt.Errorf("remote.timeout must be at least 1 second, got %d", e.Remote.Timeout)
		}
		if e.Remote.MaxRetries < 0 {
			return fmt.Errorf("remote.max_retries cannot be negative, got %d", e.Remote.MaxRetries)
		}
		if e.Remote.MaxConcurrent < 1 {
			return fmt.Errorf("remote.max_concurrent must be at least 1, got %d", e.Remote.MaxConcurrent)
		}
	case "socket":
		if e.Socket.URL == "" {
			return fmt.Errorf("socket.url cannot be empty")
		}
	case "exec":
		if e.Exec.Command == "" {
			return fmt.Errorf("exec.command cannot be empty")
		}
	case "mock":
		// No backend-specific settings.
	default:
		return fmt.Errorf("backend must be one of [remote, socket, exec, mock], got '%s'", e.Backend)
	}

	if e.SampleRate < 8000 || e.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", e.SampleRate)
	}

	if e.ChunkBeamSize < 1 {
		return fmt.Errorf("chunk_beam_size must be at least 1, got %d", e.ChunkBeamSize)
	}

	if e.FinalBeamSize < e.ChunkBeamSize {
		return fmt.Errorf("final_beam_size (%d) must not be smaller than chunk_beam_size (%d)",
			e.FinalBeamSize, e.ChunkBeamSize)
	}

	if e.Temperature < 0 || e.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", e.Temperature)
	}

	return nil
}

// Validate validates recordings configuration
func (r *RecordingsConfig) Validate() error {
	if r.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}

	if r.DeleteOld && r.MaxAgeDays < 1 {
		return fmt.Errorf("max_age_days must be at least 1 when delete_old is enabled, got %d", r.MaxAgeDays)
	}

	return nil
}

// Validate validates history configuration
func (h *HistoryConfig) Validate() error {
	if h.Enabled {
		if h.Path == "" {
			return fmt.Errorf("path cannot be empty when history is enabled")
		}

		if h.RetentionDays < 1 {
			return fmt.Errorf("retention_days must be at least 1, got %d", h.RetentionDays)
		}
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetWindowDuration returns the window duration as a time.Duration
func (p *PipelineConfig) GetWindowDuration() time.Duration {
	return time.Duration(p.WindowDuration * float64(time.Second))
}

// GetOverlapDuration returns the overlap duration as a time.Duration
func (p *PipelineConfig) GetOverlapDuration() time.Duration {
	return time.Duration(p.OverlapDuration * float64(time.Second))
}

// GetMinFlushDuration returns the minimum flush duration as a time.Duration
func (p *PipelineConfig) GetMinFlushDuration() time.Duration {
	return time.Duration(p.MinFlushDuration * float64(time.Second))
}

// GetFinalizeTimeout returns the finalize timeout as a time.Duration
func (p *PipelineConfig) GetFinalizeTimeout() time.Duration {
	return time.Duration(p.FinalizeTimeout) * time.Second
}

// GetTimeoutDuration returns the remote engine timeout as a time.Duration
func (r *RemoteEngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// GetTimeoutDuration returns the socket engine timeout as a time.Duration
func (s *SocketEngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetMaxAge returns the maximum recording age as a time.Duration
func (r *RecordingsConfig) GetMaxAge() time.Duration {
	return time.Duration(r.MaxAgeDays) * 24 * time.Hour
}

// GetRetention returns the history retention period as a time.Duration
func (h *HistoryConfig) GetRetention() time.Duration {
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

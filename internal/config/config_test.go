package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   1,
			BlockSize:  4410,
			Source:     "stdin",
		},
		Pipeline: PipelineConfig{
			WindowDuration:   12.0,
			OverlapDuration:  1.0,
			MinFlushDuration: 0.5,
			QueueCapacity:    64,
			MaxOverlapWords:  30,
			FinalizeTimeout:  10,
		},
		Engine: EngineConfig{
			Backend:       "remote",
			SampleRate:    16000,
			ChunkBeamSize: 1,
			FinalBeamSize: 5,
			Temperature:   0,
			Remote: RemoteEngineConfig{
				Endpoint:      "https://api.example.com/v1/audio/transcriptions",
				APIKey:        "test-key",
				Model:         "whisper-v3-turbo",
				Timeout:       30,
				MaxRetries:    3,
				MaxConcurrent: 4,
			},
		},
		Recordings: RecordingsConfig{
			Directory:  "recordings",
			DeleteOld:  true,
			MaxAgeDays: 7,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "data/history.db",
			RetentionDays: 30,
		},
		HTTP: HTTPConfig{
			Port:    8090,
			Address: "127.0.0.1",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid sample rate",
			mutate:      func(c *Config) { c.Audio.SampleRate = 4000 },
			expectError: true,
			errorMsg:    "sample_rate",
		},
		{
			name:        "too many channels",
			mutate:      func(c *Config) { c.Audio.Channels = 6 },
			expectError: true,
			errorMsg:    "channels",
		},
		{
			name:        "zero window duration",
			mutate:      func(c *Config) { c.Pipeline.WindowDuration = 0 },
			expectError: true,
			errorMsg:    "window_duration",
		},
		{
			name: "overlap not smaller than window",
			mutate: func(c *Config) {
				c.Pipeline.WindowDuration = 2.0
				c.Pipeline.OverlapDuration = 2.0
			},
			expectError: true,
			errorMsg:    "overlap_duration",
		},
		{
			name:        "zero queue capacity",
			mutate:      func(c *Config) { c.Pipeline.QueueCapacity = 0 },
			expectError: true,
			errorMsg:    "queue_capacity",
		},
		{
			name:        "overlap words below minimum",
			mutate:      func(c *Config) { c.Pipeline.MaxOverlapWords = 1 },
			expectError: true,
			errorMsg:    "max_overlap_words",
		},
		{
			name:        "unknown engine backend",
			mutate:      func(c *Config) { c.Engine.Backend = "telepathy" },
			expectError: true,
			errorMsg:    "backend",
		},
		{
			name: "remote backend without endpoint",
			mutate: func(c *Config) {
				c.Engine.Remote.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint",
		},
		{
			name: "final beam smaller than chunk beam",
			mutate: func(c *Config) {
				c.Engine.ChunkBeamSize = 5
				c.Engine.FinalBeamSize = 1
			},
			expectError: true,
			errorMsg:    "final_beam_size",
		},
		{
			name:        "empty recordings directory",
			mutate:      func(c *Config) { c.Recordings.Directory = "" },
			expectError: true,
			errorMsg:    "directory",
		},
		{
			name: "history enabled without path",
			mutate: func(c *Config) {
				c.History.Path = ""
			},
			expectError: true,
			errorMsg:    "path",
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "port",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: true,
			errorMsg:    "level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	content := `
audio:
  sample_rate: 44100
  channels: 1
  block_size: 4410
  source: stdin
pipeline:
  window_duration: 12.0
  overlap_duration: 1.0
  min_flush_duration: 0.5
  queue_capacity: 64
  max_overlap_words: 30
  finalize_timeout: 10
engine:
  backend: mock
  sample_rate: 16000
  chunk_beam_size: 1
  final_beam_size: 5
  temperature: 0.0
recordings:
  directory: recordings
  delete_old: true
  max_age_days: 7
history:
  enabled: false
http:
  enabled: true
  address: 127.0.0.1
  port: 8090
logging:
  level: debug
  format: text
  output: stderr
`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Pipeline.GetWindowDuration() != 12*time.Second {
		t.Errorf("expected window duration 12s, got %v", cfg.Pipeline.GetWindowDuration())
	}
	if cfg.Pipeline.GetOverlapDuration() != time.Second {
		t.Errorf("expected overlap duration 1s, got %v", cfg.Pipeline.GetOverlapDuration())
	}
	if cfg.Engine.Backend != "mock" {
		t.Errorf("expected mock backend, got %q", cfg.Engine.Backend)
	}
	if cfg.History.Enabled {
		t.Error("expected history to be disabled")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("audio: [unclosed"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestDurationHelpers(t *testing.T) {
	p := PipelineConfig{
		WindowDuration:   1.5,
		OverlapDuration:  0.25,
		MinFlushDuration: 0.5,
		FinalizeTimeout:  8,
	}

	if got := p.GetWindowDuration(); got != 1500*time.Millisecond {
		t.Errorf("GetWindowDuration = %v, want 1.5s", got)
	}
	if got := p.GetOverlapDuration(); got != 250*time.Millisecond {
		t.Errorf("GetOverlapDuration = %v, want 250ms", got)
	}
	if got := p.GetMinFlushDuration(); got != 500*time.Millisecond {
		t.Errorf("GetMinFlushDuration = %v, want 500ms", got)
	}
	if got := p.GetFinalizeTimeout(); got != 8*time.Second {
		t.Errorf("GetFinalizeTimeout = %v, want 8s", got)
	}

	r := RecordingsConfig{MaxAgeDays: 7}
	if got := r.GetMaxAge(); got != 7*24*time.Hour {
		t.Errorf("GetMaxAge = %v, want 168h", got)
	}
}

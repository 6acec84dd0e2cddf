package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/voicetools/dictation-service/internal/audio"
	"github.com/voicetools/dictation-service/internal/engine"
	"github.com/voicetools/dictation-service/internal/history"
	"github.com/voicetools/dictation-service/internal/metrics"
	"github.com/voicetools/dictation-service/internal/pipeline"
)

// Config contains recorder configuration assembled from the service
// configuration at startup
type Config struct {
	SampleRate  int
	Channels    int
	Session     pipeline.SessionConfig
	FinalParams engine.Params

	RecordingsDir string
	DeleteOld     bool
	MaxAge        time.Duration
}

// Outcome is the result of one finished recording
type Outcome struct {
	SessionID     string                    `json:"session_id"`
	Text          string                    `json:"text"`
	Source        pipeline.Source           `json:"source"`
	Reasons       []pipeline.FallbackReason `json:"reasons,omitempty"`
	RecordingPath string                    `json:"recording_path,omitempty"`
	Duration      time.Duration             `json:"duration"`
}

// Service manages the active recording. One recording at a time; the
// full PCM is accumulated alongside the streaming pipeline so the
// fallback pass can re-transcribe the entire take.
type Service struct {
	config  Config
	engine  engine.Engine
	store   *history.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	session  *pipeline.Session
	recorded []float32
	started  time.Time
}

// NewService creates a recorder service. The history store and
// metrics may be nil.
func NewService(config Config, eng engine.Engine, store *history.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:  config,
		engine:  eng,
		store:   store,
		metrics: m,
		logger:  logger.With("component", "recorder"),
	}
}

// Start begins a new recording and returns its session ID
func (s *Service) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return "", fmt.Errorf("recording already in progress")
	}

	sessionConfig := s.config.Session
	if s.metrics != nil {
		m := s.metrics
		sessionConfig.ObserveChunk = func(windowSeconds, requestSeconds float64, ok bool) {
			m.RecordWindowAssembled(windowSeconds)
			if ok {
				m.RecordChunkTranscription(requestSeconds)
			} else {
				m.RecordChunkError()
			}
		}
	}

	session := pipeline.NewSession(sessionConfig, s.engine, s.logger)
	if err := session.Start(); err != nil {
		return "", fmt.Errorf("failed to start pipeline session: %w", err)
	}

	s.session = session
	s.recorded = s.recorded[:0]
	s.started = time.Now()

	if s.metrics != nil {
		s.metrics.RecordSessionStarted()
	}

	s.logger.Info("Recording started", "session_id", session.ID())
	return session.ID(), nil
}

// Feed delivers one audio block from the capture source. It never
// blocks; the block is both kept for the fallback pass and offered to
// the streaming pipeline.
func (s *Service) Feed(block []float32) error {
	s.mu.Lock()
	session := s.session
	if session != nil {
		s.recorded = append(s.recorded, block...)
	}
	s.mu.Unlock()

	if session == nil {
		return pipeline.ErrNotRecording
	}

	enqueued, err := session.Feed(block)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordBlockReceived()
		if !enqueued {
			s.metrics.RecordBlockDropped()
		}
		s.metrics.SetQueueDepth(session.Stats().QueueDepth)
	}
	return nil
}

// Stop finishes the active recording: the pipeline is drained and
// finalized, the recording is saved to disk, and when the incremental
// transcript cannot be trusted a full pass over the saved audio
// replaces it. A failed fallback pass is the only terminal error.
func (s *Service) Stop(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	session := s.session
	recorded := s.recorded
	started := s.started
	s.session = nil
	s.recorded = nil
	s.mu.Unlock()

	if session == nil {
		return Outcome{}, pipeline.ErrNotRecording
	}

	duration := time.Since(started)

	result, err := session.Finalize(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to finalize session: %w", err)
	}

	stats := session.Stats()
	if s.metrics != nil {
		s.metrics.RecordSessionFinished(duration.Seconds())
		s.metrics.RecordMerges(stats.MergesMatched, stats.MergesUnmatched)

		reasons := make([]string, len(result.Reasons))
		for i, r := range result.Reasons {
			reasons[i] = string(r)
		}
		s.metrics.RecordFinalizeOutcome(string(result.Source), reasons)
	}

	recordingPath, saveErr := s.saveRecording(recorded)
	if saveErr != nil {
		s.logger.Error("Failed to save recording", "error", saveErr)
	}

	outcome := Outcome{
		SessionID:     session.ID(),
		Text:          result.Text,
		Source:        result.Source,
		Reasons:       result.Reasons,
		RecordingPath: recordingPath,
		Duration:      duration,
	}

	if result.Source == pipeline.SourceFallback {
		text, err := s.fullTranscription(ctx, recorded)
		if err != nil {
			return outcome, fmt.Errorf("fallback transcription failed: %w", err)
		}
		outcome.Text = text
	}

	if s.store != nil {
		entry := history.Entry{
			SessionID:       outcome.SessionID,
			Source:          string(outcome.Source),
			Text:            outcome.Text,
			DurationSeconds: duration.Seconds(),
			RecordingPath:   recordingPath,
		}
		if err := s.store.Insert(ctx, entry); err != nil {
			s.logger.Error("Failed to store transcript", "error", err)
		}
	}

	s.logger.Info("Recording finished",
		"session_id", outcome.SessionID,
		"source", outcome.Source,
		"duration", duration,
		"chars", len(outcome.Text))

	return outcome, nil
}

// Active reports whether a recording is in progress
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// SessionStats returns the active session's counters, if any
func (s *Service) SessionStats() (pipeline.SessionStats, bool) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		return pipeline.SessionStats{}, false
	}
	return session.Stats(), true
}

// fullTranscription runs one pass over the complete recording with
// the accuracy-favoring decoding parameters
func (s *Service) fullTranscription(ctx context.Context, recorded []float32) (string, error) {
	samples := recorded
	if s.config.Channels > 1 {
		samples = audio.DownmixMono(samples, s.config.Channels)
	}
	engineRate := s.config.Session.EngineSampleRate
	if engineRate > 0 && engineRate != s.config.SampleRate {
		samples = audio.Resample(samples, s.config.SampleRate, engineRate)
	}
	if engineRate <= 0 {
		engineRate = s.config.SampleRate
	}

	start := time.Now()
	text, err := s.engine.Transcribe(ctx, samples, engineRate, s.config.FinalParams)
	if err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.RecordFallbackTranscription(time.Since(start).Seconds())
	}
	return text, nil
}

// saveRecording writes the recorded audio to a timestamped WAV file
func (s *Service) saveRecording(recorded []float32) (string, error) {
	if s.config.RecordingsDir == "" || len(recorded) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(s.config.RecordingsDir, 0o755); err != nil {
		return "", fmt.Errorf("create recordings dir: %w", err)
	}

	samples := recorded
	if s.config.Channels > 1 {
		samples = audio.DownmixMono(samples, s.config.Channels)
	}

	data, err := audio.EncodeWAV(samples, s.config.SampleRate)
	if err != nil {
		return "", fmt.Errorf("encode recording: %w", err)
	}

	name := fmt.Sprintf("recording_%s.wav", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.config.RecordingsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write recording: %w", err)
	}

	return path, nil
}

// CleanupOldRecordings deletes saved recordings older than the
// configured maximum age. Called at startup.
func (s *Service) CleanupOldRecordings() error {
	if !s.config.DeleteOld || s.config.RecordingsDir == "" || s.config.MaxAge <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.config.RecordingsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read recordings dir: %w", err)
	}

	cutoff := time.Now().Add(-s.config.MaxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "recording_") || !strings.HasSuffix(name, ".wav") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.config.RecordingsDir, name)); err != nil {
			s.logger.Warn("Failed to delete old recording", "file", name, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Deleted old recordings", "count", removed)
	}
	return nil
}

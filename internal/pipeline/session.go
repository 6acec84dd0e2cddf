package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voicetools/dictation-service/internal/audio"
	"github.com/voicetools/dictation-service/internal/engine"
)

// State represents the session lifecycle
type State int32

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateDraining
	StateFinalized
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateDraining:
		return "draining"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Source identifies where the final transcript must come from
type Source string

const (
	// SourceIncremental means the merged chunk transcript is trusted
	SourceIncremental Source = "incremental"

	// SourceFallback means a full-recording pass must replace it
	SourceFallback Source = "fallback"
)

// SessionConfig contains per-session pipeline configuration
type SessionConfig struct {
	SampleRate       int
	Channels         int
	WindowFrames     int
	OverlapFrames    int
	MinFlushFrames   int
	QueueCapacity    int
	MaxOverlapWords  int
	EngineSampleRate int
	ChunkParams      engine.Params
	FinalizeTimeout  time.Duration
	PopTimeout       time.Duration

	// ObserveChunk, when set, is notified after every chunk
	// transcription attempt with the window length in seconds of audio,
	// the engine request duration in seconds, and whether the request
	// succeeded. Used to feed the metrics layer without this package
	// depending on it.
	ObserveChunk func(windowSeconds, requestSeconds float64, ok bool)
}

// Result is the outcome of finalizing a session. When Source is
// SourceFallback the Text is the untrusted incremental transcript and
// Reasons lists why it cannot be delivered directly.
type Result struct {
	Text    string
	Source  Source
	Reasons []FallbackReason
}

// SessionStats is a point-in-time snapshot of session counters
type SessionStats struct {
	State           string `json:"state"`
	Windows         uint64 `json:"windows"`
	BlocksDropped   uint64 `json:"blocks_dropped"`
	EngineErrors    uint64 `json:"engine_errors"`
	MergesMatched   uint64 `json:"merges_matched"`
	MergesUnmatched uint64 `json:"merges_unmatched"`
	QueueDepth      int    `json:"queue_depth"`
}

// Session runs one recording through the chunked pipeline. The capture
// producer calls Feed while the worker goroutine pops blocks,
// assembles windows, transcribes them and merges the results into the
// shared transcript. One session per recording.
type Session struct {
	id     string
	config SessionConfig
	engine engine.Engine
	logger *slog.Logger

	queue     *BlockQueue
	assembler *Assembler

	state    atomic.Int32
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// feedMu pairs Feed with the drain barrier: a push that raced the
	// stop signal is still consumed before the queue is drained
	feedMu sync.RWMutex

	framesFed atomic.Uint64

	// Counters observed by the finalize decision
	windows         atomic.Uint64
	engineErrors    atomic.Uint64
	mergesMatched   atomic.Uint64
	mergesUnmatched atomic.Uint64

	// transcript is single-writer: only the worker merges into it
	mu         sync.Mutex
	transcript string
}

// NewSession creates a pipeline session for one recording
func NewSession(config SessionConfig, eng engine.Engine, logger *slog.Logger) *Session {
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.PopTimeout <= 0 {
		config.PopTimeout = 100 * time.Millisecond
	}
	if config.MaxOverlapWords <= 0 {
		config.MaxOverlapWords = 30
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New().String()
	windowSamples := config.WindowFrames * config.Channels
	overlapSamples := config.OverlapFrames * config.Channels

	return &Session{
		id:        id,
		config:    config,
		engine:    eng,
		logger:    logger.With("component", "pipeline", "session_id", id),
		queue:     NewBlockQueue(config.QueueCapacity),
		assembler: NewAssembler(windowSamples, overlapSamples),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Start launches the chunk worker and begins accepting audio
func (s *Session) Start() error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRecording)) {
		if s.State() == StateFinalized {
			return ErrFinalized
		}
		return ErrAlreadyStarted
	}

	s.logger.Info("Pipeline session started",
		"window_frames", s.config.WindowFrames,
		"overlap_frames", s.config.OverlapFrames,
		"queue_capacity", s.config.QueueCapacity)

	go s.worker()
	return nil
}

// Feed offers one audio block to the pipeline. It never blocks; the
// return value reports whether the block was enqueued or dropped.
func (s *Session) Feed(block []float32) (bool, error) {
	s.feedMu.RLock()
	defer s.feedMu.RUnlock()

	if s.State() != StateRecording {
		return false, ErrNotRecording
	}

	s.framesFed.Add(uint64(len(block) / s.config.Channels))

	if !s.queue.Push(block) {
		s.logger.Warn("Audio block dropped, queue full",
			"dropped_total", s.queue.Dropped())
		return false, nil
	}
	return true, nil
}

// Stop signals the worker to drain the queue and flush the assembler
func (s *Session) Stop() error {
	if !s.state.CompareAndSwap(int32(StateRecording), int32(StateStopping)) {
		return ErrNotRecording
	}

	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Finalize waits for the worker to drain, bounded by the configured
// finalize timeout, and decides whether the incremental transcript can
// be trusted. On timeout the worker is abandoned and its eventual
// output ignored. Finalize does not run the fallback transcription
// itself; the caller does that when Source is SourceFallback.
func (s *Session) Finalize(ctx context.Context) (Result, error) {
	if s.State() == StateFinalized {
		return Result{}, ErrFinalized
	}
	if s.State() == StateRecording {
		if err := s.Stop(); err != nil {
			return Result{}, err
		}
	}

	// A session that never started has no worker goroutine, so there
	// is no drain to wait for
	started := !s.state.CompareAndSwap(int32(StateIdle), int32(StateFinalized))

	timedOut := false
	if started {
		if s.config.FinalizeTimeout > 0 {
			timer := time.NewTimer(s.config.FinalizeTimeout)
			defer timer.Stop()

			select {
			case <-s.done:
			case <-timer.C:
				timedOut = true
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		} else {
			select {
			case <-s.done:
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}
	}

	s.state.Store(int32(StateFinalized))

	var reasons []FallbackReason
	if s.framesFed.Load() < uint64(s.config.WindowFrames) {
		reasons = append(reasons, ReasonShortRecording)
	}
	if s.queue.Dropped() > 0 {
		reasons = append(reasons, ReasonQueueOverflow)
	}
	if s.engineErrors.Load() > 0 {
		reasons = append(reasons, ReasonEngineError)
	}
	if timedOut {
		reasons = append(reasons, ReasonFinalizeTimeout)
	}

	s.mu.Lock()
	text := s.transcript
	s.mu.Unlock()

	result := Result{Text: text, Source: SourceIncremental, Reasons: reasons}
	if len(reasons) > 0 {
		result.Source = SourceFallback
	}

	s.logger.Info("Pipeline session finalized",
		"source", result.Source,
		"reasons", reasons,
		"windows", s.windows.Load(),
		"dropped", s.queue.Dropped(),
		"engine_errors", s.engineErrors.Load())

	return result, nil
}

// Stats returns a snapshot of session counters
func (s *Session) Stats() SessionStats {
	return SessionStats{
		State:           s.State().String(),
		Windows:         s.windows.Load(),
		BlocksDropped:   s.queue.Dropped(),
		EngineErrors:    s.engineErrors.Load(),
		MergesMatched:   s.mergesMatched.Load(),
		MergesUnmatched: s.mergesUnmatched.Load(),
		QueueDepth:      s.queue.Len(),
	}
}

// worker is the chunk consumer loop. It pops blocks with a short
// timeout so the stop signal is observed promptly, then drains the
// queue, flushes the assembler and signals completion.
func (s *Session) worker() {
	defer close(s.done)

	for {
		block, ok := s.queue.Pop(s.config.PopTimeout)
		if ok {
			s.process(block)
			continue
		}

		select {
		case <-s.stop:
			s.drain()
			return
		default:
		}
	}
}

func (s *Session) drain() {
	s.state.CompareAndSwap(int32(StateStopping), int32(StateDraining))

	// Wait out any Feed that passed its state check before the stop
	// landed. Once the barrier is acquired every later Feed observes a
	// non-recording state, so the queue can no longer grow.
	s.feedMu.Lock()
	s.feedMu.Unlock()

	for {
		block, ok := s.queue.TryPop()
		if !ok {
			break
		}
		s.process(block)
	}

	if window, ok := s.assembler.Flush(s.config.MinFlushFrames * s.config.Channels); ok {
		s.transcribeWindow(window)
	}
}

func (s *Session) process(block []float32) {
	for _, window := range s.assembler.Add(block) {
		s.transcribeWindow(window)
	}
}

// transcribeWindow converts one window to the engine format and merges
// its text into the transcript. Engine errors are counted and skipped;
// a single bad window must not abort the worker.
func (s *Session) transcribeWindow(window Window) {
	samples := window.Samples
	if s.config.Channels > 1 {
		samples = audio.DownmixMono(samples, s.config.Channels)
	}
	if s.config.EngineSampleRate > 0 && s.config.EngineSampleRate != s.config.SampleRate {
		samples = audio.Resample(samples, s.config.SampleRate, s.config.EngineSampleRate)
	}

	rate := s.config.EngineSampleRate
	if rate <= 0 {
		rate = s.config.SampleRate
	}

	start := time.Now()
	text, err := s.engine.Transcribe(context.Background(), samples, rate, s.config.ChunkParams)
	if s.config.ObserveChunk != nil {
		windowSeconds := float64(len(window.Samples)) / float64(s.config.Channels*s.config.SampleRate)
		s.config.ObserveChunk(windowSeconds, time.Since(start).Seconds(), err == nil)
	}
	if err != nil {
		s.engineErrors.Add(1)
		s.logger.Error("Chunk transcription failed",
			"seq", window.Seq,
			"error", err)
		return
	}

	s.windows.Add(1)
	s.logger.Debug("Chunk transcribed",
		"seq", window.Seq,
		"flush", window.Flush,
		"duration", time.Since(start),
		"chars", len(text))

	if text == "" {
		return
	}

	s.mu.Lock()
	merged, matched := Merge(s.transcript, text, s.config.MaxOverlapWords)
	s.transcript = merged
	s.mu.Unlock()

	if matched {
		s.mergesMatched.Add(1)
	} else if window.Seq > 0 {
		s.mergesUnmatched.Add(1)
	}
}

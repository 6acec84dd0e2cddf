package pipeline

import "errors"

var (
	// ErrNotRecording is returned when an operation requires an active recording
	ErrNotRecording = errors.New("session is not recording")

	// ErrAlreadyStarted is returned when Start is called twice
	ErrAlreadyStarted = errors.New("session already started")

	// ErrFinalized is returned when operating on a finalized session
	ErrFinalized = errors.New("session already finalized")
)

// FallbackReason explains why the incremental transcript cannot be
// trusted and a full-recording transcription pass is required.
type FallbackReason string

const (
	// ReasonShortRecording means the recording was shorter than one window
	ReasonShortRecording FallbackReason = "short_recording"

	// ReasonQueueOverflow means at least one audio block was dropped
	ReasonQueueOverflow FallbackReason = "queue_overflow"

	// ReasonEngineError means at least one chunk transcription failed
	ReasonEngineError FallbackReason = "engine_error"

	// ReasonFinalizeTimeout means the worker did not drain in time
	ReasonFinalizeTimeout FallbackReason = "finalize_timeout"
)

package engine

import (
	"context"
)

// Params controls a single transcription request. Chunk transcriptions use a
// small beam to favor latency; the full-recording pass uses a larger one.
type Params struct {
	BeamSize      int
	Temperature   float64
	Language      string
	InitialPrompt string
}

// Engine is the transcription capability consumed by the pipeline.
// Implementations receive normalized mono float samples at the given rate
// and return plain transcript text.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int, params Params) (string, error)
}

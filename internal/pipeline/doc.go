// Package pipeline implements the streaming transcription pipeline:
// a bounded block queue between the capture callback and the chunk
// worker, an assembler that slices audio into overlapping windows,
// an overlap-deduplicating transcript merger, and the session state
// machine that decides between the incremental transcript and a
// full-recording fallback pass at finalize time.
package pipeline

// Package recorder drives dictation recordings end to end: it owns
// the pipeline session for the active recording, keeps the complete
// PCM for the fallback pass, persists recordings as WAV files and
// writes finished transcripts to the history store.
package recorder

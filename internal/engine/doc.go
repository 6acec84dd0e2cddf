// Package engine abstracts transcription backends behind a single interface.
// It provides an HTTP multipart client for whisper-style APIs, a websocket
// streaming client, a local command-line backend, and a scripted mock for tests.
package engine

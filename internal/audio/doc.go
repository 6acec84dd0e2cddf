// Package audio handles PCM sample manipulation and format conversion.
// It implements channel downmixing, linear-interpolation resampling, and
// in-memory WAV encoding of PCM-16 payloads for transcription transport.
package audio

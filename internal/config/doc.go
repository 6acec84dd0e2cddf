// Package config provides configuration loading and validation for the dictation service.
// It handles YAML-based configuration with struct validation covering the audio intake,
// chunk pipeline, transcription engine backends, and persistence settings.
package config

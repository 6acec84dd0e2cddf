package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicetools/dictation-service/internal/audio"
)

// SocketEngine talks to a Vosk-compatible websocket recognition server.
// Each Transcribe call opens a connection, streams the PCM in binary
// frames, sends EOF and collects the final results.
type SocketEngine struct {
	config SocketConfig
	dialer *websocket.Dialer
}

// SocketConfig contains websocket engine configuration
type SocketConfig struct {
	URL     string
	Timeout time.Duration
}

// socketResult mirrors the recognition server response format
type socketResult struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

// Frames per binary message; 8000 samples is 0.5s at 16kHz
const socketFrameSize = 8000

// NewSocketEngine creates a new websocket transcription engine
func NewSocketEngine(config SocketConfig) (*SocketEngine, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("websocket URL cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &SocketEngine{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}, nil
}

// Transcribe streams the samples over a websocket connection and
// returns the concatenated final results
func (e *SocketEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int, params Params) (string, error) {
	url := fmt.Sprintf("%s?sample_rate=%d", e.config.URL, sampleRate)

	conn, _, err := e.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to connect to recognition server: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(e.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	// Stream audio in fixed-size binary frames, draining server
	// responses between writes so the connection does not stall.
	var finalText strings.Builder

	for offset := 0; offset < len(samples); offset += socketFrameSize {
		end := offset + socketFrameSize
		if end > len(samples) {
			end = len(samples)
		}

		frame := audio.Float32ToBytes(samples[offset:end])
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return "", fmt.Errorf("failed to send audio frame: %w", err)
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("failed to read recognition result: %w", err)
		}

		appendFinal(&finalText, message)
	}

	// EOF asks the server to flush its final result
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof": 1}`)); err != nil {
		return "", fmt.Errorf("failed to send EOF: %w", err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("failed to read final result: %w", err)
	}
	appendFinal(&finalText, message)

	return strings.TrimSpace(finalText.String()), nil
}

// appendFinal extracts a final result from a server message, ignoring
// partial results and unparseable frames
func appendFinal(sb *strings.Builder, message []byte) {
	var result socketResult
	if err := json.Unmarshal(message, &result); err != nil {
		return
	}

	if result.Text == "" {
		return
	}

	if sb.Len() > 0 {
		sb.WriteString(" ")
	}
	sb.WriteString(result.Text)
}

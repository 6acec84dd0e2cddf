package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/voicetools/dictation-service/internal/audio"
	"github.com/voicetools/dictation-service/internal/pipeline"
)

// Source reads fixed-size blocks of little-endian 16-bit PCM from a
// reader and delivers them to a feed callback. It is used to drive
// recordings from stdin or any other byte stream.
type Source struct {
	reader      io.Reader
	blockFrames int
	channels    int
	logger      *slog.Logger
}

// NewSource creates a block source for the given reader
func NewSource(reader io.Reader, blockFrames, channels int, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		reader:      reader,
		blockFrames: blockFrames,
		channels:    channels,
		logger:      logger.With("component", "source"),
	}
}

// Run reads blocks until EOF or context cancellation, passing each to
// feed. A feed rejection because no recording is active is not an
// error; the block is discarded.
func (s *Source) Run(ctx context.Context, feed func(block []float32) error) error {
	blockBytes := s.blockFrames * s.channels * 2
	buf := make([]byte, blockBytes)
	blocks := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := io.ReadFull(s.reader, buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("Audio source finished", "blocks", blocks)
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				// Deliver the final partial block before stopping
				if n >= 2 {
					s.deliver(feed, buf[:n-n%2])
					blocks++
				}
				s.logger.Info("Audio source finished", "blocks", blocks)
				return nil
			}
			return fmt.Errorf("read audio block: %w", err)
		}

		s.deliver(feed, buf)
		blocks++
	}
}

func (s *Source) deliver(feed func(block []float32) error, data []byte) {
	block, err := audio.BytesToFloat32(data)
	if err != nil {
		s.logger.Warn("Skipping malformed audio block", "error", err)
		return
	}

	if err := feed(block); err != nil && !errors.Is(err, pipeline.ErrNotRecording) {
		s.logger.Warn("Feed failed", "error", err)
	}
}

package recorder

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/voicetools/dictation-service/internal/pipeline"
)

func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestSourceDeliversBlocks(t *testing.T) {
	// 2.5 blocks of 4 frames each
	samples := make([]int16, 10)
	for i := range samples {
		samples[i] = int16(i * 1000)
	}

	src := NewSource(bytes.NewReader(pcmBytes(samples)), 4, 1, quietLogger())

	var blocks [][]float32
	err := src.Run(context.Background(), func(block []float32) error {
		blocks = append(blocks, block)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3 (two full plus one partial)", len(blocks))
	}
	if len(blocks[0]) != 4 || len(blocks[1]) != 4 {
		t.Errorf("full block sizes = %d, %d, want 4", len(blocks[0]), len(blocks[1]))
	}
	if len(blocks[2]) != 2 {
		t.Errorf("partial block size = %d, want 2", len(blocks[2]))
	}
}

func TestSourceEmptyInput(t *testing.T) {
	src := NewSource(bytes.NewReader(nil), 4, 1, quietLogger())

	called := false
	err := src.Run(context.Background(), func(block []float32) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Error("feed called with no input")
	}
}

func TestSourceIgnoresNotRecording(t *testing.T) {
	samples := make([]int16, 8)
	src := NewSource(bytes.NewReader(pcmBytes(samples)), 4, 1, quietLogger())

	err := src.Run(context.Background(), func(block []float32) error {
		return pipeline.ErrNotRecording
	})
	if err != nil {
		t.Errorf("Run = %v, want nil when no recording is active", err)
	}
}

func TestSourceContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSource(bytes.NewReader(pcmBytes(make([]int16, 100))), 4, 1, quietLogger())
	err := src.Run(ctx, func(block []float32) error { return nil })
	if err == nil {
		t.Error("Run = nil, want context error")
	}
}

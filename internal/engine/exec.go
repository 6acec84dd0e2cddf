package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"

	"github.com/voicetools/dictation-service/internal/audio"
)

// ExecEngine shells out to a local transcription command. The audio is
// written to a temporary WAV file and the command is expected to print
// a JSON object with a "text" field on stdout.
type ExecEngine struct {
	cmd    []string
	config ExecConfig
	mu     sync.Mutex // Serializes command runs
}

// ExecConfig contains exec engine configuration
type ExecConfig struct {
	Command   string
	ModelPath string
}

type execResult struct {
	Text string `json:"text"`
}

// NewExecEngine creates a new subprocess transcription engine
func NewExecEngine(config ExecConfig) (*ExecEngine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(config.Command)
	if err != nil {
		return nil, fmt.Errorf("parse transcription command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("transcription command is empty")
	}
	return &ExecEngine{cmd: args, config: config}, nil
}

// Transcribe runs the configured command on a temp WAV file
func (e *ExecEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int, params Params) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := os.CreateTemp(os.TempDir(), "dictation_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writeSamplesToWav(file, samples, sampleRate); err != nil {
		return "", err
	}

	base := e.cmd[0]
	cmdArgs := append([]string{}, e.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if e.config.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", e.config.ModelPath)
	}
	if params.Language != "" {
		cmdArgs = append(cmdArgs, "--language", params.Language)
	}
	if params.BeamSize > 0 {
		cmdArgs = append(cmdArgs, "--beam-size", strconv.Itoa(params.BeamSize))
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("transcription command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return resp.Text, nil
}

func writeSamplesToWav(file *os.File, samples []float32, sampleRate int) error {
	pcm := audio.Float32ToInt16(samples)
	buffer := &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: 1, SampleRate: sampleRate}}
	buffer.Data = make([]int, len(pcm))
	for i, s := range pcm {
		buffer.Data[i] = int(s)
	}

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

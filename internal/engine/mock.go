package engine

import (
	"context"
	"sync"
)

// MockEngine returns scripted transcripts for testing. Responses are
// consumed in order; once exhausted the last response repeats. A nil
// Gate means calls return immediately, otherwise each call blocks
// until the gate channel is closed or the context is cancelled.
type MockEngine struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	nextResp  int

	// Gate, when non-nil, blocks Transcribe until closed.
	Gate chan struct{}

	// Requests records the sample counts and params of each call.
	Requests []MockRequest
}

// MockRequest captures the arguments of a single Transcribe call
type MockRequest struct {
	SampleCount int
	SampleRate  int
	Params      Params
}

// NewMockEngine creates a mock engine with the given scripted responses
func NewMockEngine(responses ...string) *MockEngine {
	return &MockEngine{responses: responses}
}

// FailWith schedules errors returned in order before any responses
func (e *MockEngine) FailWith(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, errs...)
}

// Transcribe returns the next scripted response or error. The call is
// recorded before blocking on the gate so tests can observe that a
// caller has arrived while it is still held.
func (e *MockEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int, params Params) (string, error) {
	e.mu.Lock()
	e.calls++
	e.Requests = append(e.Requests, MockRequest{
		SampleCount: len(samples),
		SampleRate:  sampleRate,
		Params:      params,
	})
	e.mu.Unlock()

	if e.Gate != nil {
		select {
		case <-e.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		return "", err
	}

	if len(e.responses) == 0 {
		return "", nil
	}

	idx := e.nextResp
	if idx >= len(e.responses) {
		idx = len(e.responses) - 1
	}
	e.nextResp++

	return e.responses[idx], nil
}

// Calls returns the number of Transcribe invocations so far
func (e *MockEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

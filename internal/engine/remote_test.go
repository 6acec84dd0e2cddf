package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voicetools/dictation-service/internal/audio"
)

func testSamples() []float32 {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(i%100) / 200.0
	}
	return samples
}

func TestRemoteTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		if got := r.FormValue("model"); got != "whisper-large" {
			t.Errorf("model field = %q, want %q", got, "whisper-large")
		}
		if got := r.FormValue("beam_size"); got != "3" {
			t.Errorf("beam_size field = %q, want %q", got, "3")
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language field = %q, want %q", got, "en")
		}
		if got := r.FormValue("response_format"); got != "json" {
			t.Errorf("response_format field = %q, want %q", got, "json")
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "hello world"}`))
	}))
	defer server.Close()

	engine, err := NewRemoteEngine(RemoteConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "whisper-large",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewRemoteEngine: %v", err)
	}

	text, err := engine.Transcribe(context.Background(), testSamples(), 16000, Params{
		BeamSize:    3,
		Temperature: 0.0,
		Language:    "en",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}

	stats := engine.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("stats = %+v, want 1 total, 1 success", stats)
	}
}

func TestRemoteRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"text": "second try"}`))
	}))
	defer server.Close()

	engine, err := NewRemoteEngine(RemoteConfig{
		Endpoint:   server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("NewRemoteEngine: %v", err)
	}

	text, err := engine.Transcribe(context.Background(), testSamples(), 16000, Params{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "second try" {
		t.Errorf("text = %q, want %q", text, "second try")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}

	if engine.GetStats().TotalRetries != 1 {
		t.Errorf("retries = %d, want 1", engine.GetStats().TotalRetries)
	}
}

func TestRemoteNoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	engine, err := NewRemoteEngine(RemoteConfig{
		Endpoint:   server.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("NewRemoteEngine: %v", err)
	}

	if _, err := engine.Transcribe(context.Background(), testSamples(), 16000, Params{}); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retries)", got)
	}
}

func TestRemoteEmptyEndpoint(t *testing.T) {
	if _, err := NewRemoteEngine(RemoteConfig{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestRemotePayloadDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			t.Errorf("read file part: %v", err)
		}
		samples, rate, err := audio.DecodeWAV(data)
		if err != nil {
			t.Errorf("payload is not a valid WAV: %v", err)
		}
		if rate != 16000 {
			t.Errorf("payload sample rate = %d, want 16000", rate)
		}
		if len(samples) != 1600 {
			t.Errorf("payload sample count = %d, want 1600", len(samples))
		}

		w.Write([]byte(`{"text": "ok"}`))
	}))
	defer server.Close()

	engine, err := NewRemoteEngine(RemoteConfig{Endpoint: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewRemoteEngine: %v", err)
	}

	if _, err := engine.Transcribe(context.Background(), testSamples(), 16000, Params{}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

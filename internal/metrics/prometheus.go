package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the dictation service
type Metrics struct {
	// Audio intake metrics
	BlocksReceived prometheus.Counter
	BlocksDropped  prometheus.Counter
	QueueDepth     prometheus.Gauge

	// Session metrics
	ActiveSessions   prometheus.Gauge
	SessionsStarted  prometheus.Counter
	SessionsFinished prometheus.Counter
	SessionDuration  prometheus.Histogram

	// Window metrics
	WindowsAssembled prometheus.Counter
	WindowDuration   prometheus.Histogram

	// Chunk transcription metrics
	ChunkTranscriptions prometheus.Counter
	ChunkErrors         prometheus.Counter
	ChunkDuration       prometheus.Histogram

	// Merge metrics
	MergesMatched   prometheus.Counter
	MergesUnmatched prometheus.Counter

	// Finalize metrics
	FinalizeOutcomes *prometheus.CounterVec
	FallbackReasons  *prometheus.CounterVec
	FallbackDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Audio intake metrics
		BlocksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_blocks_received_total",
			Help: "Total number of audio blocks received from the capture source",
		}),
		BlocksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_blocks_dropped_total",
			Help: "Total number of audio blocks dropped by the full queue",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dictation_block_queue_depth",
			Help: "Current number of audio blocks waiting in the queue",
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dictation_active_sessions",
			Help: "Current number of active recording sessions",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsFinished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_sessions_finished_total",
			Help: "Total number of recording sessions finalized",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_session_duration_seconds",
			Help:    "Duration of recording sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// Window metrics
		WindowsAssembled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_windows_assembled_total",
			Help: "Total number of audio windows assembled",
		}),
		WindowDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_window_duration_seconds",
			Help:    "Duration of assembled audio windows",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),

		// Chunk transcription metrics
		ChunkTranscriptions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_chunk_transcriptions_total",
			Help: "Total number of successful chunk transcriptions",
		}),
		ChunkErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_chunk_errors_total",
			Help: "Total number of failed chunk transcriptions",
		}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_chunk_transcription_duration_seconds",
			Help:    "Duration of chunk transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Merge metrics
		MergesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_merges_matched_total",
			Help: "Total number of chunk merges with a detected overlap",
		}),
		MergesUnmatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dictation_merges_unmatched_total",
			Help: "Total number of chunk merges that fell back to concatenation",
		}),

		// Finalize metrics
		FinalizeOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_finalize_outcomes_total",
			Help: "Total number of finalized sessions by transcript source",
		}, []string{"source"}),
		FallbackReasons: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_fallback_reasons_total",
			Help: "Total number of fallback decisions by reason",
		}, []string{"reason"}),
		FallbackDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictation_fallback_transcription_duration_seconds",
			Help:    "Duration of full-recording fallback transcriptions",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dictation_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dictation_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordBlockReceived increments the blocks received counter
func (m *Metrics) RecordBlockReceived() {
	m.BlocksReceived.Inc()
}

// RecordBlockDropped increments the blocks dropped counter
func (m *Metrics) RecordBlockDropped() {
	m.BlocksDropped.Inc()
}

// SetQueueDepth sets the current queue depth
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordSessionStarted increments the sessions started counter
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

// RecordSessionFinished records a finalized session and its duration
func (m *Metrics) RecordSessionFinished(durationSeconds float64) {
	m.SessionsFinished.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordWindowAssembled records an assembled window
func (m *Metrics) RecordWindowAssembled(durationSeconds float64) {
	m.WindowsAssembled.Inc()
	m.WindowDuration.Observe(durationSeconds)
}

// RecordChunkTranscription records a successful chunk transcription
func (m *Metrics) RecordChunkTranscription(durationSeconds float64) {
	m.ChunkTranscriptions.Inc()
	m.ChunkDuration.Observe(durationSeconds)
}

// RecordChunkError increments the chunk error counter
func (m *Metrics) RecordChunkError() {
	m.ChunkErrors.Inc()
}

// RecordMerges adds to the merge outcome counters
func (m *Metrics) RecordMerges(matched, unmatched uint64) {
	m.MergesMatched.Add(float64(matched))
	m.MergesUnmatched.Add(float64(unmatched))
}

// RecordFinalizeOutcome records a finalize decision and its reasons
func (m *Metrics) RecordFinalizeOutcome(source string, reasons []string) {
	m.FinalizeOutcomes.WithLabelValues(source).Inc()
	for _, reason := range reasons {
		m.FallbackReasons.WithLabelValues(reason).Inc()
	}
}

// RecordFallbackTranscription records the duration of a full-recording pass
func (m *Metrics) RecordFallbackTranscription(durationSeconds float64) {
	m.FallbackDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

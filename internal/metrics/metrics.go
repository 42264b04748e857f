// Package metrics holds the Prometheus collectors for narration jobs.
//
// All record methods are safe on a nil *Metrics so callers can run
// without instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics contains all Prometheus metrics for the narration service.
type Metrics struct {
	// Job metrics
	Jobs           *prometheus.CounterVec
	Prompts        prometheus.Counter
	SubtitleBlocks prometheus.Counter

	// Collaborator latency
	SynthesisDuration     prometheus.Histogram
	TranscriptionDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Jobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "narrate_jobs_total",
			Help: "Total number of narration jobs by outcome",
		}, []string{"status"}),
		Prompts: f.NewCounter(prometheus.CounterOpts{
			Name: "narrate_prompts_total",
			Help: "Total number of prompts synthesized",
		}),
		SubtitleBlocks: f.NewCounter(prometheus.CounterOpts{
			Name: "narrate_subtitle_blocks_total",
			Help: "Total number of SRT blocks generated",
		}),
		SynthesisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "narrate_synthesis_duration_seconds",
			Help:    "Duration of text-to-speech requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "narrate_transcription_duration_seconds",
			Help:    "Duration of speech recognition requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "narrate_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "narrate_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordJob counts a finished job.
func (m *Metrics) RecordJob(ok bool) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if !ok {
		status = StatusFailure
	}
	m.Jobs.WithLabelValues(status).Inc()
}

// RecordPrompt counts a synthesized prompt and its latency.
func (m *Metrics) RecordPrompt(seconds float64) {
	if m == nil {
		return
	}
	m.Prompts.Inc()
	m.SynthesisDuration.Observe(seconds)
}

// RecordSubtitles records a transcription latency and the blocks it produced.
func (m *Metrics) RecordSubtitles(seconds float64, blocks int) {
	if m == nil {
		return
	}
	m.TranscriptionDuration.Observe(seconds)
	m.SubtitleBlocks.Add(float64(blocks))
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

// Package metrics provides Prometheus metrics for the recognition pipeline.
//
// A nil *Recorder is valid and records nothing, so components can take an
// optional recorder without guarding every call.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recog"

// Recorder holds the pipeline metrics.
type Recorder struct {
	registry *prometheus.Registry

	llmRequests       *prometheus.CounterVec
	llmLatency        prometheus.Histogram
	llmAsyncFallbacks prometheus.Counter

	extractions         *prometheus.CounterVec
	suggestionsReturned prometheus.Histogram
	indexQueries        *prometheus.CounterVec
	examinations        *prometheus.CounterVec
}

// Option applies a configuration option to the Recorder.
type Option func(*options)

type options struct {
	buckets []float64
}

// WithLatencyBuckets sets custom histogram buckets for LLM latency in seconds.
func WithLatencyBuckets(buckets []float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// New creates a Recorder with its own registry.
func New(opts ...Option) *Recorder {
	o := options{buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80}}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Chat-completion calls by outcome.",
		}, []string{"outcome"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Chat-completion round-trip latency.",
			Buckets:   o.buckets,
		}),
		llmAsyncFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "async_fallbacks_total",
			Help:      "Calls retried on the asynchronous path after the sync path was unavailable.",
		}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "modules_total",
			Help:      "Module info extractions by outcome (ok, fallback).",
		}, []string{"outcome"}),
		suggestionsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "suggest",
			Name:      "returned",
			Help:      "Suggestions returned per ranking after institution filtering.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		indexQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "queries_total",
			Help:      "Similarity index queries by outcome.",
		}, []string{"outcome"}),
		examinations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "examine",
			Name:      "results_total",
			Help:      "Examination judgments by outcome (ok, error).",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.llmRequests,
		r.llmLatency,
		r.llmAsyncFallbacks,
		r.extractions,
		r.suggestionsReturned,
		r.indexQueries,
		r.examinations,
	)
	return r
}

// Registry returns the registry for exposition.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// LLMRequest records one gateway call.
func (r *Recorder) LLMRequest(err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.llmRequests.WithLabelValues(outcome(err)).Inc()
	r.llmLatency.Observe(elapsed.Seconds())
}

// LLMAsyncFallback records a sync-to-async retry.
func (r *Recorder) LLMAsyncFallback() {
	if r == nil {
		return
	}
	r.llmAsyncFallbacks.Inc()
}

// Extraction records an extraction; fallback marks a raw-text record.
func (r *Recorder) Extraction(fallback bool) {
	if r == nil {
		return
	}
	if fallback {
		r.extractions.WithLabelValues("fallback").Inc()
		return
	}
	r.extractions.WithLabelValues("ok").Inc()
}

// Suggestions records how many candidates survived filtering.
func (r *Recorder) Suggestions(n int) {
	if r == nil {
		return
	}
	r.suggestionsReturned.Observe(float64(n))
}

// IndexQuery records one similarity search.
func (r *Recorder) IndexQuery(err error) {
	if r == nil {
		return
	}
	r.indexQueries.WithLabelValues(outcome(err)).Inc()
}

// Examination records one judgment.
func (r *Recorder) Examination(err error) {
	if r == nil {
		return
	}
	r.examinations.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

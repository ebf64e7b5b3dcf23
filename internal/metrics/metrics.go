// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records pipeline counters and latencies in a Prometheus
// registry. A CLI process has no scrape endpoint, so the registry is written
// out in the node-exporter textfile format at exit.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gene_disease"

// Source fetch outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// SourceFetches counts collector runs.
	// Labels: source (opentargets, literature, gwas_catalog), outcome (ok, empty, failed)
	SourceFetches *prometheus.CounterVec

	// SourceDuration measures collector latency.
	// Labels: source
	SourceDuration *prometheus.HistogramVec

	// AnalyzerCalls counts analyzer outcomes.
	// Labels: provider, outcome (ok or an error kind)
	AnalyzerCalls *prometheus.CounterVec

	// AnalyzerRetries counts backoff retries after retryable failures.
	// Labels: provider
	AnalyzerRetries *prometheus.CounterVec

	// Runs counts runs reaching a terminal state.
	// Labels: status (completed, failed), verdict
	Runs *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evidence",
			Name:      "source_fetches_total",
			Help:      "Evidence collector runs by source and outcome",
		}, []string{"source", "outcome"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evidence",
			Name:      "source_duration_seconds",
			Help:      "Evidence collector latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),
		AnalyzerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "calls_total",
			Help:      "LLM analyzer calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		AnalyzerRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "retries_total",
			Help:      "LLM analyzer retries after retryable failures",
		}, []string{"provider"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Analysis runs by terminal status and verdict",
		}, []string{"status", "verdict"}),
	}
	m.registry.MustRegister(m.SourceFetches, m.SourceDuration, m.AnalyzerCalls, m.AnalyzerRetries, m.Runs)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSource records one collector run.
func (m *Metrics) ObserveSource(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SourceFetches.WithLabelValues(source, outcome).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveAnalyzer records one analyzer call outcome.
func (m *Metrics) ObserveAnalyzer(provider, outcome string) {
	if m == nil {
		return
	}
	m.AnalyzerCalls.WithLabelValues(provider, outcome).Inc()
}

// ObserveRetry records one analyzer backoff retry.
func (m *Metrics) ObserveRetry(provider string) {
	if m == nil {
		return
	}
	m.AnalyzerRetries.WithLabelValues(provider).Inc()
}

// ObserveRun records a run reaching a terminal state.
func (m *Metrics) ObserveRun(status, verdict string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status, verdict).Inc()
}

// WriteTextfile writes the registry to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

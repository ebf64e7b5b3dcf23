// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers best-effort run status updates. Delivery never
// blocks or fails a run: sink errors and panics are logged and dropped.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// Sink receives status updates for a run.
type Sink interface {
	Notify(ctx context.Context, runID int64, n types.Notification) error
}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, runID int64, n types.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"run_id", runID, "status", n.Status}
	if n.Verdict != "" {
		attrs = append(attrs, "verdict", n.Verdict)
	}
	if n.Confidence != nil {
		attrs = append(attrs, "confidence", *n.Confidence)
	}
	logger.InfoContext(ctx, n.Message, attrs...)
	return nil
}

// WriterSink prints one progress line per notification.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *WriterSink) Notify(_ context.Context, runID int64, n types.Notification) error {
	line := fmt.Sprintf("[run %d] %-10s %s", runID, n.Status, n.Message)
	if n.Verdict != "" {
		line += fmt.Sprintf(" (verdict: %s", n.Verdict)
		if n.Confidence != nil {
			line += fmt.Sprintf(", confidence: %.2f", *n.Confidence)
		}
		line += ")"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.W, line)
	return err
}

// Dispatcher fans a notification out to every sink, isolating failures.
type Dispatcher struct {
	Sinks  []Sink
	Logger *slog.Logger
}

// New returns a Dispatcher over sinks.
func New(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{Sinks: sinks, Logger: logger}
}

// Notify delivers n to every sink. It never returns an error.
func (d *Dispatcher) Notify(ctx context.Context, runID int64, n types.Notification) {
	if d == nil {
		return
	}
	for _, sink := range d.Sinks {
		d.deliver(ctx, sink, runID, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, runID int64, n types.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger().Warn("notification sink panicked", "run_id", runID, "sink", fmt.Sprintf("%T", sink), "panic", r)
		}
	}()
	if err := sink.Notify(ctx, runID, n); err != nil {
		d.logger().Warn("notification delivery failed", "run_id", runID, "sink", fmt.Sprintf("%T", sink), "error", err)
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

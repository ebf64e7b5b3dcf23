// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyzer

import (
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Window is a per-provider sliding-window call counter shared by every run
// in the process. Check and record happen under one lock.
type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	buffer time.Duration
	now    Clock
	calls  map[types.Provider][]time.Time
}

// NewWindow returns a Window from cfg. A nil now uses time.Now.
func NewWindow(cfg types.RateLimitConfig, now Clock) *Window {
	if now == nil {
		now = time.Now
	}
	w := &Window{
		limit:  cfg.RequestsPerMinute,
		window: cfg.Window,
		buffer: cfg.Buffer,
		now:    now,
		calls:  make(map[types.Provider][]time.Time),
	}
	if w.limit <= 0 {
		w.limit = 20
	}
	if w.window <= 0 {
		w.window = time.Minute
	}
	if w.buffer <= 0 {
		w.buffer = w.window + time.Second
	}
	return w
}

// Check admits one call for p or rejects it with a KindRateLimited *Error.
// An admitted call is recorded. RetryAfter on a rejection is the buffer
// minus the age of the oldest call still in the window.
func (w *Window) Check(p types.Provider) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	calls := w.calls[p]
	live := calls[:0]
	for _, t := range calls {
		if now.Sub(t) < w.window {
			live = append(live, t)
		}
	}

	if len(live) >= w.limit {
		w.calls[p] = live
		retryAfter := w.buffer - now.Sub(live[0])
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return &Error{
			Kind:       KindRateLimited,
			Provider:   p,
			RetryAfter: retryAfter,
			Message:    fmt.Sprintf("Rate limit exceeded: %d requests per %s for %s", w.limit, w.window, p),
		}
	}

	w.calls[p] = append(live, now)
	return nil
}

// InWindow returns the number of calls for p currently inside the window.
func (w *Window) InWindow(p types.Provider) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	n := 0
	for _, t := range w.calls[p] {
		if now.Sub(t) < w.window {
			n++
		}
	}
	return n
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// Kind classifies analyzer failures.
type Kind string

const (
	KindAuthentication     Kind = "authentication"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindRateLimited        Kind = "rate_limited"
	KindServiceUnavailable Kind = "service_unavailable"
	KindFailure            Kind = "failure"
)

// Error is a classified analyzer failure. Only KindServiceUnavailable is
// retried by the analyzer; the caller decides what to do with the others.
type Error struct {
	Kind       Kind
	Provider   types.Provider
	StatusCode int
	// RetryAfter is set for KindRateLimited when the provider or the local
	// rate window supplied one.
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter.Round(time.Second))
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the analyzer backs off and tries again.
func (e *Error) Retryable() bool { return e.Kind == KindServiceUnavailable }

// KindOf returns the Kind of err. Errors that are not *Error are
// KindFailure; a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindFailure
}

// quotaKeywords mark a 429 as an exhausted account rather than a transient
// rate limit.
var quotaKeywords = []string{"quota", "billing", "insufficient_quota", "credit balance"}

func providerLabel(p types.Provider) string {
	switch p {
	case types.ProviderOpenAI:
		return "OpenAI"
	case types.ProviderAnthropic:
		return "Anthropic"
	}
	return string(p)
}

// classifyStatus maps a provider HTTP error response to an *Error.
func classifyStatus(p types.Provider, status int, message string, retryAfter time.Duration, cause error) *Error {
	name := providerLabel(p)
	e := &Error{Provider: p, StatusCode: status, Err: cause}
	detail := strings.TrimSpace(message)
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuthentication
		e.Message = fmt.Sprintf("Invalid %s API key", name)
	case status == http.StatusTooManyRequests && containsAny(strings.ToLower(detail), quotaKeywords):
		e.Kind = KindQuotaExceeded
		e.Message = fmt.Sprintf("%s quota exceeded", name)
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.Message = fmt.Sprintf("%s rate limit exceeded", name)
		e.RetryAfter = retryAfter
	case status >= http.StatusInternalServerError:
		e.Kind = KindServiceUnavailable
		e.Message = fmt.Sprintf("%s service unavailable (HTTP %d)", name, status)
	default:
		e.Kind = KindFailure
		e.Message = fmt.Sprintf("%s API error %d", name, status)
	}
	if detail != "" {
		e.Message += ": " + truncate(detail, 300)
	}
	return e
}

// classifyTransport maps a failure that produced no HTTP response. Timeouts
// and connection failures are service unavailability; a cancelled parent
// context is not.
func classifyTransport(p types.Provider, err error) *Error {
	name := providerLabel(p)
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindFailure, Provider: p, Message: fmt.Sprintf("%s request cancelled", name), Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return &Error{Kind: KindServiceUnavailable, Provider: p,
			Message: fmt.Sprintf("%s service unavailable: %v", name, err), Err: err}
	}
	return &Error{Kind: KindFailure, Provider: p, Message: fmt.Sprintf("%s request failed: %v", name, err), Err: err}
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP
// date. Unparseable or past values yield zero.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyzer submits an evidence bundle to an LLM provider and
// interprets the structured verdict it returns.
//
// A call passes a per-provider rate check, then dispatches to the provider
// adapter. Service-unavailable failures are retried with bounded
// exponential backoff; every other failure is returned as a classified
// *Error for the caller to map.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/gene-disease-engine/internal/metrics"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// Provider is one LLM backend. Adapters are built per run with the run's
// credential and model.
type Provider interface {
	Name() types.Provider
	Submit(ctx context.Context, bundle *types.EvidenceBundle) (types.AnalyzerVerdict, error)
}

// Service owns the process-wide rate window and builds a provider adapter
// for each call. It is safe for concurrent use.
type Service struct {
	Config     types.AIConfig
	Window     *Window
	Sleep      Sleeper
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// NewProvider overrides adapter construction. Tests use it to inject
	// fake providers.
	NewProvider func(cred types.Credential, model string) (Provider, error)
}

// NewService returns a Service with a fresh rate window.
func NewService(cfg types.AIConfig, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Config:  cfg,
		Window:  NewWindow(cfg.RateLimit, nil),
		Sleep:   SleepContext,
		Metrics: m,
		Logger:  logger,
	}
}

// Analyze runs one analyzer call for bundle with the given credential and
// model. An empty model uses the configured default.
func (s *Service) Analyze(ctx context.Context, cred types.Credential, model string, bundle *types.EvidenceBundle) (types.AnalyzerVerdict, error) {
	if model == "" {
		model = s.Config.Model
	}
	p, err := s.provider(cred, model)
	if err != nil {
		s.Metrics.ObserveAnalyzer(string(cred.Provider), string(KindOf(err)))
		return types.AnalyzerVerdict{}, err
	}
	v, err := s.run(ctx, p, bundle)
	if err != nil {
		s.Metrics.ObserveAnalyzer(string(p.Name()), string(KindOf(err)))
		return types.AnalyzerVerdict{}, err
	}
	s.Metrics.ObserveAnalyzer(string(p.Name()), metrics.OutcomeOK)
	return v, nil
}

// provider selects the adapter by provider tag.
func (s *Service) provider(cred types.Credential, model string) (Provider, error) {
	if cred.APIKey == "" {
		return nil, &Error{Kind: KindAuthentication, Provider: cred.Provider,
			Message: fmt.Sprintf("no API key configured for %s", cred.Provider)}
	}
	if s.NewProvider != nil {
		return s.NewProvider(cred, model)
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	switch cred.Provider {
	case types.ProviderOpenAI:
		return NewOpenAIProvider(cred.APIKey, model, s.Config, hc), nil
	case types.ProviderAnthropic:
		return NewAnthropicProvider(cred.APIKey, model, s.Config, hc), nil
	}
	return nil, &Error{Kind: KindFailure, Provider: cred.Provider,
		Message: fmt.Sprintf("unsupported provider %q", cred.Provider)}
}

// run applies the rate check once, then dispatches with retries on
// service-unavailable failures. Each attempt gets its own timeout.
func (s *Service) run(ctx context.Context, p Provider, bundle *types.EvidenceBundle) (types.AnalyzerVerdict, error) {
	if s.Window != nil {
		if err := s.Window.Check(p.Name()); err != nil {
			s.logger().Warn("analyzer call rejected by rate window", "provider", p.Name(), "error", err)
			return types.AnalyzerVerdict{}, err
		}
	}

	policy := NewRetryPolicy(s.Config.Retry)
	timeout := s.Config.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		v, err := p.Submit(attemptCtx, bundle)
		cancel()
		if err == nil {
			s.logger().Debug("analyzer call succeeded", "provider", p.Name(), "attempt", attempt,
				"verdict", v.Verdict, "confidence", v.Confidence)
			return v, nil
		}

		var ae *Error
		if !errors.As(err, &ae) {
			ae = &Error{Kind: KindFailure, Provider: p.Name(), Message: err.Error(), Err: err}
		}
		if !ae.Retryable() || attempt >= policy.MaxAttempts {
			return types.AnalyzerVerdict{}, ae
		}

		delay := policy.Delay(attempt)
		s.logger().Warn("analyzer call failed, retrying", "provider", p.Name(), "attempt", attempt,
			"max_attempts", policy.MaxAttempts, "delay", delay, "error", ae)
		s.Metrics.ObserveRetry(string(p.Name()))
		if err := sleep(ctx, delay); err != nil {
			return types.AnalyzerVerdict{}, ae
		}
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one analysis run through its lifecycle:
// pending, processing, then completed or failed.
//
// Evidence gathering failures (including unresolved identifiers) fail the
// run. Analyzer failures only degrade the persisted verdict; the run still
// completes because its evidence was gathered.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pdiddy/gene-disease-engine/internal/analyzer"
	"github.com/pdiddy/gene-disease-engine/internal/metrics"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// RecordStore persists runs and results. The orchestrator writes at each
// transition and never reads back mid-run.
type RecordStore interface {
	CreateRun(ctx context.Context, req types.AnalysisRequest, provider types.Provider) (int64, error)
	MarkProcessing(ctx context.Context, id int64) error
	FinishRun(ctx context.Context, id int64, status types.RunState, ids types.ResolvedIDs, completedAt time.Time) error
	SaveResult(ctx context.Context, res types.Result) error
}

// Notifier delivers best-effort status updates.
type Notifier interface {
	Notify(ctx context.Context, runID int64, n types.Notification)
}

// EvidenceGatherer resolves identifiers and collects the evidence bundle.
type EvidenceGatherer interface {
	Gather(ctx context.Context, req types.AnalysisRequest) (*types.EvidenceBundle, error)
}

// Analyzer scores a bundle with an LLM.
type Analyzer interface {
	Analyze(ctx context.Context, cred types.Credential, model string, bundle *types.EvidenceBundle) (types.AnalyzerVerdict, error)
}

// Orchestrator runs analyses. It is safe for concurrent use.
type Orchestrator struct {
	Store    RecordStore
	Gatherer EvidenceGatherer
	Analyzer Analyzer
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time

	wg sync.WaitGroup
}

// Submit creates a pending run and drives it in the background on a context
// detached from ctx, so the run reaches a terminal state even if the caller
// goes away. It returns the new run id.
func (o *Orchestrator) Submit(ctx context.Context, req types.AnalysisRequest, cred types.Credential) (int64, error) {
	id, err := o.create(ctx, req, cred)
	if err != nil {
		return 0, err
	}
	runCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.Run(runCtx, id, req, cred); err != nil {
			o.logger().Error("run aborted", "run_id", id, "error", err)
		}
	}()
	return id, nil
}

// Wait blocks until every submitted run has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Execute creates a run and drives it to a terminal state before returning.
func (o *Orchestrator) Execute(ctx context.Context, req types.AnalysisRequest, cred types.Credential) (int64, types.Result, error) {
	id, err := o.create(ctx, req, cred)
	if err != nil {
		return 0, types.Result{}, err
	}
	res, err := o.Run(ctx, id, req, cred)
	return id, res, err
}

func (o *Orchestrator) create(ctx context.Context, req types.AnalysisRequest, cred types.Credential) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, fmt.Errorf("invalid request: %w", err)
	}
	id, err := o.Store.CreateRun(ctx, req, cred.Provider)
	if err != nil {
		return 0, fmt.Errorf("creating run: %w", err)
	}
	o.logger().Info("run created", "run_id", id, "gene", req.Gene, "disease", req.Disease)
	return id, nil
}

// Run drives pending run id through processing to completed or failed and
// returns the persisted result. The returned error is non-nil only when the
// record store itself fails.
func (o *Orchestrator) Run(ctx context.Context, id int64, req types.AnalysisRequest, cred types.Credential) (types.Result, error) {
	if err := o.Store.MarkProcessing(ctx, id); err != nil {
		return types.Result{}, fmt.Errorf("marking run %d processing: %w", id, err)
	}
	o.logger().Info("run state changed", "run_id", id, "status", types.RunProcessing)
	o.notify(ctx, id, types.Notification{Status: types.RunProcessing, Message: "Starting analysis..."})

	bundle, err := o.gather(ctx, req)
	if err != nil {
		return o.fail(ctx, id, err)
	}

	res := types.Result{RunID: id}
	if res.Evidence, err = json.Marshal(bundle); err != nil {
		return o.fail(ctx, id, fmt.Errorf("encoding evidence: %w", err))
	}

	if req.Model != "" {
		o.analyze(ctx, &res, cred, req.Model, bundle)
	}

	if err := o.Store.SaveResult(ctx, res); err != nil {
		return res, fmt.Errorf("saving result of run %d: %w", id, err)
	}
	ids := types.ResolvedIDs{
		EnsemblID: bundle.Query.Gene.EnsemblID,
		EFOID:     bundle.Query.Disease.EFOID,
		MONDOID:   bundle.Query.Disease.MONDOID,
	}
	if err := o.Store.FinishRun(ctx, id, types.RunCompleted, ids, o.now()); err != nil {
		return res, fmt.Errorf("completing run %d: %w", id, err)
	}

	o.logger().Info("run state changed", "run_id", id, "status", types.RunCompleted,
		"verdict", res.Verdict, "confidence", res.Confidence)
	o.Metrics.ObserveRun(string(types.RunCompleted), verdictLabel(res.Verdict))

	n := types.Notification{Status: types.RunCompleted, Message: "Analysis complete", Verdict: res.Verdict}
	if res.Verdict != "" {
		c := res.Confidence
		n.Confidence = &c
	}
	o.notify(ctx, id, n)
	return res, nil
}

// gather runs the evidence stage, turning a panic into an error so that a
// broken collaborator fails the run instead of leaving it in processing.
func (o *Orchestrator) gather(ctx context.Context, req types.AnalysisRequest) (bundle *types.EvidenceBundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evidence gathering panicked: %v", r)
		}
	}()
	bundle, err = o.Gatherer.Gather(ctx, req)
	if err == nil && bundle == nil {
		err = errors.New("evidence gathering returned no bundle")
	}
	return bundle, err
}

// analyze fills the verdict fields of res. Analyzer failures are mapped to
// a pipeline verdict and an error message, never returned.
func (o *Orchestrator) analyze(ctx context.Context, res *types.Result, cred types.Credential, model string, bundle *types.EvidenceBundle) {
	v, err := o.callAnalyzer(ctx, cred, model, bundle)
	if err == nil {
		if out, merr := json.Marshal(v); merr == nil {
			res.AnalyzerOutput = out
		}
		res.Verdict = v.Verdict
		res.Confidence = v.Confidence
		return
	}

	verdict, prefix := MapAnalyzerError(err)
	res.Verdict = verdict
	res.Confidence = 0
	res.ErrorMessage = prefix + err.Error()
	o.logger().Warn("analyzer failed", "run_id", res.RunID, "kind", analyzer.KindOf(err), "verdict", verdict, "error", err)
}

func (o *Orchestrator) callAnalyzer(ctx context.Context, cred types.Credential, model string, bundle *types.EvidenceBundle) (v types.AnalyzerVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer panicked: %v", r)
		}
	}()
	if o.Analyzer == nil {
		return v, errors.New("no analyzer configured")
	}
	return o.Analyzer.Analyze(ctx, cred, model, bundle)
}

// MapAnalyzerError returns the persisted verdict and error message prefix
// for an analyzer failure.
func MapAnalyzerError(err error) (types.Verdict, string) {
	switch analyzer.KindOf(err) {
	case analyzer.KindAuthentication:
		return types.VerdictError, "API Authentication Error: "
	case analyzer.KindQuotaExceeded:
		return types.VerdictError, "API Quota Exceeded: "
	case analyzer.KindRateLimited:
		return types.VerdictRetryLater, "API Rate Limited: "
	case analyzer.KindServiceUnavailable:
		return types.VerdictServiceUnavailable, "LLM Service Unavailable: "
	}
	return types.VerdictError, "Analysis Error: "
}

// fail records a failed run with an error verdict.
func (o *Orchestrator) fail(ctx context.Context, id int64, cause error) (types.Result, error) {
	o.logger().Warn("run failed", "run_id", id, "error", cause)
	res := types.Result{
		RunID:        id,
		Verdict:      types.VerdictError,
		Confidence:   0,
		ErrorMessage: cause.Error(),
	}
	if err := o.Store.SaveResult(ctx, res); err != nil {
		return res, fmt.Errorf("saving result of run %d: %w", id, err)
	}
	if err := o.Store.FinishRun(ctx, id, types.RunFailed, types.ResolvedIDs{}, o.now()); err != nil {
		return res, fmt.Errorf("failing run %d: %w", id, err)
	}
	o.logger().Info("run state changed", "run_id", id, "status", types.RunFailed)
	o.Metrics.ObserveRun(string(types.RunFailed), string(types.VerdictError))
	o.notify(ctx, id, types.Notification{Status: types.RunFailed, Message: "Analysis failed"})
	return res, nil
}

func (o *Orchestrator) notify(ctx context.Context, id int64, n types.Notification) {
	if o.Notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger().Warn("notifier panicked", "run_id", id, "panic", r)
		}
	}()
	o.Notifier.Notify(ctx, id, n)
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// verdictLabel keeps the metrics label set closed for runs without a model.
func verdictLabel(v types.Verdict) string {
	if v == "" {
		return "none"
	}
	return string(v)
}

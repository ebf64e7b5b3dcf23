// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Verdict is the categorical judgment about gene-disease association
// strength. The last three values describe pipeline outcomes, not biology.
type Verdict string

const (
	VerdictStrong             Verdict = "strong"
	VerdictModerate           Verdict = "moderate"
	VerdictWeak               Verdict = "weak"
	VerdictNoEvidence         Verdict = "no_evidence"
	VerdictInconclusive       Verdict = "inconclusive"
	VerdictError              Verdict = "error"
	VerdictRetryLater         Verdict = "retry_later"
	VerdictServiceUnavailable Verdict = "service_unavailable"
)

// IsScientific reports whether v is one of the verdicts a model may return.
func (v Verdict) IsScientific() bool {
	switch v {
	case VerdictStrong, VerdictModerate, VerdictWeak, VerdictNoEvidence, VerdictInconclusive:
		return true
	}
	return false
}

// AnalyzerVerdict is the interpreted model output. Rationale holds the full
// structured response as returned by the model. RawText is set only when the
// response could not be parsed as JSON.
type AnalyzerVerdict struct {
	Verdict    Verdict         `json:"verdict" yaml:"verdict"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Rationale  json.RawMessage `json:"rationale,omitempty" yaml:"-"`
	RawText    *string         `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`
}

// RunState is the lifecycle state of one analysis run.
type RunState string

const (
	RunPending    RunState = "pending"
	RunProcessing RunState = "processing"
	RunCompleted  RunState = "completed"
	RunFailed     RunState = "failed"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s RunState) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

// CanTransition reports whether moving from s to next is a legal one-way step.
func (s RunState) CanTransition(next RunState) bool {
	switch s {
	case RunPending:
		return next == RunProcessing
	case RunProcessing:
		return next == RunCompleted || next == RunFailed
	}
	return false
}

// Provider names a supported LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Credential is the provider name and API key supplied for one run. The key
// is held in memory only.
type Credential struct {
	Provider Provider `json:"provider" yaml:"provider"`
	APIKey   string   `json:"-" yaml:"-"`
}

// AnalysisRequest holds the parameters of one gene-disease analysis.
type AnalysisRequest struct {
	Gene         string `json:"gene" yaml:"gene"`
	Disease      string `json:"disease" yaml:"disease"`
	SinceYear    int    `json:"since_year" yaml:"since_year"`
	MaxAbstracts int    `json:"max_abstracts" yaml:"max_abstracts"`
	IncludeGWAS  bool   `json:"include_gwas" yaml:"include_gwas"`
	// Model selects the LLM model. Empty skips the analyzer step.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// Request parameter bounds.
const (
	GeneMaxLength       = 50
	DiseaseMaxLength    = 200
	MinPublicationYear  = 1990
	DefaultSinceYear    = 2015
	DefaultMaxAbstracts = 8
	MinAbstracts        = 1
	MaxAbstracts        = 25
)

// NewAnalysisRequest returns a request with default parameters.
func NewAnalysisRequest(gene, disease string) AnalysisRequest {
	return AnalysisRequest{
		Gene:         gene,
		Disease:      disease,
		SinceYear:    DefaultSinceYear,
		MaxAbstracts: DefaultMaxAbstracts,
		IncludeGWAS:  true,
	}
}

// Validate checks request bounds.
func (r AnalysisRequest) Validate() error {
	if n := utf8.RuneCountInString(r.Gene); n < 1 || n > GeneMaxLength {
		return fmt.Errorf("gene must be 1-%d characters", GeneMaxLength)
	}
	if n := utf8.RuneCountInString(r.Disease); n < 1 || n > DiseaseMaxLength {
		return fmt.Errorf("disease must be 1-%d characters", DiseaseMaxLength)
	}
	if maxYear := time.Now().Year(); r.SinceYear < MinPublicationYear || r.SinceYear > maxYear {
		return fmt.Errorf("since year must be between %d and %d", MinPublicationYear, maxYear)
	}
	if r.MaxAbstracts < MinAbstracts || r.MaxAbstracts > MaxAbstracts {
		return fmt.Errorf("max abstracts must be between %d and %d", MinAbstracts, MaxAbstracts)
	}
	return nil
}

// Run is the persisted record of one analysis run.
type Run struct {
	ID          int64           `json:"id" yaml:"id"`
	Request     AnalysisRequest `json:"request" yaml:"request"`
	Provider    Provider        `json:"provider,omitempty" yaml:"provider,omitempty"`
	Status      RunState        `json:"status" yaml:"status"`
	EnsemblID   string          `json:"ensembl_id,omitempty" yaml:"ensembl_id,omitempty"`
	EFOID       string          `json:"efo_id,omitempty" yaml:"efo_id,omitempty"`
	MONDOID     string          `json:"mondo_id,omitempty" yaml:"mondo_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// ResolvedIDs are the canonical identifiers recorded on a completed run.
type ResolvedIDs struct {
	EnsemblID string
	EFOID     string
	MONDOID   string
}

// Result is the persisted outcome of one run. Evidence and AnalyzerOutput
// hold serialized JSON. Verdict is empty when no model was requested.
type Result struct {
	RunID          int64           `json:"run_id" yaml:"run_id"`
	Evidence       json.RawMessage `json:"evidence,omitempty" yaml:"-"`
	AnalyzerOutput json.RawMessage `json:"analyzer_output,omitempty" yaml:"-"`
	Verdict        Verdict         `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Confidence     float64         `json:"confidence" yaml:"confidence"`
	ErrorMessage   string          `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// Notification is a best-effort status update pushed to observers of a run.
type Notification struct {
	Status     RunState `json:"status"`
	Message    string   `json:"message"`
	Verdict    Verdict  `json:"verdict,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

package types

import "time"

// HTTPConfig holds shared HTTP settings for calls to public data services.
type HTTPConfig struct {
	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "gene-disease/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// ShortTimeout bounds simple lookups (GET). Default 30s.
	ShortTimeout time.Duration `json:"short_timeout" yaml:"short_timeout"`

	// MediumTimeout bounds query-style calls (POST, GraphQL). Default 45s.
	MediumTimeout time.Duration `json:"medium_timeout" yaml:"medium_timeout"`

	// MaxRetries is the number of retries after a failed lookup (default 2,
	// i.e. three attempts in total).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RequestsPerSecond paces outbound calls across all collectors.
	// Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// Endpoints holds base URLs of the public data services.
type Endpoints struct {
	EnsemblLookup   string `json:"ensembl_lookup" yaml:"ensembl_lookup"`
	OLSSearch       string `json:"ols_search" yaml:"ols_search"`
	OpenTargets     string `json:"opentargets" yaml:"opentargets"`
	EuropePMCSearch string `json:"europepmc_search" yaml:"europepmc_search"`
	GWASCatalog     string `json:"gwas_catalog" yaml:"gwas_catalog"`
}

// SourcesConfig holds settings for identifier resolution and evidence collection.
type SourcesConfig struct {
	Endpoints Endpoints `json:"endpoints" yaml:"endpoints"`

	// OLSRows caps the number of ontology search rows (default 25).
	OLSRows int `json:"ols_rows" yaml:"ols_rows"`

	// OpenTargetsPageSize is the associated-targets page size (default 50).
	OpenTargetsPageSize int `json:"opentargets_page_size" yaml:"opentargets_page_size"`

	// LiteraturePageSize caps Europe PMC results per request (default 25).
	LiteraturePageSize int `json:"literature_page_size" yaml:"literature_page_size"`

	// LiteratureFutureYear is the open upper bound of the publication year range.
	LiteratureFutureYear int `json:"literature_future_year" yaml:"literature_future_year"`

	// GWASRecords is the number of GWAS associations kept per run (default 15).
	GWASRecords int `json:"gwas_records" yaml:"gwas_records"`

	// MaxGWASRecords caps the catalog request size (default 1000).
	MaxGWASRecords int `json:"max_gwas_records" yaml:"max_gwas_records"`
}

// RateLimitConfig describes the per-provider sliding window applied before
// every analyzer call.
type RateLimitConfig struct {
	// RequestsPerMinute is the ceiling of calls per window (default 20).
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// Window is the sliding window length (default 60s).
	Window time.Duration `json:"window" yaml:"window"`

	// Buffer is the reference from which retry-after is computed:
	// Buffer minus the age of the oldest call in the window (default 61s).
	Buffer time.Duration `json:"buffer" yaml:"buffer"`
}

// RetryConfig controls backoff for retryable analyzer failures.
type RetryConfig struct {
	// MaxAttempts is the total number of dispatch attempts (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the first backoff delay (default 1s); it doubles per attempt.
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// MaxDelay caps a single backoff delay (default 30s).
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`
}

// AIConfig holds settings for the LLM correlation analyzer.
type AIConfig struct {
	// Provider selects the default provider: openai or anthropic.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the default model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// Timeout bounds one provider call. Default 90s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	OpenAIBaseURL    string `json:"openai_base_url" yaml:"openai_base_url"`
	AnthropicBaseURL string `json:"anthropic_base_url" yaml:"anthropic_base_url"`

	// OpenAIMaxCompletionTokens bounds OpenAI output (default 4000).
	OpenAIMaxCompletionTokens int `json:"openai_max_completion_tokens" yaml:"openai_max_completion_tokens"`

	// AnthropicMaxTokens bounds Anthropic output (default 2000).
	AnthropicMaxTokens int `json:"anthropic_max_tokens" yaml:"anthropic_max_tokens"`

	// AnthropicVersion is sent as the anthropic-version header.
	AnthropicVersion string `json:"anthropic_version" yaml:"anthropic_version"`

	Temperature float32 `json:"temperature" yaml:"temperature"`

	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Retry     RetryConfig     `json:"retry" yaml:"retry"`
}

// StoreConfig holds settings for the run record store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path"`

	// HistoryLimit is the default number of runs listed by history (default 50).
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`
}

// PipelineConfig groups all configuration for the pipeline.
type PipelineConfig struct {
	HTTP     HTTPConfig    `json:"http" yaml:"http"`
	Sources  SourcesConfig `json:"sources" yaml:"sources"`
	Analyzer AIConfig      `json:"analyzer" yaml:"analyzer"`
	Store    StoreConfig   `json:"store" yaml:"store"`
}

// DefaultPipelineConfig returns the configuration used when no file or
// environment override is present.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		HTTP: HTTPConfig{
			UserAgent:     "gene-disease/0.1",
			ShortTimeout:  30 * time.Second,
			MediumTimeout: 45 * time.Second,
			MaxRetries:    2,
		},
		Sources: SourcesConfig{
			Endpoints: Endpoints{
				EnsemblLookup:   "https://rest.ensembl.org/lookup/symbol/homo_sapiens/",
				OLSSearch:       "https://www.ebi.ac.uk/ols4/api/search",
				OpenTargets:     "https://api.platform.opentargets.org/api/v4/graphql",
				EuropePMCSearch: "https://www.ebi.ac.uk/europepmc/webservices/rest/search",
				GWASCatalog:     "https://www.ebi.ac.uk/gwas/rest/api",
			},
			OLSRows:              25,
			OpenTargetsPageSize:  50,
			LiteraturePageSize:   25,
			LiteratureFutureYear: 3000,
			GWASRecords:          15,
			MaxGWASRecords:       1000,
		},
		Analyzer: AIConfig{
			Provider:                  ProviderOpenAI,
			Model:                     "gpt-4o-mini",
			Timeout:                   90 * time.Second,
			OpenAIBaseURL:             "https://api.openai.com/v1",
			AnthropicBaseURL:          "https://api.anthropic.com/v1",
			OpenAIMaxCompletionTokens: 4000,
			AnthropicMaxTokens:        2000,
			AnthropicVersion:          "2023-06-01",
			Temperature:               0.3,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 20,
				Window:            60 * time.Second,
				Buffer:            61 * time.Second,
			},
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   time.Second,
				MaxDelay:    30 * time.Second,
			},
		},
		Store: StoreConfig{
			Path:         "gene-disease.db",
			HistoryLimit: 50,
		},
	}
}

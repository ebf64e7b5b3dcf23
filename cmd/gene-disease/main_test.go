// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gene-disease-engine/internal/store"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("analyzer.provider", "anthropic")
	viper.Set("analyzer.rate_limit.requests_per_minute", 5)
	viper.Set("http.short_timeout", "10s")
	viper.Set("store.path", "/tmp/runs.db")

	cfg, err := loadConfig()
	require.NoError(t, err)

	def := types.DefaultPipelineConfig()
	assert.Equal(t, types.ProviderAnthropic, cfg.Analyzer.Provider)
	assert.Equal(t, 5, cfg.Analyzer.RateLimit.RequestsPerMinute)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShortTimeout)
	assert.Equal(t, "/tmp/runs.db", cfg.Store.Path)
	assert.Equal(t, def.HTTP.MediumTimeout, cfg.HTTP.MediumTimeout)
	assert.Equal(t, def.Sources.Endpoints, cfg.Sources.Endpoints)
}

func TestParseRunID(t *testing.T) {
	id, err := parseRunID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseRunID(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatHistory(t *testing.T) {
	var empty bytes.Buffer
	formatHistory(&empty, nil)
	assert.Equal(t, "No runs yet.\n", empty.String())

	conf := 0.72
	entries := []store.HistoryEntry{
		{
			Run: types.Run{
				ID:        2,
				Request:   types.AnalysisRequest{Gene: "BRCA1", Disease: "a very long disease label that will be truncated", Model: "gpt-4o"},
				Status:    types.RunCompleted,
				CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
			Verdict:    types.VerdictStrong,
			Confidence: &conf,
		},
		{
			Run: types.Run{
				ID:        1,
				Request:   types.AnalysisRequest{Gene: "TP53", Disease: "lung cancer"},
				Status:    types.RunFailed,
				CreatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}
	var buf bytes.Buffer
	formatHistory(&buf, entries)
	out := buf.String()

	assert.Contains(t, out, "strong (0.72)")
	assert.Contains(t, out, "a very long disease label t...")
	assert.Contains(t, out, "gpt-4o")
	assert.Contains(t, out, "\n2 runs\n")
	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[2], "2 "), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "1 "), lines[3])
}

func TestPrintSummaryFailedRun(t *testing.T) {
	var buf bytes.Buffer
	err := printSummary(&buf, 7, types.Result{RunID: 7, Verdict: types.VerdictError, ErrorMessage: "resolving gene: boom"})
	require.Error(t, err)
	assert.Equal(t, "Run 7 failed: resolving gene: boom\n", buf.String())
}

func TestPrintSummaryLimitsSections(t *testing.T) {
	bundle := types.NewEvidenceBundle(
		types.ResolvedGene{Symbol: "TP53", EnsemblID: "ENSG00000141510", Synonyms: []string{"TP53"}},
		types.ResolvedDisease{Label: "lung cancer", EFOID: "EFO_0001071", Synonyms: []string{"lung cancer"}},
	)
	for i := range 8 {
		bundle.GWASCatalog = append(bundle.GWASCatalog, types.GeneticAssociation{AssociationID: string(rune('a' + i))})
		bundle.Literature = append(bundle.Literature, types.LiteratureHit{
			PMID: string(rune('0' + i)), Title: "title", Year: 2020, Sentences: []string{"TP53 and lung cancer."},
		})
	}
	evidence, err := json.Marshal(bundle)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = printSummary(&buf, 3, types.Result{
		RunID:          3,
		Evidence:       evidence,
		AnalyzerOutput: json.RawMessage(`{"verdict":"moderate","confidence":0.6}`),
		Verdict:        types.VerdictModerate,
		Confidence:     0.6,
	})
	require.NoError(t, err)
	out := buf.String()

	assert.Equal(t, 5, strings.Count(out, `"association_id"`))
	assert.Equal(t, 3, strings.Count(out, "- PMID "))
	assert.Contains(t, out, "== LLM verdict ==")
	assert.Contains(t, out, `"verdict": "moderate"`)
	assert.NotContains(t, out, "Open Targets")
}

func TestPrintSummaryAnalyzerError(t *testing.T) {
	evidence, err := json.Marshal(types.NewEvidenceBundle(types.ResolvedGene{Symbol: "TP53"}, types.ResolvedDisease{Label: "x", EFOID: "EFO_1"}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, 4, types.Result{
		Evidence:     evidence,
		Verdict:      types.VerdictRetryLater,
		ErrorMessage: "API Rate Limited: slow down",
	}))
	assert.Contains(t, buf.String(), "verdict: retry_later\nconfidence: 0.00\nerror: API Rate Limited: slow down\n")
}

func TestPrintSummaryWithoutModel(t *testing.T) {
	evidence, err := json.Marshal(types.NewEvidenceBundle(types.ResolvedGene{Symbol: "TP53"}, types.ResolvedDisease{Label: "x", EFOID: "EFO_1"}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, 5, types.Result{Evidence: evidence}))
	assert.Contains(t, buf.String(), "No LLM model specified")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gene-disease-engine/internal/analyzer"
	"github.com/pdiddy/gene-disease-engine/internal/metrics"
	"github.com/pdiddy/gene-disease-engine/internal/store"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// fakeServices serves every public data service plus an OpenAI endpoint
// that rejects the API key.
func fakeServices(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/lookup/symbol/homo_sapiens/", func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/lookup/symbol/homo_sapiens/")
		if symbol != "TP53" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"error":"No valid lookup found for symbol %s"}`, symbol)
			return
		}
		fmt.Fprint(w, `{"id":"ENSG00000141510","display_name":"TP53"}`)
	})
	mux.HandleFunc("/ols4/api/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":{"docs":[
			{"ontology_name":"efo","short_form":"EFO_0001071","label":"lung carcinoma","synonym":["lung cancer","carcinoma of lung"]},
			{"ontology_name":"mondo","obo_id":"MONDO:0008903","label":"lung cancer"}
		]}}`)
	})
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"disease":{"id":"EFO_0001071","name":"lung carcinoma","associatedTargets":{
			"count":1,"rows":[{"score":0.81,"target":{"id":"ENSG00000141510","approvedSymbol":"TP53"},
			"datatypeScores":[{"id":"somatic_mutation","score":0.95}]}]}}}}`)
	})
	mux.HandleFunc("/europepmc/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hitCount":1,"resultList":{"result":[{"id":"111","pmid":"111","title":"TP53 in lung cancer",
			"pubYear":"2021","source":"MED","authorString":"Doe J.",
			"abstractText":"Background text. TP53 mutations are frequent in lung cancer. Unrelated sentence."}]}}`)
	})
	mux.HandleFunc("/gwas/associations/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"_embedded":{"associations":[]}}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func endToEnd(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	ts := fakeServices(t)

	cfg := types.DefaultPipelineConfig()
	cfg.HTTP.MaxRetries = 1
	cfg.Sources.Endpoints = types.Endpoints{
		EnsemblLookup:   ts.URL + "/lookup/symbol/homo_sapiens/",
		OLSSearch:       ts.URL + "/ols4/api/search",
		OpenTargets:     ts.URL + "/graphql",
		EuropePMCSearch: ts.URL + "/europepmc/search",
		GWASCatalog:     ts.URL + "/gwas",
	}
	cfg.Analyzer.OpenAIBaseURL = ts.URL + "/v1"
	cfg.Store.Path = filepath.Join(t.TempDir(), "runs.db")

	st, err := store.Open(cfg.Store)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	svc := analyzer.NewService(cfg.Analyzer, m, nil)
	svc.HTTPClient = ts.Client()

	return &Orchestrator{
		Store:    st,
		Gatherer: NewGatherer(cfg, m, nil),
		Analyzer: svc,
		Metrics:  m,
	}, st
}

func TestEndToEndAuthenticationFailureCompletes(t *testing.T) {
	o, st := endToEnd(t)
	ctx := context.Background()

	id, err := o.Submit(ctx, modelRequest(), types.Credential{Provider: types.ProviderOpenAI, APIKey: "sk-wrong"})
	require.NoError(t, err)
	o.Wait()

	run, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.RunCompleted, run.Status)
	assert.Equal(t, "ENSG00000141510", run.EnsemblID)
	assert.Equal(t, "EFO_0001071", run.EFOID)
	assert.Equal(t, "MONDO_0008903", run.MONDOID)
	require.NotNil(t, run.CompletedAt)

	res, err := st.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictError, res.Verdict)
	assert.Equal(t, 0.0, res.Confidence)
	assert.True(t, strings.HasPrefix(res.ErrorMessage, "API Authentication Error: Invalid OpenAI API key"), res.ErrorMessage)
	require.NotEmpty(t, res.Evidence)

	var bundle types.EvidenceBundle
	require.NoError(t, json.Unmarshal(res.Evidence, &bundle))
	assert.Equal(t, "TP53", bundle.Query.Gene.Symbol)
	require.NotNil(t, bundle.OpenTargets)
	assert.Equal(t, 0.81, bundle.OpenTargets.OverallScore)
	require.Len(t, bundle.Literature, 1)
	assert.Equal(t, []string{"TP53 mutations are frequent in lung cancer."}, bundle.Literature[0].Sentences)
	assert.Empty(t, bundle.GWASCatalog)
}

func TestEndToEndResolutionFailureFails(t *testing.T) {
	o, st := endToEnd(t)
	ctx := context.Background()

	req := modelRequest()
	req.Gene = "NOTAGENE"
	id, res, err := o.Execute(ctx, req, types.Credential{Provider: types.ProviderOpenAI, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, types.VerdictError, res.Verdict)
	assert.Contains(t, res.ErrorMessage, "NOTAGENE")

	run, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.RunFailed, run.Status)
	require.NotNil(t, run.CompletedAt)

	stored, err := st.GetResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictError, stored.Verdict)
	assert.Equal(t, 0.0, stored.Confidence)
}

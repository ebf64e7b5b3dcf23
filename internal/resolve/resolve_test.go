// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gene-disease-engine/internal/httputil"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func newTestResolver(ts *httptest.Server) *Resolver {
	cfg := types.DefaultPipelineConfig().Sources
	cfg.Endpoints.EnsemblLookup = ts.URL + "/lookup/symbol/homo_sapiens/"
	cfg.Endpoints.OLSSearch = ts.URL + "/ols4/api/search"
	client := httputil.NewClient(types.HTTPConfig{MaxRetries: 1}, nil)
	return New(client, cfg, nil)
}

// --- ResolveGene ---

func TestResolveGene(t *testing.T) {
	tests := []struct {
		name         string
		symbol       string
		body         string
		wantID       string
		wantSynonyms []string
	}{
		{
			name:         "display name equals symbol",
			symbol:       "TP53",
			body:         `{"id":"ENSG00000141510","display_name":"TP53"}`,
			wantID:       "ENSG00000141510",
			wantSynonyms: []string{"TP53"},
		},
		{
			name:         "display name differs",
			symbol:       "p53",
			body:         `{"id":"ENSG00000141510","display_name":"TP53"}`,
			wantID:       "ENSG00000141510",
			wantSynonyms: []string{"p53", "TP53"},
		},
		{
			name:         "missing display name",
			symbol:       "IL22",
			body:         `{"id":"ENSG00000127318"}`,
			wantID:       "ENSG00000127318",
			wantSynonyms: []string{"IL22"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			gene, err := newTestResolver(ts).ResolveGene(context.Background(), tt.symbol)
			require.NoError(t, err)

			assert.Equal(t, "/lookup/symbol/homo_sapiens/"+tt.symbol, path)
			assert.Equal(t, tt.symbol, gene.Symbol)
			assert.Equal(t, tt.wantID, gene.EnsemblID)
			if diff := cmp.Diff(tt.wantSynonyms, gene.Synonyms); diff != "" {
				t.Errorf("synonyms mismatch (-want +got):\n%s", diff)
			}
			assert.Contains(t, gene.Synonyms, tt.symbol)
		})
	}
}

func TestResolveGeneFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"service error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"No valid lookup found for symbol NOPE"}`)
		}},
		{"no identifier", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"display_name":"NOPE"}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			_, err := newTestResolver(ts).ResolveGene(context.Background(), "NOPE")
			var ue *UnresolvedGeneError
			require.True(t, errors.As(err, &ue), "got %v", err)
			assert.Equal(t, "NOPE", ue.Symbol)
			assert.Contains(t, err.Error(), "NOPE")
		})
	}
}

// --- ResolveDisease ---

func TestResolveDiseaseRequestParams(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{"response":{"docs":[{"ontology_name":"efo","short_form":"EFO_0001071","label":"lung carcinoma"}]}}`)
	}))
	defer ts.Close()

	_, err := newTestResolver(ts).ResolveDisease(context.Background(), "lung cancer")
	require.NoError(t, err)

	q := captured.URL.Query()
	assert.Equal(t, "lung cancer", q.Get("q"))
	assert.Equal(t, "efo,mondo", q.Get("ontology"))
	assert.Equal(t, "class", q.Get("type"))
	assert.Equal(t, "25", q.Get("rows"))
	assert.Equal(t, "false", q.Get("exact"))
}

func TestResolveDisease(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantEFO      string
		wantMONDO    string
		wantSynonyms []string
	}{
		{
			name: "first match per ontology wins",
			body: `{"response":{"docs":[
				{"ontology_name":"efo","short_form":"EFO_0001071","label":"lung carcinoma","synonym":["lung cancer","carcinoma of lung"]},
				{"ontology_name":"efo","short_form":"EFO_0000001","label":"better scored but later"},
				{"ontology_name":"mondo","short_form":"MONDO_0008903","label":"lung cancer","synonym":["lung neoplasm"]},
				{"ontology_name":"mondo","short_form":"MONDO_9999999"}
			]}}`,
			wantEFO:      "EFO_0001071",
			wantMONDO:    "MONDO_0008903",
			wantSynonyms: []string{"lung cancer", "carcinoma of lung", "lung neoplasm"},
		},
		{
			name: "mondo only",
			body: `{"response":{"docs":[
				{"ontology_prefix":"MONDO","obo_id":"MONDO:0005148","label":"type 2 diabetes mellitus","synonyms":["T2D"]}
			]}}`,
			wantMONDO:    "MONDO_0005148",
			wantSynonyms: []string{"lung cancer", "T2D"},
		},
		{
			name:         "embedded terms envelope with bare short form",
			body:         `{"_embedded":{"terms":[{"ontology":"efo","short_form":"0000311","label":"cancer"}]}}`,
			wantEFO:      "EFO_0000311",
			wantSynonyms: []string{"lung cancer"},
		},
		{
			name: "other ontologies ignored",
			body: `{"response":{"docs":[
				{"ontology_name":"hp","short_form":"HP_0100526"},
				{"ontology_name":"efo","short_form":"EFO_0001071"}
			]}}`,
			wantEFO:      "EFO_0001071",
			wantSynonyms: []string{"lung cancer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			d, err := newTestResolver(ts).ResolveDisease(context.Background(), "lung cancer")
			require.NoError(t, err)

			assert.Equal(t, "lung cancer", d.Label)
			assert.Equal(t, tt.wantEFO, d.EFOID)
			assert.Equal(t, tt.wantMONDO, d.MONDOID)
			assert.False(t, d.EFOID == "" && d.MONDOID == "")
			if diff := cmp.Diff(tt.wantSynonyms, d.Synonyms); diff != "" {
				t.Errorf("synonyms mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveDiseaseUnresolved(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"zero rows", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"response":{"numFound":0,"docs":[]}}`)
		}},
		{"only other ontologies", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"response":{"docs":[{"ontology_name":"hp","short_form":"HP_1"}]}}`)
		}},
		{"service failure", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			_, err := newTestResolver(ts).ResolveDisease(context.Background(), "made up disease")
			var ue *UnresolvedDiseaseError
			require.True(t, errors.As(err, &ue), "got %v", err)
			assert.True(t, strings.Contains(err.Error(), "made up disease"))
		})
	}
}

func TestNormalizeOntologyID(t *testing.T) {
	tests := []struct {
		prefix, raw, want string
	}{
		{"EFO", "EFO_0001071", "EFO_0001071"},
		{"EFO", "0001071", "EFO_0001071"},
		{"EFO", "EFO:0001071", "EFO_0001071"},
		{"MONDO", "MONDO_0005148", "MONDO_0005148"},
		{"MONDO", "MONDO:0005148", "MONDO_0005148"},
		{"MONDO", "0005148", "MONDO_0005148"},
		{"EFO", "http://www.ebi.ac.uk/efo/EFO_0001071", "EFO_0001071"},
		{"EFO", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOntologyID(tt.prefix, tt.raw))
		})
	}
}

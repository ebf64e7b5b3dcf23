// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gene-disease-engine/internal/httputil"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// testSources returns a SourcesConfig whose endpoints all point at ts.
func testSources(ts *httptest.Server) types.SourcesConfig {
	cfg := types.DefaultPipelineConfig().Sources
	cfg.Endpoints = types.Endpoints{
		EnsemblLookup:   ts.URL + "/lookup/symbol/homo_sapiens/",
		OLSSearch:       ts.URL + "/ols4/api/search",
		OpenTargets:     ts.URL + "/graphql",
		EuropePMCSearch: ts.URL + "/europepmc/search",
		GWASCatalog:     ts.URL + "/gwas",
	}
	return cfg
}

func testClient() *httputil.Client {
	return httputil.NewClient(types.HTTPConfig{MaxRetries: 1}, nil)
}

func TestBuildLiteratureQuery(t *testing.T) {
	tests := []struct {
		name    string
		gene    []string
		disease []string
		want    string
	}{
		{
			name:    "quotes multi-word terms",
			gene:    []string{"TP53", "tumor protein p53"},
			disease: []string{"lung cancer", "NSCLC"},
			want:    `(TP53 OR "tumor protein p53") AND ("lung cancer" OR NSCLC) AND (PUB_YEAR:[2015 TO 3000])`,
		},
		{
			name:    "caps gene and disease terms",
			gene:    []string{"g1", "g2", "g3", "g4", "g5", "g6"},
			disease: []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7", "d8", "d9"},
			want: "(g1 OR g2 OR g3 OR g4 OR g5) AND (d1 OR d2 OR d3 OR d4 OR d5 OR d6 OR d7 OR d8) " +
				"AND (PUB_YEAR:[2015 TO 3000])",
		},
		{
			name:    "skips blanks",
			gene:    []string{"", "BRCA1"},
			disease: []string{"breast cancer", " "},
			want:    `(BRCA1) AND ("breast cancer") AND (PUB_YEAR:[2015 TO 3000])`,
		},
		{
			name:    "no disease terms",
			gene:    []string{"BRCA1"},
			disease: nil,
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildLiteratureQuery(tt.gene, tt.disease, 2015, 3000))
		})
	}
}

const europePMCBody = `{
  "hitCount": 4,
  "resultList": {"result": [
    {"id": "111", "pmid": "111", "title": "TP53 in lung cancer", "pubYear": "2019", "source": "MED",
     "authorString": "Smith J, Doe A.", "abstractText": "Background. TP53 mutations are frequent in lung cancer. Other text."},
    {"id": "222", "pmid": "222", "title": "Unrelated", "pubYear": "2020", "source": "MED",
     "authorString": "Roe B.", "abstractText": "Nothing to see here."},
    {"id": "PPR333", "title": "TP53 and lung cancer risk", "pubYear": "2021", "source": "PPR",
     "authorString": "Lee C.", "abstractText": "A preprint."},
    {"id": "444", "pmid": "444", "title": "More", "pubYear": "2022", "source": "MED",
     "authorString": "Kim D.", "abstractText": "TP53 loss in lung cancer again."}
  ]}
}`

func TestEuropePMCLiterature(t *testing.T) {
	var captured *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, europePMCBody)
	}))
	defer ts.Close()

	src := &EuropePMC{Client: testClient(), Config: testSources(ts)}
	hits, err := src.Literature(context.Background(), LiteratureQuery{
		GeneTerms:    []string{"TP53"},
		DiseaseTerms: []string{"lung cancer"},
		SinceYear:    2018,
		MaxRecords:   2,
	})
	require.NoError(t, err)

	q := captured.URL.Query()
	assert.Equal(t, "/europepmc/search", captured.URL.Path)
	assert.Equal(t, `(TP53) AND ("lung cancer") AND (PUB_YEAR:[2018 TO 3000])`, q.Get("query"))
	assert.Equal(t, "core", q.Get("resultType"))
	assert.Equal(t, "2", q.Get("pageSize"))
	assert.Equal(t, "json", q.Get("format"))

	require.Len(t, hits, 2, "unrelated hit dropped, capped at MaxRecords")

	assert.Equal(t, "111", hits[0].PMID)
	assert.Equal(t, 2019, hits[0].Year)
	assert.Equal(t, "Smith J, Doe A.", hits[0].Author)
	assert.Equal(t, []string{"TP53 mutations are frequent in lung cancer."}, hits[0].Sentences)
	assert.Equal(t, "https://europepmc.org/abstract/MED/111", hits[0].URI)

	assert.Equal(t, "PPR333", hits[1].PMID, "falls back to id when pmid is absent")
	assert.Equal(t, []string{"TP53 and lung cancer risk"}, hits[1].Sentences, "title used as sole evidence")

	for _, h := range hits {
		assert.NotEmpty(t, h.Sentences)
		assert.LessOrEqual(t, len(h.Sentences), maxSentencesPerHit)
	}
}

func TestEuropePMCLiteratureMissingYear(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"hitCount": 2, "resultList": {"result": [
    {"id": "555", "pmid": "555", "title": "TP53 in lung cancer", "pubYear": "", "source": "MED",
     "authorString": "Ng E.", "abstractText": "TP53 mutations drive lung cancer."},
    {"id": "666", "pmid": "666", "title": "TP53 and lung cancer", "pubYear": 2023, "source": "MED",
     "authorString": "Ode F.", "abstractText": "TP53 status predicts lung cancer outcome."}
  ]}}`)
	}))
	defer ts.Close()

	src := &EuropePMC{Client: testClient(), Config: testSources(ts)}
	hits, err := src.Literature(context.Background(), LiteratureQuery{
		GeneTerms:    []string{"TP53"},
		DiseaseTerms: []string{"lung cancer"},
		SinceYear:    2015,
		MaxRecords:   8,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "555", hits[0].PMID)
	assert.Zero(t, hits[0].Year, "empty pubYear leaves the year unset")
	assert.Equal(t, []string{"TP53 mutations drive lung cancer."}, hits[0].Sentences)
	assert.Equal(t, 2023, hits[1].Year, "numeric pubYear is accepted")
}

func TestEuropePMCLiteratureFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	src := &EuropePMC{Client: testClient(), Config: testSources(ts)}
	hits, err := src.Literature(context.Background(), LiteratureQuery{
		GeneTerms:    []string{"TP53"},
		DiseaseTerms: []string{"lung cancer"},
		SinceYear:    2015,
		MaxRecords:   8,
	})
	assert.Error(t, err)
	assert.Nil(t, hits)
}

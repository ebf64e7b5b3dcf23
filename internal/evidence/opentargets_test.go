// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

var (
	tp53       = types.ResolvedGene{Symbol: "TP53", EnsemblID: "ENSG00000141510", Synonyms: []string{"TP53"}}
	lungCancer = types.ResolvedDisease{Label: "lung cancer", EFOID: "EFO_0001071", MONDOID: "MONDO_0008903",
		Synonyms: []string{"lung cancer", "lung carcinoma"}}
)

// otServer serves pages of associated targets keyed by page index and
// records the variables of every request.
type otServer struct {
	mu    sync.Mutex
	count int
	pages map[int][]string
	vars  []map[string]any
}

func (s *otServer) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.vars = append(s.vars, req.Variables)
	s.mu.Unlock()

	index := int(req.Variables["index"].(float64))
	rows := ""
	for i, id := range s.pages[index] {
		if i > 0 {
			rows += ","
		}
		rows += fmt.Sprintf(`{"score":0.%d,"target":{"id":%q,"approvedSymbol":"X"},"datatypeScores":[{"id":"literature","score":0.5},{"id":"somatic_mutation","score":0.9}]}`, 9-i, id)
	}
	fmt.Fprintf(w, `{"data":{"disease":{"id":"EFO_0001071","name":"lung carcinoma","associatedTargets":{"count":%d,"rows":[%s]}}}}`, s.count, rows)
}

func TestOpenTargetsAssociationFoundOnSecondPage(t *testing.T) {
	srv := &otServer{
		count: 4,
		pages: map[int][]string{
			0: {"ENSG_A", "ENSG_B"},
			1: {"ENSG_C", "ENSG00000141510"},
		},
	}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	cfg := testSources(ts)
	cfg.OpenTargetsPageSize = 2
	src := &OpenTargets{Client: testClient(), Config: cfg}

	score, err := src.Association(context.Background(), tp53, lungCancer)
	require.NoError(t, err)
	require.NotNil(t, score)

	assert.InDelta(t, 0.8, score.OverallScore, 1e-9)
	assert.Equal(t, types.EntityRef{ID: "EFO_0001071", Name: "lung carcinoma"}, score.Disease)
	assert.Equal(t, "ENSG00000141510", score.Target.ID)
	assert.Equal(t, []types.DatatypeScore{{ID: "literature", Score: 0.5}, {ID: "somatic_mutation", Score: 0.9}}, score.DatatypeScores)

	require.Len(t, srv.vars, 2)
	assert.Equal(t, "EFO_0001071", srv.vars[0]["efoId"])
	assert.Equal(t, float64(2), srv.vars[0]["size"])
	assert.Equal(t, float64(1), srv.vars[1]["index"])
}

func TestOpenTargetsAssociationExhausted(t *testing.T) {
	srv := &otServer{
		count: 3,
		pages: map[int][]string{
			0: {"ENSG_A", "ENSG_B"},
			1: {"ENSG_C"},
		},
	}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	cfg := testSources(ts)
	cfg.OpenTargetsPageSize = 2
	src := &OpenTargets{Client: testClient(), Config: cfg}

	score, err := src.Association(context.Background(), tp53, lungCancer)
	assert.NoError(t, err)
	assert.Nil(t, score)
	assert.Len(t, srv.vars, 2, "stops once index*size reaches count")
}

func TestOpenTargetsAssociationAbsorbsFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"graphql error", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"data":{"disease":null},"errors":[{"message":"invalid efoId"}]}`)
		}},
		{"unknown disease", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"data":{"disease":null}}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			src := &OpenTargets{Client: testClient(), Config: testSources(ts)}
			score, err := src.Association(context.Background(), tp53, lungCancer)
			assert.NoError(t, err)
			assert.Nil(t, score)
		})
	}
}

func TestOpenTargetsUsesMONDOWithoutEFO(t *testing.T) {
	srv := &otServer{count: 0, pages: map[int][]string{}}
	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	defer ts.Close()

	src := &OpenTargets{Client: testClient(), Config: testSources(ts)}
	disease := types.ResolvedDisease{Label: "x", MONDOID: "MONDO_0005148"}
	_, err := src.Association(context.Background(), tp53, disease)
	require.NoError(t, err)
	require.Len(t, srv.vars, 1)
	assert.Equal(t, "MONDO_0005148", srv.vars[0]["efoId"])
}

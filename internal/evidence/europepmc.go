// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

const (
	maxGeneTerms    = 5
	maxDiseaseTerms = 8
)

// LiteratureQuery parameterizes one literature search.
type LiteratureQuery struct {
	GeneTerms    []string
	DiseaseTerms []string
	SinceYear    int
	MaxRecords   int
}

// EuropePMC collects literature hits from the Europe PMC REST search.
type EuropePMC struct {
	Client JSONClient
	Config types.SourcesConfig
}

// Name returns the source identifier.
func (s *EuropePMC) Name() string { return SourceLiterature }

// Literature searches Europe PMC for abstracts mentioning both the gene and
// the disease since q.SinceYear and reduces each to its evidence sentences.
// Hits without a qualifying sentence are dropped. Unlike the other
// collectors, a failed search is returned as an error; the aggregator turns
// it into an empty fragment.
func (s *EuropePMC) Literature(ctx context.Context, q LiteratureQuery) ([]types.LiteratureHit, error) {
	futureYear := s.Config.LiteratureFutureYear
	if futureYear <= 0 {
		futureYear = 3000
	}
	pageSize := s.Config.LiteraturePageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	if q.MaxRecords < pageSize {
		pageSize = q.MaxRecords
	}

	query := BuildLiteratureQuery(q.GeneTerms, q.DiseaseTerms, q.SinceYear, futureYear)
	if query == "" {
		return nil, fmt.Errorf("empty literature query")
	}
	params := url.Values{
		"query":      {query},
		"resultType": {"core"},
		"pageSize":   {strconv.Itoa(pageSize)},
		"format":     {"json"},
	}

	var data europePMCResponse
	if err := s.Client.GetJSON(ctx, s.Config.Endpoints.EuropePMCSearch, params, &data); err != nil {
		return nil, fmt.Errorf("Europe PMC search: %w", err)
	}

	genePat := termPattern(q.GeneTerms)
	diseasePat := termPattern(q.DiseaseTerms)

	hits := []types.LiteratureHit{}
	for _, r := range data.ResultList.Result {
		if len(hits) >= q.MaxRecords {
			break
		}
		sentences := evidenceSentences(r.Title, r.AbstractText, genePat, diseasePat)
		if len(sentences) == 0 {
			continue
		}
		pmid := r.PMID
		if pmid == "" {
			pmid = r.ID
		}
		hit := types.LiteratureHit{
			PMID:      pmid,
			Title:     r.Title,
			Year:      r.year(),
			Source:    r.Source,
			Author:    r.AuthorString,
			Sentences: sentences,
		}
		if pmid != "" {
			hit.URI = "https://europepmc.org/abstract/MED/" + pmid
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// BuildLiteratureQuery builds the Europe PMC boolean query: up to five gene
// terms OR-joined, AND up to eight disease terms OR-joined, AND a publication
// year range. Multi-word terms are quoted.
func BuildLiteratureQuery(geneTerms, diseaseTerms []string, sinceYear, futureYear int) string {
	gene := orJoin(geneTerms, maxGeneTerms)
	disease := orJoin(diseaseTerms, maxDiseaseTerms)
	if gene == "" || disease == "" {
		return ""
	}
	return fmt.Sprintf("(%s) AND (%s) AND (PUB_YEAR:[%d TO %d])", gene, disease, sinceYear, futureYear)
}

func orJoin(terms []string, limit int) string {
	var parts []string
	for _, t := range terms {
		if len(parts) == limit {
			break
		}
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, " ") {
			t = `"` + t + `"`
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " OR ")
}

// Europe PMC REST JSON structures.
type europePMCResponse struct {
	HitCount   int `json:"hitCount"`
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

type europePMCResult struct {
	ID           string     `json:"id"`
	PMID         string     `json:"pmid"`
	Title        string     `json:"title"`
	PubYear      flexString `json:"pubYear"`
	Source       string     `json:"source"`
	AuthorString string     `json:"authorString"`
	AbstractText string     `json:"abstractText"`
}

func (r europePMCResult) year() int {
	y, err := strconv.Atoi(strings.TrimSpace(string(r.PubYear)))
	if err != nil {
		return 0
	}
	return y
}

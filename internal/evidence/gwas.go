// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// GWASCatalog collects genetic associations from the NHGRI-EBI GWAS Catalog
// REST API.
type GWASCatalog struct {
	Client JSONClient
	Config types.SourcesConfig
	Logger *slog.Logger
}

// Name returns the source identifier.
func (s *GWASCatalog) Name() string { return SourceGWAS }

// Genetic searches associations by trait and keeps those whose mapped genes
// contain gene.Symbol exactly. Any failure yields an empty result, never an
// error.
func (s *GWASCatalog) Genetic(ctx context.Context, gene types.ResolvedGene, disease types.ResolvedDisease) ([]types.GeneticAssociation, error) {
	limit := s.Config.GWASRecords
	if limit <= 0 {
		limit = 15
	}
	size := limit
	if s.Config.MaxGWASRecords > 0 && size > s.Config.MaxGWASRecords {
		size = s.Config.MaxGWASRecords
	}
	trait := disease.EFOID
	if trait == "" {
		trait = disease.Label
	}

	params := url.Values{
		"efoTrait": {trait},
		"size":     {strconv.Itoa(size)},
	}
	endpoint := strings.TrimSuffix(s.Config.Endpoints.GWASCatalog, "/") + "/associations/search"

	var data gwasResponse
	if err := s.Client.GetJSON(ctx, endpoint, params, &data); err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("GWAS search failed", "source", SourceGWAS, "trait", trait, "error", err)
		return []types.GeneticAssociation{}, nil
	}

	out := []types.GeneticAssociation{}
	for _, a := range data.Embedded.Associations {
		if len(out) >= limit {
			break
		}
		if !a.mapsGene(gene.Symbol) {
			continue
		}
		out = append(out, a.toAssociation())
	}
	return out, nil
}

// GWAS Catalog REST JSON structures.
type gwasResponse struct {
	Embedded struct {
		Associations []gwasAssociation `json:"associations"`
	} `json:"_embedded"`
}

type gwasAssociation struct {
	AssociationID  flexString  `json:"associationId"`
	PValueMantissa *float64    `json:"pvalueMantissa"`
	PValueExponent *int        `json:"pvalueExponent"`
	OrPerCopyNum   *float64    `json:"orPerCopyNum"`
	BetaNum        *float64    `json:"betaNum"`
	CI             flexString  `json:"ci"`
	PubmedID       flexString  `json:"pubmedId"`
	Trait          flexString  `json:"trait"`
	StudyAccession flexString  `json:"studyAccession"`
	Loci           []gwasLocus `json:"loci"`
	Links          struct {
		Self struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"_links"`
}

type gwasLocus struct {
	AuthorReportedGenes  geneList `json:"authorReportedGenes"`
	StrongestRiskAlleles []struct {
		EnsemblGenes []struct {
			GeneName string `json:"geneName"`
		} `json:"ensemblGenes"`
	} `json:"strongestRiskAlleles"`
}

// mapsGene reports whether symbol is among the author-reported or
// risk-allele-mapped genes of any locus. Matching is exact and case-sensitive.
func (a gwasAssociation) mapsGene(symbol string) bool {
	for _, locus := range a.Loci {
		for _, g := range locus.AuthorReportedGenes {
			if g == symbol {
				return true
			}
		}
		for _, ra := range locus.StrongestRiskAlleles {
			for _, g := range ra.EnsemblGenes {
				if g.GeneName == symbol {
					return true
				}
			}
		}
	}
	return false
}

func (a gwasAssociation) toAssociation() types.GeneticAssociation {
	effect := a.OrPerCopyNum
	if effect == nil || *effect == 0 {
		effect = a.BetaNum
	}
	return types.GeneticAssociation{
		AssociationID:  string(a.AssociationID),
		PValueMantissa: a.PValueMantissa,
		PValueExponent: a.PValueExponent,
		OROrBeta:       effect,
		CI:             string(a.CI),
		PMID:           string(a.PubmedID),
		Trait:          string(a.Trait),
		StudyAccession: string(a.StudyAccession),
		URI:            a.Links.Self.Href,
	}
}

// geneList decodes author-reported genes given as a list of names, a list of
// {"geneName": ...} objects, or a single comma-separated string.
type geneList []string

func (g *geneList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*g = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var out geneList
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*g = out
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(geneList, 0, len(items))
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			out = append(out, name)
			continue
		}
		var obj struct {
			GeneName string `json:"geneName"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.GeneName != "" {
			out = append(out, obj.GeneName)
		}
	}
	*g = out
	return nil
}

// flexString accepts a JSON string or number and keeps its text form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	*f = flexString(n.String())
	return nil
}

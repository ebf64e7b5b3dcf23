// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the gene-disease pipeline.
// Covers identifier resolution results, evidence fragments and the evidence
// bundle, analyzer verdicts, run records, and pipeline configuration.
package types

// ResolvedGene is the outcome of resolving a gene symbol against Ensembl.
// Synonyms always include the input symbol.
type ResolvedGene struct {
	Symbol    string   `json:"symbol" yaml:"symbol"`
	EnsemblID string   `json:"ensembl_id" yaml:"ensembl_id"`
	Synonyms  []string `json:"synonyms" yaml:"synonyms"`
}

// ResolvedDisease is the outcome of resolving a disease label against the
// EFO and MONDO ontologies. At least one of EFOID and MONDOID is non-empty.
type ResolvedDisease struct {
	Label    string   `json:"label" yaml:"label"`
	EFOID    string   `json:"efo_id,omitempty" yaml:"efo_id,omitempty"`
	MONDOID  string   `json:"mondo_id,omitempty" yaml:"mondo_id,omitempty"`
	Synonyms []string `json:"synonyms" yaml:"synonyms"`
}

// OntologyID returns the identifier used for disease-keyed queries: EFO when
// present, MONDO otherwise.
func (d ResolvedDisease) OntologyID() string {
	if d.EFOID != "" {
		return d.EFOID
	}
	return d.MONDOID
}

// DatatypeScore is one evidence-type sub-score of an association.
type DatatypeScore struct {
	ID    string  `json:"id" yaml:"id"`
	Score float64 `json:"score" yaml:"score"`
}

// EntityRef names an entity by id and optional display name.
type EntityRef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// AssociationScore is the Open Targets fragment: the overall target-disease
// score plus per-datatype sub-scores.
type AssociationScore struct {
	OverallScore   float64         `json:"overall_association_score" yaml:"overall_association_score"`
	DatatypeScores []DatatypeScore `json:"datatype_scores" yaml:"datatype_scores"`
	Disease        EntityRef       `json:"disease" yaml:"disease"`
	Target         EntityRef       `json:"target" yaml:"target"`
}

// LiteratureHit is one abstract that mentions both the gene and the disease,
// reduced to at most three attributable sentences.
type LiteratureHit struct {
	PMID      string   `json:"pmid" yaml:"pmid"`
	Title     string   `json:"title" yaml:"title"`
	Year      int      `json:"year,omitempty" yaml:"year,omitempty"`
	Source    string   `json:"source" yaml:"source"`
	Author    string   `json:"author" yaml:"author"`
	Sentences []string `json:"sentences" yaml:"sentences"`
	URI       string   `json:"uri,omitempty" yaml:"uri,omitempty"`
}

// GeneticAssociation is one GWAS Catalog association whose mapped genes
// contain the target gene symbol.
type GeneticAssociation struct {
	AssociationID  string   `json:"association_id" yaml:"association_id"`
	PValueMantissa *float64 `json:"pvalue_mantissa,omitempty" yaml:"pvalue_mantissa,omitempty"`
	PValueExponent *int     `json:"pvalue_exponent,omitempty" yaml:"pvalue_exponent,omitempty"`
	OROrBeta       *float64 `json:"or_or_beta,omitempty" yaml:"or_or_beta,omitempty"`
	CI             string   `json:"ci,omitempty" yaml:"ci,omitempty"`
	PMID           string   `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	Trait          string   `json:"trait,omitempty" yaml:"trait,omitempty"`
	StudyAccession string   `json:"study_accession,omitempty" yaml:"study_accession,omitempty"`
	URI            string   `json:"uri,omitempty" yaml:"uri,omitempty"`
}

// GeneQuery is the gene half of the bundle's query block.
type GeneQuery struct {
	Symbol    string `json:"symbol" yaml:"symbol"`
	EnsemblID string `json:"ensembl_id" yaml:"ensembl_id"`
}

// DiseaseQuery is the disease half of the bundle's query block.
type DiseaseQuery struct {
	Label   string `json:"label" yaml:"label"`
	EFOID   string `json:"efo_id" yaml:"efo_id"`
	MONDOID string `json:"mondo_id,omitempty" yaml:"mondo_id,omitempty"`
}

// QueryBlock identifies what an evidence bundle was gathered for.
type QueryBlock struct {
	Gene    GeneQuery    `json:"gene" yaml:"gene"`
	Disease DiseaseQuery `json:"disease" yaml:"disease"`
}

// SynonymSets carries the synonym lists used to build text queries.
type SynonymSets struct {
	Gene    []string `json:"gene" yaml:"gene"`
	Disease []string `json:"disease" yaml:"disease"`
}

// EvidenceBundle is the unified, possibly partial, evidence for one run.
// A nil OpenTargets or an empty slice means the source failed or returned
// nothing. The query block is always populated.
type EvidenceBundle struct {
	Query       QueryBlock           `json:"query" yaml:"query"`
	Synonyms    SynonymSets          `json:"synonyms" yaml:"synonyms"`
	OpenTargets *AssociationScore    `json:"opentargets" yaml:"opentargets"`
	GWASCatalog []GeneticAssociation `json:"gwas_catalog" yaml:"gwas_catalog"`
	Literature  []LiteratureHit      `json:"literature" yaml:"literature"`
}

// NewEvidenceBundle builds the query block and synonym sets from resolved
// identifiers. Fragment slices start empty rather than nil so the JSON form
// always carries arrays.
func NewEvidenceBundle(gene ResolvedGene, disease ResolvedDisease) *EvidenceBundle {
	return &EvidenceBundle{
		Query: QueryBlock{
			Gene:    GeneQuery{Symbol: gene.Symbol, EnsemblID: gene.EnsemblID},
			Disease: DiseaseQuery{Label: disease.Label, EFOID: disease.EFOID, MONDOID: disease.MONDOID},
		},
		Synonyms: SynonymSets{
			Gene:    append([]string(nil), gene.Synonyms...),
			Disease: append([]string(nil), disease.Synonyms...),
		},
		GWASCatalog: []GeneticAssociation{},
		Literature:  []LiteratureHit{},
	}
}

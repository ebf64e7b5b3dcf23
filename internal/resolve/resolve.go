// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps free-text gene symbols and disease labels to
// canonical identifiers and synonym sets.
//
// Selection is deliberately first-match: the first Ensembl id returned for a
// symbol and the first EFO and MONDO rows returned by OLS, in service order.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// JSONClient is the subset of httputil.Client the resolver needs.
type JSONClient interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error
}

// UnresolvedGeneError reports that a gene symbol could not be mapped to an
// Ensembl id.
type UnresolvedGeneError struct {
	Symbol string
	Err    error
}

func (e *UnresolvedGeneError) Error() string {
	return fmt.Sprintf("could not resolve gene symbol %q via Ensembl", e.Symbol)
}

func (e *UnresolvedGeneError) Unwrap() error { return e.Err }

// UnresolvedDiseaseError reports that neither EFO nor MONDO matched a label.
type UnresolvedDiseaseError struct {
	Label string
	Err   error
}

func (e *UnresolvedDiseaseError) Error() string {
	return fmt.Sprintf("could not resolve disease %q via OLS", e.Label)
}

func (e *UnresolvedDiseaseError) Unwrap() error { return e.Err }

// Resolver resolves genes against Ensembl and diseases against OLS.
type Resolver struct {
	client JSONClient
	cfg    types.SourcesConfig
	logger *slog.Logger
}

// New returns a Resolver. A nil logger uses slog.Default().
func New(client JSONClient, cfg types.SourcesConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, cfg: cfg, logger: logger}
}

type ensemblLookup struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ResolveGene looks symbol up in Ensembl. The synonym set is the returned
// display name plus the input symbol, minus empties.
func (r *Resolver) ResolveGene(ctx context.Context, symbol string) (types.ResolvedGene, error) {
	lookupURL := strings.TrimSuffix(r.cfg.Endpoints.EnsemblLookup, "/") + "/" + url.PathEscape(symbol)
	var data ensemblLookup
	if err := r.client.GetJSON(ctx, lookupURL, url.Values{"content-type": {"application/json"}}, &data); err != nil {
		return types.ResolvedGene{}, &UnresolvedGeneError{Symbol: symbol, Err: err}
	}
	if data.ID == "" {
		return types.ResolvedGene{}, &UnresolvedGeneError{Symbol: symbol, Err: fmt.Errorf("no identifier returned")}
	}

	gene := types.ResolvedGene{
		Symbol:    symbol,
		EnsemblID: data.ID,
		Synonyms:  uniqueNonEmpty(symbol, data.DisplayName),
	}
	r.logger.Debug("resolved gene", "symbol", symbol, "ensembl_id", gene.EnsemblID, "synonyms", gene.Synonyms)
	return gene, nil
}

// ResolveDisease searches OLS for label across EFO and MONDO in one call and
// takes the first row per ontology. The synonym set is the input label
// followed by both matches' synonyms.
func (r *Resolver) ResolveDisease(ctx context.Context, label string) (types.ResolvedDisease, error) {
	rows := r.cfg.OLSRows
	if rows <= 0 {
		rows = 25
	}
	params := url.Values{
		"q":        {label},
		"ontology": {"efo,mondo"},
		"type":     {"class"},
		"rows":     {strconv.Itoa(rows)},
		"exact":    {"false"},
	}

	var data olsResponse
	if err := r.client.GetJSON(ctx, r.cfg.Endpoints.OLSSearch, params, &data); err != nil {
		return types.ResolvedDisease{}, &UnresolvedDiseaseError{Label: label, Err: err}
	}

	var efo, mondo *olsDoc
	for _, d := range data.documents() {
		onto := strings.ToLower(d.ontology())
		switch {
		case strings.HasPrefix(onto, "efo") && efo == nil:
			efo = &d
		case strings.HasPrefix(onto, "mondo") && mondo == nil:
			mondo = &d
		}
		if efo != nil && mondo != nil {
			break
		}
	}

	if efo == nil && mondo == nil {
		return types.ResolvedDisease{}, &UnresolvedDiseaseError{Label: label, Err: fmt.Errorf("no EFO or MONDO match")}
	}

	disease := types.ResolvedDisease{Label: label}
	synonyms := []string{label}
	if efo != nil {
		disease.EFOID = NormalizeOntologyID("EFO", efo.id())
		synonyms = append(synonyms, efo.synonyms()...)
	}
	if mondo != nil {
		disease.MONDOID = NormalizeOntologyID("MONDO", mondo.id())
		synonyms = append(synonyms, mondo.synonyms()...)
	}
	disease.Synonyms = uniqueNonEmpty(synonyms...)

	r.logger.Debug("resolved disease", "label", label, "efo_id", disease.EFOID, "mondo_id", disease.MONDOID,
		"synonyms", len(disease.Synonyms))
	return disease, nil
}

// NormalizeOntologyID returns raw in canonical PREFIX_xxxxxxx form. Ids that
// already carry the prefix keep it, with an OBO-style colon separator turned
// into an underscore; bare local ids get the prefix prepended.
func NormalizeOntologyID(prefix, raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	if raw == "" {
		return ""
	}
	if len(raw) > len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		switch raw[len(prefix)] {
		case '_':
			return raw
		case ':':
			return prefix + "_" + raw[len(prefix)+1:]
		}
	}
	return prefix + "_" + raw
}

// uniqueNonEmpty returns the non-empty values in first-seen order.
func uniqueNonEmpty(values ...string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

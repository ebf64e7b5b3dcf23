// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"log/slog"

	"github.com/pdiddy/gene-disease-engine/internal/evidence"
	"github.com/pdiddy/gene-disease-engine/internal/httputil"
	"github.com/pdiddy/gene-disease-engine/internal/metrics"
	"github.com/pdiddy/gene-disease-engine/internal/resolve"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// IdentifierResolver maps free-text names to canonical identifiers.
type IdentifierResolver interface {
	ResolveGene(ctx context.Context, symbol string) (types.ResolvedGene, error)
	ResolveDisease(ctx context.Context, label string) (types.ResolvedDisease, error)
}

// Collector gathers evidence fragments for resolved identifiers. It never
// fails; missing sources leave empty fragments.
type Collector interface {
	Collect(ctx context.Context, gene types.ResolvedGene, disease types.ResolvedDisease, opts evidence.Options) *types.EvidenceBundle
}

// Gatherer resolves a request's identifiers and collects its
// evidence bundle. Resolution failures are returned as errors.
type Gatherer struct {
	Resolver  IdentifierResolver
	Collector Collector
}

// NewGatherer wires the Ensembl/OLS resolver and the evidence aggregator to
// one shared HTTP client.
func NewGatherer(cfg types.PipelineConfig, m *metrics.Metrics, logger *slog.Logger) *Gatherer {
	client := httputil.NewClient(cfg.HTTP, nil)
	return &Gatherer{
		Resolver:  resolve.New(client, cfg.Sources, logger),
		Collector: evidence.NewAggregator(client, cfg.Sources, m, logger),
	}
}

// Gather resolves the gene, then the disease, then collects evidence.
func (g *Gatherer) Gather(ctx context.Context, req types.AnalysisRequest) (*types.EvidenceBundle, error) {
	gene, err := g.Resolver.ResolveGene(ctx, req.Gene)
	if err != nil {
		return nil, err
	}
	disease, err := g.Resolver.ResolveDisease(ctx, req.Disease)
	if err != nil {
		return nil, err
	}
	return g.Collector.Collect(ctx, gene, disease, evidence.Options{
		SinceYear:    req.SinceYear,
		MaxAbstracts: req.MaxAbstracts,
		IncludeGWAS:  req.IncludeGWAS,
	}), nil
}

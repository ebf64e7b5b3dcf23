// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence collects gene-disease evidence from public sources and
// assembles it into one EvidenceBundle.
//
// Each source sits behind a small interface so the aggregator can fan out to
// all of them concurrently and absorb any single source's failure. A failed
// or empty source leaves its fragment empty; it never aborts the bundle.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/gene-disease-engine/internal/metrics"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// Source identifiers, matching the bundle's JSON keys.
const (
	SourceOpenTargets = "opentargets"
	SourceLiterature  = "literature"
	SourceGWAS        = "gwas_catalog"
)

// JSONClient is the subset of httputil.Client the collectors need.
type JSONClient interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error
	PostJSON(ctx context.Context, rawURL string, body, out any) error
}

// AssociationSource yields the target-disease association score.
type AssociationSource interface {
	Name() string
	Association(ctx context.Context, gene types.ResolvedGene, disease types.ResolvedDisease) (*types.AssociationScore, error)
}

// LiteratureSource yields literature hits reduced to evidence sentences.
type LiteratureSource interface {
	Name() string
	Literature(ctx context.Context, q LiteratureQuery) ([]types.LiteratureHit, error)
}

// GeneticSource yields genetic associations mapped to the gene.
type GeneticSource interface {
	Name() string
	Genetic(ctx context.Context, gene types.ResolvedGene, disease types.ResolvedDisease) ([]types.GeneticAssociation, error)
}

// Options are the per-run collection parameters.
type Options struct {
	SinceYear    int
	MaxAbstracts int
	IncludeGWAS  bool
}

// Aggregator fans out to its sources and fans their fragments into a bundle.
// A nil source is skipped.
type Aggregator struct {
	Association AssociationSource
	Literature  LiteratureSource
	Genetic     GeneticSource
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// NewAggregator wires the Open Targets, Europe PMC and GWAS Catalog
// collectors to client.
func NewAggregator(client JSONClient, cfg types.SourcesConfig, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		Association: &OpenTargets{Client: client, Config: cfg, Logger: logger},
		Literature:  &EuropePMC{Client: client, Config: cfg},
		Genetic:     &GWASCatalog{Client: client, Config: cfg, Logger: logger},
		Metrics:     m,
		Logger:      logger,
	}
}

// Collect runs every applicable source concurrently and waits for all of
// them. The genetic source runs only when opts.IncludeGWAS is set. Each
// goroutine writes only its own fragment, so the bundle is the same whatever
// order the sources finish in.
func (a *Aggregator) Collect(ctx context.Context, gene types.ResolvedGene, disease types.ResolvedDisease, opts Options) *types.EvidenceBundle {
	bundle := types.NewEvidenceBundle(gene, disease)

	var (
		association *types.AssociationScore
		literature  []types.LiteratureHit
		genetic     []types.GeneticAssociation
	)

	// The group never sees an error: siblings must not be cancelled by a
	// failing source.
	var g errgroup.Group

	if a.Association != nil {
		g.Go(func() error {
			a.run(a.Association.Name(), func() (int, error) {
				score, err := a.Association.Association(ctx, gene, disease)
				if score == nil {
					return 0, err
				}
				association = score
				return 1, err
			})
			return nil
		})
	}

	if a.Literature != nil {
		q := LiteratureQuery{
			GeneTerms:    bundle.Synonyms.Gene,
			DiseaseTerms: bundle.Synonyms.Disease,
			SinceYear:    opts.SinceYear,
			MaxRecords:   opts.MaxAbstracts,
		}
		g.Go(func() error {
			a.run(a.Literature.Name(), func() (int, error) {
				hits, err := a.Literature.Literature(ctx, q)
				if err != nil {
					return 0, err
				}
				literature = hits
				return len(hits), nil
			})
			return nil
		})
	}

	if a.Genetic != nil && opts.IncludeGWAS {
		g.Go(func() error {
			a.run(a.Genetic.Name(), func() (int, error) {
				rows, err := a.Genetic.Genetic(ctx, gene, disease)
				if err != nil {
					return 0, err
				}
				genetic = rows
				return len(rows), nil
			})
			return nil
		})
	}

	_ = g.Wait()

	bundle.OpenTargets = association
	if literature != nil {
		bundle.Literature = literature
	}
	if genetic != nil {
		bundle.GWASCatalog = genetic
	}

	a.logger().Info("evidence collected",
		"gene", gene.Symbol, "disease", disease.Label,
		"opentargets", association != nil,
		"literature", len(bundle.Literature),
		"gwas_catalog", len(bundle.GWASCatalog))
	return bundle
}

// run executes one source, converting an error or panic into an empty
// fragment, and records the outcome.
func (a *Aggregator) run(source string, fetch func() (int, error)) {
	start := time.Now()
	outcome := metrics.OutcomeFailed
	defer func() {
		if r := recover(); r != nil {
			a.logger().Warn("source panicked", "source", source, "error", fmt.Sprint(r))
			outcome = metrics.OutcomeFailed
		}
		a.Metrics.ObserveSource(source, outcome, time.Since(start))
	}()

	n, err := fetch()
	switch {
	case err != nil:
		a.logger().Warn("source failed", "source", source, "error", err)
	case n == 0:
		outcome = metrics.OutcomeEmpty
	default:
		outcome = metrics.OutcomeOK
	}
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

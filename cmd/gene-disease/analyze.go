// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gene-disease-engine/internal/analyzer"
	"github.com/pdiddy/gene-disease-engine/internal/notify"
	"github.com/pdiddy/gene-disease-engine/internal/pipeline"
	"github.com/pdiddy/gene-disease-engine/internal/secrets"
	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

const (
	summaryGWASRows       = 5
	summaryLiteratureHits = 3
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one gene-disease analysis and record it in the history",
	Long: `Analyze resolves the gene and disease, gathers evidence from every
source concurrently, and, when --model is given, asks the configured LLM
provider for a verdict. The run is saved to the history database and a
summary is printed.

A source that fails leaves its section empty. An LLM failure still records
the evidence; the verdict then reports the failure (error, retry_later or
service_unavailable).`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("gene", "", "gene symbol (e.g. TP53)")
	analyzeCmd.Flags().String("disease", "", "disease label (e.g. lung cancer)")
	analyzeCmd.Flags().Int("since", types.DefaultSinceYear, "minimum publication year for literature")
	analyzeCmd.Flags().Int("max-abstracts", types.DefaultMaxAbstracts, "maximum literature items to include (1-25)")
	analyzeCmd.Flags().Bool("include-gwas", true, "fetch GWAS Catalog associations")
	analyzeCmd.Flags().StringP("model", "m", "", "LLM model for the verdict; omit to skip the LLM step")
	analyzeCmd.Flags().String("provider", "", "LLM provider: openai or anthropic (default from config)")
	analyzeCmd.MarkFlagRequired("gene")
	analyzeCmd.MarkFlagRequired("disease")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	gene, _ := cmd.Flags().GetString("gene")
	disease, _ := cmd.Flags().GetString("disease")
	req := types.NewAnalysisRequest(strings.TrimSpace(gene), strings.TrimSpace(disease))
	req.SinceYear, _ = cmd.Flags().GetInt("since")
	req.MaxAbstracts, _ = cmd.Flags().GetInt("max-abstracts")
	req.IncludeGWAS, _ = cmd.Flags().GetBool("include-gwas")
	req.Model, _ = cmd.Flags().GetString("model")
	if err := req.Validate(); err != nil {
		return err
	}

	provider := pipelineCfg.Analyzer.Provider
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		provider = types.Provider(p)
	}
	cred, err := keyring.Credential(provider)
	if err != nil && !errors.Is(err, secrets.ErrMissingKey) {
		return err
	}
	if err != nil && req.Model != "" {
		logger.Warn("LLM step will fail without a key", "error", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	orch := &pipeline.Orchestrator{
		Store:    st,
		Gatherer: pipeline.NewGatherer(pipelineCfg, appMetrics, logger),
		Analyzer: analyzer.NewService(pipelineCfg.Analyzer, appMetrics, logger),
		Notifier: notify.New(logger, &notify.WriterSink{W: os.Stderr}),
		Metrics:  appMetrics,
		Logger:   logger,
	}

	id, res, err := orch.Execute(context.Background(), req, cred)
	if err != nil {
		return err
	}
	return printSummary(os.Stdout, id, res)
}

// printSummary renders a stored result: normalized inputs, association
// scores, the first GWAS rows, the first literature snippets and the verdict.
func printSummary(w io.Writer, id int64, res types.Result) error {
	if len(res.Evidence) == 0 {
		fmt.Fprintf(w, "Run %d failed: %s\n", id, res.ErrorMessage)
		return fmt.Errorf("run %d failed", id)
	}
	var bundle types.EvidenceBundle
	if err := json.Unmarshal(res.Evidence, &bundle); err != nil {
		return fmt.Errorf("decoding evidence of run %d: %w", id, err)
	}

	fmt.Fprintf(w, "Run %d\n\n", id)
	fmt.Fprintln(w, "== Normalized inputs ==")
	writeJSON(w, bundle.Query)

	if bundle.OpenTargets != nil {
		fmt.Fprintln(w, "\n== Open Targets association (overall + datatype scores) ==")
		writeJSON(w, bundle.OpenTargets)
	}
	if len(bundle.GWASCatalog) > 0 {
		fmt.Fprintln(w, "\n== GWAS Catalog (filtered to gene) ==")
		writeJSON(w, bundle.GWASCatalog[:min(len(bundle.GWASCatalog), summaryGWASRows)])
	}
	if len(bundle.Literature) > 0 {
		fmt.Fprintln(w, "\n== Literature snippets (Europe PMC) ==")
		for _, hit := range bundle.Literature[:min(len(bundle.Literature), summaryLiteratureHits)] {
			fmt.Fprintf(w, "- PMID %s (%d): %s\n", hit.PMID, hit.Year, hit.Title)
			for _, s := range hit.Sentences {
				fmt.Fprintf(w, "  * %s\n", s)
			}
		}
	}

	switch {
	case res.Verdict == "":
		fmt.Fprintln(w, "\n(No LLM model specified; stored evidence bundle only.)")
	case res.ErrorMessage != "":
		fmt.Fprintln(w, "\n== LLM verdict ==")
		fmt.Fprintf(w, "verdict: %s\nconfidence: %.2f\nerror: %s\n", res.Verdict, res.Confidence, res.ErrorMessage)
	default:
		fmt.Fprintln(w, "\n== LLM verdict ==")
		if len(res.AnalyzerOutput) > 0 {
			writeJSON(w, res.AnalyzerOutput)
		} else {
			fmt.Fprintf(w, "verdict: %s\nconfidence: %.2f\n", res.Verdict, res.Confidence)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

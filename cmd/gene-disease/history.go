// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gene-disease-engine/internal/store"
)

// --- history subcommand ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List prior runs, newest first",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	formatHistory(os.Stdout, entries)
	return nil
}

func formatHistory(w io.Writer, entries []store.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs yet.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-20s  %-10s  %-30s  %-10s  %-20s  %s\n",
		"ID", "Created", "Gene", "Disease", "Status", "Verdict", "Model")
	fmt.Fprintln(w, strings.Repeat("-", 115))

	for _, e := range entries {
		disease := e.Run.Request.Disease
		if len(disease) > 30 {
			disease = disease[:27] + "..."
		}
		verdict := "-"
		if e.Verdict != "" {
			verdict = string(e.Verdict)
			if e.Confidence != nil {
				verdict += " (" + strconv.FormatFloat(*e.Confidence, 'f', 2, 64) + ")"
			}
		}
		model := e.Run.Request.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%-5d  %-20s  %-10s  %-30s  %-10s  %-20s  %s\n",
			e.Run.ID, e.Run.CreatedAt.Local().Format(time.DateTime), e.Run.Request.Gene,
			disease, e.Run.Status, verdict, model)
	}

	fmt.Fprintf(w, "\n%d runs\n", len(entries))
}

// --- show subcommand ---

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's inputs, status and stored LLM output",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	asYAML, _ := cmd.Flags().GetBool("yaml")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entry, err := st.Export(context.Background(), id)
	if err != nil {
		return err
	}
	if asYAML {
		return store.WriteExport(os.Stdout, entry, "yaml")
	}
	return formatShow(os.Stdout, entry)
}

func formatShow(w io.Writer, e *store.ExportEntry) error {
	fmt.Fprintf(w, "Run %d: %s\n", e.Run.ID, e.Run.Status)
	fmt.Fprintln(w, "\n== Inputs ==")
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(e.Run.Request); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if e.Run.EnsemblID != "" || e.Run.EFOID != "" || e.Run.MONDOID != "" {
		fmt.Fprintf(w, "ensembl_id: %s\nefo_id: %s\nmondo_id: %s\n", e.Run.EnsemblID, e.Run.EFOID, e.Run.MONDOID)
	}

	switch {
	case e.AnalyzerOutput != nil:
		fmt.Fprintln(w, "\n== LLM output ==")
		writeJSON(w, e.AnalyzerOutput)
	case e.Verdict != "":
		fmt.Fprintln(w, "\n== Verdict ==")
		fmt.Fprintf(w, "verdict: %s\nconfidence: %.2f\n", e.Verdict, e.Confidence)
	default:
		fmt.Fprintln(w, "\n(No LLM output stored for this run.)")
	}
	if e.ErrorMessage != "" {
		fmt.Fprintf(w, "error: %s\n", e.ErrorMessage)
	}
	return nil
}

// --- export subcommand ---

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's evidence and analysis to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := parseRunID(args[0])
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entry, err := st.Export(context.Background(), id)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := store.WriteExport(f, entry, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

func parseRunID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", s)
	}
	return id, nil
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum runs to list (0 = use configured history limit)")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	showCmd.Flags().Bool("yaml", false, "print the full run, evidence and analysis as YAML")

	exportCmd.Flags().String("out", "", "destination file")
	exportCmd.Flags().String("format", "json", "export format: json or yaml")
	exportCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
}

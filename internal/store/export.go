// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// ExportEntry holds a run with its decoded result for export. Evidence and
// AnalyzerOutput are decoded from the stored JSON so they render as nested
// documents in YAML as well as JSON.
type ExportEntry struct {
	Run            types.Run     `json:"run" yaml:"run"`
	Verdict        types.Verdict `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Confidence     float64       `json:"confidence" yaml:"confidence"`
	ErrorMessage   string        `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Evidence       any           `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	AnalyzerOutput any           `json:"analyzer_output,omitempty" yaml:"analyzer_output,omitempty"`
}

// Export loads run id and its result. A run without a result yet is
// exported with only its run record.
func (s *Store) Export(ctx context.Context, id int64) (*ExportEntry, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := &ExportEntry{Run: *run}

	res, err := s.GetResult(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return entry, nil
	}
	if err != nil {
		return nil, err
	}
	entry.Verdict = res.Verdict
	entry.Confidence = res.Confidence
	entry.ErrorMessage = res.ErrorMessage
	if entry.Evidence, err = decodeBlob(res.Evidence); err != nil {
		return nil, fmt.Errorf("decoding evidence of run %d: %w", id, err)
	}
	if entry.AnalyzerOutput, err = decodeBlob(res.AnalyzerOutput); err != nil {
		return nil, fmt.Errorf("decoding analyzer output of run %d: %w", id, err)
	}
	return entry, nil
}

// WriteExport encodes entry to w as "json" or "yaml".
func WriteExport(w io.Writer, entry *ExportEntry, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q: use json or yaml", format)
}

func decodeBlob(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

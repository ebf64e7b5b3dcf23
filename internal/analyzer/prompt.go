// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// systemPrompt is sent to both providers. It fixes the evidence-weighing
// rules and the response schema.
const systemPrompt = `You are a biomedical evidence-synthesis assistant. Assess whether the GENE is causally or mechanistically associated with the DISEASE.
Rules:
1) Use only the evidence provided. Do not invent citations or facts.
2) Weigh genetic evidence highest, then functional/omics, then literature consensus.
3) Note contradictions, biases (small N, population stratification), and whether evidence is disease-subtype-specific.
4) Prefer human data over model organisms unless human is absent.
5) Output valid JSON only matching the schema below.
6) Every claim in ` + "`key_points`" + ` must reference ` + "`source_ids`" + ` pointing to items in the input.
7) If evidence is insufficient, say so and explain next steps.

Schema:
{
  "verdict": "strong|moderate|weak|no_evidence|inconclusive",
  "confidence": 0.0,
  "drivers": {
    "genetic": {"present": true, "summary": "...", "source_ids": ["gwas_catalog:PMID..."]},
    "functional": {"present": true, "summary": "...", "source_ids": ["opentargets:...","literature:PMID..."]},
    "pathway_network": {"present": false, "summary": "", "source_ids": []}
  },
  "key_points": [
    {"statement": "...", "source_ids": ["gwas_catalog:PMID...", "literature:PMID..."]}
  ],
  "conflicts_or_gaps": [{"issue": "...", "source_ids": ["..."]}],
  "recommended_next_steps": ["..."]
}
`

var userPromptTmpl = template.Must(template.New("user").Parse(`Task: Evaluate correlation between {{.Gene}} and {{.Disease}}. Return ONLY valid JSON matching the schema provided in the system prompt. Use the provided evidence bundle.

EVIDENCE:
{{.Evidence}}
`))

// renderUserPrompt embeds the serialized bundle in the user message.
func renderUserPrompt(bundle *types.EvidenceBundle) (string, error) {
	evidence, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("serializing evidence: %w", err)
	}
	var buf bytes.Buffer
	err = userPromptTmpl.Execute(&buf, struct {
		Gene, Disease, Evidence string
	}{
		Gene:     bundle.Query.Gene.Symbol,
		Disease:  bundle.Query.Disease.Label,
		Evidence: string(evidence),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}

func sourceIDs() jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}}
}

func driver() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"present":    {Type: jsonschema.Boolean},
			"summary":    {Type: jsonschema.String},
			"source_ids": sourceIDs(),
		},
		Required:             []string{"present", "summary", "source_ids"},
		AdditionalProperties: false,
	}
}

// verdictSchema is the structured-output schema requested from providers
// that support one. It mirrors the schema in systemPrompt.
var verdictSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"verdict": {
			Type: jsonschema.String,
			Enum: []string{
				string(types.VerdictStrong), string(types.VerdictModerate), string(types.VerdictWeak),
				string(types.VerdictNoEvidence), string(types.VerdictInconclusive),
			},
		},
		"confidence": {Type: jsonschema.Number},
		"drivers": {
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"genetic":         driver(),
				"functional":      driver(),
				"pathway_network": driver(),
			},
			Required:             []string{"genetic", "functional", "pathway_network"},
			AdditionalProperties: false,
		},
		"key_points": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"statement":  {Type: jsonschema.String},
					"source_ids": sourceIDs(),
				},
				Required:             []string{"statement", "source_ids"},
				AdditionalProperties: false,
			},
		},
		"conflicts_or_gaps": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"issue":      {Type: jsonschema.String},
					"source_ids": sourceIDs(),
				},
				Required:             []string{"issue", "source_ids"},
				AdditionalProperties: false,
			},
		},
		"recommended_next_steps": {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
	},
	Required: []string{
		"verdict", "confidence", "drivers", "key_points", "conflicts_or_gaps", "recommended_next_steps",
	},
	AdditionalProperties: false,
}

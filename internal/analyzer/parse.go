// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyzer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

// ParseVerdict interprets model output. When extract is set, the first
// balanced {...} block is parsed instead of the whole text. Output that is
// not a JSON object yields an inconclusive verdict with zero confidence and
// RawText set; it is never an error. A missing or unknown verdict is
// inconclusive, and confidence is clamped to [0, 1].
func ParseVerdict(content string, extract bool) types.AnalyzerVerdict {
	text := strings.TrimSpace(content)
	if extract {
		if block, ok := firstJSONObject(text); ok {
			text = block
		}
	}

	var fields struct {
		Verdict    string `json:"verdict"`
		Confidence any    `json:"confidence"`
	}
	if text == "" || text[0] != '{' || json.Unmarshal([]byte(text), &fields) != nil {
		raw := content
		return types.AnalyzerVerdict{Verdict: types.VerdictInconclusive, Confidence: 0, RawText: &raw}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(text)); err != nil {
		compact.Reset()
		compact.WriteString(text)
	}

	v := types.Verdict(strings.ToLower(strings.TrimSpace(fields.Verdict)))
	if !v.IsScientific() {
		v = types.VerdictInconclusive
	}
	return types.AnalyzerVerdict{
		Verdict:    v,
		Confidence: clamp01(toFloat(fields.Confidence)),
		Rationale:  json.RawMessage(compact.Bytes()),
	}
}

// firstJSONObject returns the first balanced {...} block in s. Braces inside
// JSON strings are ignored.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

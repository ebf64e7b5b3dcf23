// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// protectedAbbreviations end in a period but never end a sentence.
var protectedAbbreviations = []string{"e.g.", "i.e.", "et al.", "Fig.", "Dr."}

var whitespaceRun = regexp.MustCompile(`\s+`)

// abbreviationToken returns the placeholder for protectedAbbreviations[i].
// It keeps the abbreviation's first character so a sentence starting with
// "Dr." or "Fig." still splits from the one before it. NUL never survives in
// abstract text, so the token cannot collide with real content.
func abbreviationToken(i int) string {
	abbr := protectedAbbreviations[i]
	return abbr[:1] + "\x00" + string(rune('A'+i)) + "\x00"
}

// SplitSentences segments text into sentences. It collapses whitespace,
// protects common abbreviations, splits after '.', '?' or '!' when followed
// by whitespace and an uppercase letter or digit, and drops empty segments.
// Empty input yields nil.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	for i, abbr := range protectedAbbreviations {
		text = strings.ReplaceAll(text, abbr, abbreviationToken(i))
	}

	var parts []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '?', '!':
		default:
			continue
		}
		// Collapsed text has at most one space between tokens.
		if i+2 > len(text)-1 || text[i+1] != ' ' {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i+2:])
		if !unicode.IsUpper(next) && !unicode.IsDigit(next) {
			continue
		}
		parts = append(parts, text[start:i+1])
		start = i + 2
	}
	parts = append(parts, text[start:])

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		for i, abbr := range protectedAbbreviations {
			p = strings.ReplaceAll(p, abbreviationToken(i), abbr)
		}
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// maxSentencesPerHit caps the evidence sentences kept from one abstract.
const maxSentencesPerHit = 3

// termPattern compiles a case-insensitive alternation of terms. It returns
// nil when no non-empty term is given so that an empty synonym set never
// matches everything.
func termPattern(terms []string) *regexp.Regexp {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, regexp.QuoteMeta(t))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// evidenceSentences returns up to three abstract sentences that mention both
// a gene term and a disease term. When none qualifies but the title mentions
// both, the title is the only evidence. A nil result means the hit has no
// qualifying evidence.
func evidenceSentences(title, abstract string, genePat, diseasePat *regexp.Regexp) []string {
	if genePat == nil || diseasePat == nil {
		return nil
	}
	var out []string
	for _, s := range SplitSentences(abstract) {
		if genePat.MatchString(s) && diseasePat.MatchString(s) {
			out = append(out, s)
			if len(out) == maxSentencesPerHit {
				return out
			}
		}
	}
	if len(out) == 0 && title != "" && genePat.MatchString(title) && diseasePat.MatchString(title) {
		return []string{title}
	}
	return out
}

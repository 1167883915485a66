// Package moderation redacts configured sensitive words from message
// text before it is persisted. Matching is case-insensitive and
// tolerant of common obfuscation (punctuation, leet substitutions).
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Redactor struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// NewRedactor builds the Aho-Corasick automaton over the normalized
// word list. An empty list yields a redactor that passes text through.
func NewRedactor(words []string, replacement rune) (*Redactor, error) {
	if len(words) == 0 {
		return &Redactor{replacement: replacement}, nil
	}

	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm := normalize([]rune(w)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Redactor{matcher: m, replacement: replacement}, nil
}

// Redact replaces every matched span of the original text with the
// replacement rune, preserving untouched characters and spacing.
func (r *Redactor) Redact(original string) string {
	if r.matcher == nil {
		return original
	}

	origRunes := []rune(original)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))
	for i, ru := range origRunes {
		clean := foldRune(ru)
		if skippable(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	if len(norm) == 0 {
		return original
	}

	spans := r.matcher.MultiPatternSearch(norm, false)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = r.replacement
		}
	}
	return string(origRunes)
}

func normalize(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, ru := range input {
		clean := foldRune(ru)
		if skippable(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// foldRune maps common leet substitutions back to letters so "s3cr3t"
// matches "secret".
func foldRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func skippable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

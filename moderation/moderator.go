// Package moderation masks configured words in chat messages before they are
// persisted and fanned out.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator wraps an Aho-Corasick automaton built once at startup from the
// configured word list. Matching runs over a normalized view of the text so
// spacing, punctuation, and basic leet substitutions don't defeat it.
type Moderator struct {
	matcher     *goahocorasick.Machine
	maskingChar rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

func NewModerator(words []string, maskingChar rune) (Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		normalized := normalizeRunes([]rune(word))
		// Noise-only entries would match everywhere, drop them.
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, maskingChar: maskingChar}, nil
}

// Censor replaces every matched span with the masking character, preserving
// the original length and spacing. The second result reports whether any
// masking happened.
func (m *Moderator) Censor(original string) (string, bool) {
	mapping := m.normalize(original)
	if len(mapping.normalized) == 0 {
		return original, false
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, false
	}

	origRunes := []rune(original)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.maskingChar
		}
	}
	return string(origRunes), true
}

// normalize lowers and simplifies the input while tracking original rune
// positions, so masking can be applied back onto the unmodified text.
func (m *Moderator) normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
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

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

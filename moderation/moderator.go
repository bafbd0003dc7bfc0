// Package moderation masks censored words in outgoing message text.
// Matching is diacritics-tolerant enough for chat: leet substitutions
// are folded back and punctuation noise is ignored, so "b4d-w0rd"
// still matches "badword".
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"github.com/Sirco-web/ttls/errors"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// NewModerator builds the Aho-Corasick automaton over a normalized copy
// of the word list.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	if len(words) == 0 {
		return nil, errors.ErrEmptyWordList
	}
	patterns := make([][]rune, len(words))
	for i, w := range words {
		patterns[i] = foldRunes([]rune(w))
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, replacement: replacement}, nil
}

// Censor replaces every matched span with the replacement rune while
// leaving spacing and untouched characters exactly as written.
func (m *Moderator) Censor(original string) string {
	orig := []rune(original)
	folded, origIdx := foldWithMapping(orig)
	if len(folded) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(folded, false)
	if len(spans) == 0 {
		return original
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			orig[i] = m.replacement
		}
	}
	return string(orig)
}

// foldWithMapping normalizes the input for matching and records, for
// each folded rune, the index of the original rune it came from.
func foldWithMapping(orig []rune) ([]rune, []int) {
	folded := make([]rune, 0, len(orig))
	origIdx := make([]int, 0, len(orig))
	for i, r := range orig {
		f := foldRune(r)
		if isNoise(f) {
			continue
		}
		folded = append(folded, unicode.ToLower(f))
		origIdx = append(origIdx, i)
	}
	return folded, origIdx
}

func foldRunes(in []rune) []rune {
	out := make([]rune, 0, len(in))
	for _, r := range in {
		f := foldRune(r)
		if isNoise(f) {
			continue
		}
		out = append(out, unicode.ToLower(f))
	}
	return out
}

// foldRune maps common leet substitutions back to letters.
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

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

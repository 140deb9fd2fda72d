package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// noiseSuffixes are marketing or localization words stripped from the
// end of a title before comparison.
var noiseSuffixes = []string{
	"hindi", "dubbed", "movie", "film", "hd", "4k", "original",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle lower-cases, strips diacritics and punctuation,
// collapses whitespace, and removes trailing noise words so that
// "3 Idiots (Hindi HD)" and "3 idiots" compare equal.
func NormalizeTitle(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	if folded, _, err := transform.String(stripMarks, lowered); err == nil {
		lowered = folded
	}

	var builder strings.Builder
	builder.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
		default:
			builder.WriteByte(' ')
		}
	}

	words := strings.Fields(builder.String())
	for len(words) > 1 {
		last := words[len(words)-1]
		stripped := false
		for _, noise := range noiseSuffixes {
			if last == noise {
				words = words[:len(words)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	return strings.Join(words, " ")
}

// normalizeName prepares a person name for set intersection.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// nameOverlap counts case-insensitive common entries between two name
// lists.
func nameOverlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, name := range a {
		if normalized := normalizeName(name); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	common := 0
	seen := make(map[string]struct{}, len(b))
	for _, name := range b {
		normalized := normalizeName(name)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		if _, ok := set[normalized]; ok {
			common++
		}
	}
	return common
}

package spotify

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity is one minus the Levenshtein distance normalized by the longer string, in runes.
// It is symmetric, lies in [0, 1] and is 1 for identical strings. Callers fold case first.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	distance := levenshtein.ComputeDistance(a, b)

	return float64(longest-distance) / float64(longest)
}

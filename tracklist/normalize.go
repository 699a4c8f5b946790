package tracklist

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MinSideLength is the minimum rune count of both the artist and the title of a mention
const MinSideLength = 2

// Mention is one scraped "artist - title" occurrence, lowercase and normalized
type Mention struct {
	Artist string
	Title  string
}

// String renders the mention the way the extractor emits it
func (m Mention) String() string {
	return fmt.Sprintf("%s - %s", m.Artist, m.Title)
}

var punctuationReplacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"‒", "-", // figure dash
	"−", "-", // minus sign
	"`", "'",
	"‘", "'",
	"’", "'",
	"‚", "'",
	"“", "\"",
	"”", "\"",
	"„", "\"",
)

// normalizePunct folds dash and quote variants to ASCII and collapses whitespace
func normalizePunct(s string) string {
	s = punctuationReplacer.Replace(norm.NFC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// quoteRunes may surround a title on the page
const quoteRunes = "\"'`“”„‚‘’«»‹›"

// stripQuotes removes surrounding quote characters, repeatedly, e.g. `"'Title'"` -> `Title`
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	for utf8.RuneCountInString(s) >= 2 {
		first, _ := utf8.DecodeRuneInString(s)
		last, _ := utf8.DecodeLastRuneInString(s)
		if !strings.ContainsRune(quoteRunes, first) || !strings.ContainsRune(quoteRunes, last) {
			break
		}
		s = strings.TrimSpace(s[utf8.RuneLen(first) : len(s)-utf8.RuneLen(last)])
	}
	return s
}

// trimDashPrefix drops a leading "-", "–" or "—" run, as used before artist names
func trimDashPrefix(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "-–—"))
}

// assemble builds the lowercase "artist - title" string and applies the pair guard
func assemble(artist, title string) (string, bool) {
	artist = normalizePunct(trimDashPrefix(artist))
	title = normalizePunct(stripQuotes(normalizePunct(title)))

	pair := strings.ToLower(strings.TrimSpace(artist + " - " + title))
	if !LooksLikePair(pair) {
		return "", false
	}
	return pair, true
}

// splitPair cuts s at its first "-" and trims both sides
func splitPair(s string) (Mention, bool) {
	artist, title, found := strings.Cut(s, "-")
	if !found {
		return Mention{}, false
	}
	m := Mention{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title)}
	if utf8.RuneCountInString(m.Artist) < MinSideLength || utf8.RuneCountInString(m.Title) < MinSideLength {
		return Mention{}, false
	}
	return m, true
}

// LooksLikePair reports whether s, cut at its first "-", has an artist and a title of at
// least MinSideLength runes each. "a-ha - take on me" is rejected: its artist side is "a".
func LooksLikePair(s string) bool {
	_, ok := splitPair(s)
	return ok
}

// SplitMention splits an assembled "artist - title" string into its two sides. Only
// strings with exactly one "-" are split; with more ("jay-z - empire state of mind",
// "reach out - live") the artist/title boundary is ambiguous and the mention is dropped.
func SplitMention(s string) (Mention, bool) {
	if strings.Count(s, "-") != 1 {
		return Mention{}, false
	}
	return splitPair(s)
}

// ParseMention normalizes free text such as `George Duke – "Reach Out"` the way page
// mentions are normalized and splits it into artist and title.
func ParseMention(s string) (Mention, bool) {
	m, ok := SplitMention(strings.ToLower(normalizePunct(s)))
	if !ok {
		return Mention{}, false
	}
	m.Title = normalizePunct(stripQuotes(m.Title))
	return m, utf8.RuneCountInString(m.Title) >= MinSideLength
}

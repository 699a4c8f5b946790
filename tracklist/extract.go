// Package tracklist turns the show page into normalized "artist - title" mentions.
//
// Two page layouts have been observed. Cards carry the title and artist in dedicated
// elements; the older layout is plain text with a quoted title line followed by a
// dash-prefixed artist line. [CardStrategy] is tried first and [LineStrategy] only when it
// finds nothing.
package tracklist

import (
	"bytes"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/garry/showsync/logging"
)

// Strategy yields assembled, lowercase "artist - title" strings found in doc, in page order
type Strategy func(doc *goquery.Document, logger *log.Logger) iter.Seq[string]

type namedStrategy struct {
	name string
	run  Strategy
}

var strategies = []namedStrategy{
	{name: "cards", run: CardStrategy},
	{name: "lines", run: LineStrategy},
}

// Extractor parses page bodies. The zero value is not usable; use [NewExtractor].
type Extractor struct {
	logger *log.Logger
}

// NewExtractor creates an Extractor logging strategy decisions at debug level
func NewExtractor(logger *log.Logger) *Extractor {
	return &Extractor{logger: logging.OrDiscard(logger)}
}

// Extract is [Extractor.Extract] without logging
func Extract(body []byte) iter.Seq[string] {
	return NewExtractor(nil).Extract(body)
}

// Extract lazily yields the mentions of body. Parsing happens on first iteration.
// Duplicates are kept: a track played twice is mentioned twice.
func (e *Extractor) Extract(body []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			e.logger.Warn("show page is not parseable HTML", "err", err)
			return
		}

		for _, strategy := range strategies {
			found := 0
			for pair := range strategy.run(doc, e.logger) {
				found++
				if !yield(pair) {
					return
				}
			}
			if found > 0 {
				e.logger.Debug("extracted mentions", "strategy", strategy.name, "count", found)
				return
			}
			e.logger.Debug("strategy found nothing", "strategy", strategy.name)
		}
	}
}

// Mentions is [Extractor.Extract] split into artist and title
func (e *Extractor) Mentions(body []byte) iter.Seq[Mention] {
	return func(yield func(Mention) bool) {
		for pair := range e.Extract(body) {
			m, ok := SplitMention(pair)
			if !ok {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

var (
	cardSelector   = ".team-member"
	titleSelector  = ".song-title"
	metaSelector   = ".meta"
	artistSelector = []string{".artist", ".meta strong", ".meta em", "strong", "em"}
)

// CardStrategy reads the structured layout: one .team-member card per track
func CardStrategy(doc *goquery.Document, _ *log.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		doc.Find(cardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
			pair, ok := cardPair(card)
			if !ok {
				return true
			}
			return yield(pair)
		})
	}
}

func cardPair(card *goquery.Selection) (string, bool) {
	title := card.Find(titleSelector).First()
	if title.Length() == 0 {
		return "", false
	}

	// Emphasis inside the title belongs to the title
	for _, selector := range artistSelector {
		artist := card.Find(selector).Not(titleSelector + " *").First()
		if artist.Length() > 0 {
			return assemble(selectionText(artist), selectionText(title))
		}
	}

	meta := card.Find(metaSelector).First()
	if meta.Length() == 0 {
		return "", false
	}
	return assemble(selectionText(meta), selectionText(title))
}

// LineStrategy reads the free-text layout: a quoted title line followed by a "– Artist" line.
// Scanning starts after the "Playlist ... Show vom ..." heading when present.
func LineStrategy(doc *goquery.Document, logger *log.Logger) iter.Seq[string] {
	return func(yield func(string) bool) {
		lines := textLines(doc)

		start := anchorIndex(lines) + 1
		if start == 0 && logger != nil {
			logger.Debug("playlist anchor not found, scanning whole page", "lines", len(lines))
		}

		// Sliding window: a stray line shifts the window by one instead of breaking the pairing
		for i := start; i < len(lines)-1; {
			titleLine, artistLine := lines[i], lines[i+1]
			if !isTitleLine(titleLine) || !isArtistLine(artistLine) {
				i++
				continue
			}

			if pair, ok := assemble(artistLine, stripQuotes(titleLine)); ok {
				if !yield(pair) {
					return
				}
			}
			i += 2
		}
	}
}

// anchorIndex returns the index of the playlist heading, or -1
func anchorIndex(lines []string) int {
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "playlist") && strings.Contains(lower, "show vom") {
			return i
		}
	}
	return -1
}

func isTitleLine(line string) bool {
	for _, q := range []string{"\"", "“", "„", "«", "»"} {
		if strings.HasPrefix(line, q) {
			return true
		}
	}
	for _, q := range []string{"\"", "”", "“", "«", "»"} {
		if strings.HasSuffix(line, q) {
			return true
		}
	}
	return false
}

func isArtistLine(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "–") || strings.HasPrefix(line, "—")
}

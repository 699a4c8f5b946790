package tracklist

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureTracks = []string{
	"flo naegeli & august charles - changes",
	"george duke - reach out",
	"fred kingdom - close that door",
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	body, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return body
}

func TestExtractCardLayout(t *testing.T) {
	got := slices.Collect(Extract(readFixture(t, "playlist_cards.html")))
	if diff := cmp.Diff(fixtureTracks, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTextLineLayout(t *testing.T) {
	got := slices.Collect(Extract(readFixture(t, "playlist_textlines.html")))
	if diff := cmp.Diff(fixtureTracks, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractLayoutsAreEquivalent(t *testing.T) {
	cards := slices.Collect(Extract(readFixture(t, "playlist_cards.html")))
	lines := slices.Collect(Extract(readFixture(t, "playlist_textlines.html")))
	assert.Equal(t, cards, lines)
}

func TestExtractEmptyAndUnrelatedPages(t *testing.T) {
	assert.Empty(t, slices.Collect(Extract(nil)))
	assert.Empty(t, slices.Collect(Extract([]byte("<html><body><p>Wartungsarbeiten</p></body></html>"))))
	assert.Empty(t, slices.Collect(Extract([]byte("not html at all"))))
}

func TestExtractKeepsDuplicates(t *testing.T) {
	page := `<h2>Playlist Show vom 1.1.</h2>
<p>"Reach Out"</p><p>- George Duke</p>
<p>"Reach Out"</p><p>- George Duke</p>`

	got := slices.Collect(Extract([]byte(page)))
	assert.Equal(t, []string{"george duke - reach out", "george duke - reach out"}, got)
}

func TestExtractStopsEarly(t *testing.T) {
	var got []string
	for pair := range Extract(readFixture(t, "playlist_cards.html")) {
		got = append(got, pair)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, fixtureTracks[:2], got)
}

func TestCardStrategyArtistMarkers(t *testing.T) {
	page := `
<div class="team-member"><h4 class="song-title">One</h4><span class="artist">Artist One</span></div>
<div class="team-member"><h4 class="song-title">Two</h4><div class="meta">- <em>Artist Two</em></div></div>
<div class="team-member"><h4 class="song-title">Three</h4><strong>Artist Three</strong></div>
<div class="team-member"><h4 class="song-title"><strong>Four</strong></h4><div class="meta">– Artist Four</div></div>
<div class="team-member"><h4 class="song-title">“Five”</h4><div class="meta">–   Artist   Five</div></div>
<div class="team-member"><div class="meta">– No Title</div></div>
<div class="team-member"><h4 class="song-title">Seven</h4></div>
<div class="team-member"><h4 class="song-title">Eight</h4><span class="artist">X</span></div>`

	got := slices.Collect(Extract([]byte(page)))
	want := []string{
		"artist one - one",
		"artist two - two",
		"artist three - three",
		"artist four - four",
		"artist five - five",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CardStrategy mismatch (-want +got):\n%s", diff)
	}
}

func TestCardLayoutWinsOverTextLines(t *testing.T) {
	page := `<h2>Playlist der Show vom 1.1.</h2>
<p>"Ignored"</p><p>- Text Artist</p>
<div class="team-member"><h4 class="song-title">Card Title</h4><span class="artist">Card Artist</span></div>`

	got := slices.Collect(Extract([]byte(page)))
	assert.Equal(t, []string{"card artist - card title"}, got)
}

func TestLineStrategyWithoutAnchor(t *testing.T) {
	page := `<p>"Reach Out"</p><p>– George Duke</p>`
	got := slices.Collect(Extract([]byte(page)))
	assert.Equal(t, []string{"george duke - reach out"}, got)
}

func TestLineStrategyIgnoresLinesBeforeAnchor(t *testing.T) {
	page := `<p>"Before"</p><p>– Someone Early</p>
<h3>PLAYLIST der SHOW VOM 5.5.</h3>
<p>"After"</p><p>– Someone Later</p>`

	got := slices.Collect(Extract([]byte(page)))
	assert.Equal(t, []string{"someone later - after"}, got)
}

func TestLineStrategySlidingWindow(t *testing.T) {
	// A stray quoted line before a real pair shifts the window by one
	page := `<h2>Playlist Show vom 1.1.</h2>
<p>"Stray Quote"</p>
<p>"Changes"</p><p>– Flo Naegeli</p>`
	got := slices.Collect(Extract([]byte(page)))
	assert.Equal(t, []string{"flo naegeli - changes"}, got)

	// A quoted line between a title and its artist hides the genuine title
	page = `<h2>Playlist Show vom 1.1.</h2>
<p>"Changes"</p><p>"Interlude"</p><p>– Flo Naegeli</p>`
	got = slices.Collect(Extract([]byte(page)))
	assert.Equal(t, []string{"flo naegeli - interlude"}, got)
}

func TestLineStrategyRejectsShortSides(t *testing.T) {
	page := `<h2>Playlist Show vom 1.1.</h2>
<p>"X"</p><p>– Long Artist</p>
<p>"Real Title"</p><p>– Y</p>
<p>"Kept"</p><p>– Kept Artist</p>`

	got := slices.Collect(Extract([]byte(page)))
	assert.Equal(t, []string{"kept artist - kept"}, got)
}

func TestExtractorMentions(t *testing.T) {
	got := slices.Collect(NewExtractor(nil).Mentions(readFixture(t, "playlist_cards.html")))
	require.Len(t, got, 3)
	assert.Equal(t, Mention{Artist: "george duke", Title: "reach out"}, got[1])
	assert.Equal(t, "fred kingdom - close that door", got[2].String())
}

func TestExtractorMentionsWithHyphenatedNames(t *testing.T) {
	page := `<h2>Playlist der Show vom 5.10.</h2>
<p>"Take On Me"</p><p>- a-ha</p>
<p>"Empire State Of Mind"</p><p>- Jay-Z</p>
<p>"Reach Out"</p><p>- George Duke</p>`

	// "a-ha" leaves a one-rune artist side before the first hyphen
	assert.Equal(t, []string{"jay-z - empire state of mind", "george duke - reach out"},
		slices.Collect(Extract([]byte(page))))

	// more than one hyphen makes the split ambiguous
	got := slices.Collect(NewExtractor(nil).Mentions([]byte(page)))
	assert.Equal(t, []Mention{{Artist: "george duke", Title: "reach out"}}, got)
}

func TestIsTitleLine(t *testing.T) {
	for _, line := range []string{`"Changes"`, `“Changes”`, `„Changes“`, `«Changes»`, `Changes"`, `"Changes`} {
		assert.True(t, isTitleLine(line), line)
	}
	for _, line := range []string{`Changes`, `– George Duke`, `'Round Midnight`} {
		assert.False(t, isTitleLine(line), line)
	}
}

func TestIsArtistLine(t *testing.T) {
	assert.True(t, isArtistLine("- George Duke"))
	assert.True(t, isArtistLine("– George Duke"))
	assert.True(t, isArtistLine("— George Duke"))
	assert.False(t, isArtistLine("George Duke"))
}

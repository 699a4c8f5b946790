package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garry/showsync/showpage"
	"github.com/garry/showsync/spotify"
	"github.com/garry/showsync/tracklist"
)

const showPage = `<html><body>
<h2>Playlist der Show vom 12.10.2025</h2>
<p>"Changes"</p><p>- Flo Naegeli &amp; August Charles</p>
<p>"Reach Out"</p><p>- George Duke</p>
<p>"Close That Door"</p><p>- Fred Kingdom</p>
</body></html>`

type fakePage struct {
	body []byte
	err  error
}

func (p *fakePage) Fetch(ctx context.Context) ([]byte, error) { return p.body, p.err }
func (p *fakePage) URL() string                                 { return "https://example.com/show" }

// fakeMatcher resolves mentions from a "artist - title" keyed catalog
type fakeMatcher struct {
	catalog map[string]spotify.Match
	failOn  string
	calls   []string
}

func (m *fakeMatcher) MatchTrack(ctx context.Context, artist, title string) (*spotify.Match, error) {
	key := artist + " - " + title
	m.calls = append(m.calls, key)
	if key == m.failOn {
		return nil, errors.New("search unavailable")
	}
	match, ok := m.catalog[key]
	if !ok {
		return nil, nil
	}
	return &match, nil
}

type fakePlaylist struct {
	existing *spotify.ExistingTracks
	err      error
	reads    int
}

func (p *fakePlaylist) ReadPlaylist(ctx context.Context, playlistID string) (*spotify.ExistingTracks, error) {
	p.reads++
	if p.err != nil {
		return nil, p.err
	}
	if p.existing == nil {
		return spotify.NewExistingTracks(), nil
	}
	return p.existing, nil
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	original := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { sleep = original })
	return &waits
}

func fixtureCatalog() map[string]spotify.Match {
	return map[string]spotify.Match{
		"flo naegeli & august charles - changes": {TrackID: "id-changes", Artist: "flo naegeli", Title: "changes"},
		"george duke - reach out":                {TrackID: "id-reach", Artist: "george duke", Title: "reach out"},
		"fred kingdom - close that door":         {TrackID: "id-door", Artist: "fred kingdom", Title: "close that door"},
	}
}

func newEngine(t *testing.T, page PageSource, matcher TrackMatcher, playlist PlaylistReader) *Engine {
	t.Helper()
	engine, err := NewEngine(Options{
		Page:       page,
		Matcher:    matcher,
		Playlist:   playlist,
		PlaylistID: "playlist-1",
	})
	require.NoError(t, err)
	return engine
}

func TestNewEngineRequiresPlaylist(t *testing.T) {
	_, err := NewEngine(Options{Page: &fakePage{}, Matcher: &fakeMatcher{}, Playlist: &fakePlaylist{}})
	assert.ErrorIs(t, err, ErrNoPlaylist)

	_, err = NewEngine(Options{PlaylistID: "x"})
	assert.Error(t, err)
}

func TestRunAddsAllNewTracks(t *testing.T) {
	waits := stubSleep(t)
	matcher := &fakeMatcher{catalog: fixtureCatalog()}
	playlist := &fakePlaylist{}
	engine := newEngine(t, &fakePage{body: []byte(showPage)}, matcher, playlist)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"id-changes", "id-reach", "id-door"}, result.ToAdd); diff != "" {
		t.Errorf("ToAdd mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, result.Mentions, 3)
	assert.Empty(t, result.Unmatched)
	assert.Equal(t, 1, playlist.reads)
	assert.Equal(t, []time.Duration{SearchPause, SearchPause}, *waits, "pause before every search but the first")
}

func TestRunSkipsExistingPairUnderNewID(t *testing.T) {
	stubSleep(t)
	playlist := &fakePlaylist{existing: spotify.NewExistingTracks(
		spotify.PlaylistEntry{TrackID: "old-reach-id", Artist: "George Duke", Title: "Reach Out"},
	)}
	engine := newEngine(t, &fakePage{body: []byte(showPage)}, &fakeMatcher{catalog: fixtureCatalog()}, playlist)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id-changes", "id-door"}, result.ToAdd)
	assert.Equal(t, 1, result.Existing)
}

func TestRunIsIdempotent(t *testing.T) {
	stubSleep(t)
	existing := spotify.NewExistingTracks()
	playlist := &fakePlaylist{existing: existing}
	engine := newEngine(t, &fakePage{body: []byte(showPage)}, &fakeMatcher{catalog: fixtureCatalog()}, playlist)

	first, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first.ToAdd, 3)

	for _, match := range first.Matches {
		existing.Add(spotify.PlaylistEntry{TrackID: match.TrackID, Artist: match.Artist, Title: match.Title})
	}

	second, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.ToAdd)
}

func TestRunRecordsUnmatched(t *testing.T) {
	stubSleep(t)
	catalog := fixtureCatalog()
	delete(catalog, "george duke - reach out")
	engine := newEngine(t, &fakePage{body: []byte(showPage)}, &fakeMatcher{catalog: catalog}, &fakePlaylist{})

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []tracklist.Mention{{Artist: "george duke", Title: "reach out"}}, result.Unmatched)
	assert.Equal(t, []string{"id-changes", "id-door"}, result.ToAdd)
}

func TestRunWithNoMentions(t *testing.T) {
	stubSleep(t)
	matcher := &fakeMatcher{catalog: fixtureCatalog()}
	playlist := &fakePlaylist{}
	engine := newEngine(t, &fakePage{body: []byte("<html><body>Sommerpause</body></html>")}, matcher, playlist)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Mentions)
	assert.Empty(t, result.ToAdd)
	assert.Empty(t, matcher.calls)
	assert.Zero(t, playlist.reads)
}

func TestRunSkipsPlaylistReadWithoutMatches(t *testing.T) {
	stubSleep(t)
	playlist := &fakePlaylist{}
	engine := newEngine(t, &fakePage{body: []byte(showPage)}, &fakeMatcher{}, playlist)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Unmatched, 3)
	assert.Empty(t, result.ToAdd)
	assert.Zero(t, playlist.reads)
}

func TestRunFetchErrorIsFatal(t *testing.T) {
	fetchErr := &showpage.FetchError{URL: "https://example.com/show", StatusCode: 503, Attempts: 3}
	matcher := &fakeMatcher{catalog: fixtureCatalog()}
	engine := newEngine(t, &fakePage{err: fetchErr}, matcher, &fakePlaylist{})

	result, err := engine.Run(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, showpage.ErrFetch)
	assert.Empty(t, matcher.calls)
}

func TestRunSearchErrorIsFatal(t *testing.T) {
	stubSleep(t)
	matcher := &fakeMatcher{catalog: fixtureCatalog(), failOn: "george duke - reach out"}
	playlist := &fakePlaylist{}
	engine := newEngine(t, &fakePage{body: []byte(showPage)}, matcher, playlist)

	result, err := engine.Run(context.Background())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "george duke - reach out")
	assert.Len(t, matcher.calls, 2, "no searches after the failing one")
	assert.Zero(t, playlist.reads)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	original := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = original })

	matcher := &fakeMatcher{catalog: fixtureCatalog()}
	engine := newEngine(t, &fakePage{body: []byte(showPage)}, matcher, &fakePlaylist{})

	_, err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, matcher.calls, 1)
}

func TestFilter(t *testing.T) {
	existing := spotify.NewExistingTracks(
		spotify.PlaylistEntry{TrackID: "a", Artist: "artist a", Title: "song a"},
		spotify.PlaylistEntry{TrackID: "old-b", Artist: "George Duke", Title: "Reach Out"},
	)

	tests := []struct {
		name    string
		matches []spotify.Match
		want    []string
	}{
		{
			name:    "nothing matched",
			matches: nil,
			want:    nil,
		},
		{
			name:    "existing id is dropped",
			matches: []spotify.Match{{TrackID: "a", Artist: "other", Title: "other"}},
			want:    nil,
		},
		{
			name:    "existing pair under new id is dropped",
			matches: []spotify.Match{{TrackID: "new-b", Artist: "george duke", Title: "reach out"}},
			want:    nil,
		},
		{
			name: "order is preserved",
			matches: []spotify.Match{
				{TrackID: "z", Artist: "zed", Title: "last"},
				{TrackID: "y", Artist: "why", Title: "middle"},
				{TrackID: "x", Artist: "ex", Title: "first"},
			},
			want: []string{"z", "y", "x"},
		},
		{
			name: "repeats within a run are collapsed",
			matches: []spotify.Match{
				{TrackID: "c", Artist: "cee", Title: "song c"},
				{TrackID: "c", Artist: "cee", Title: "song c"},
				{TrackID: "c2", Artist: "cee", Title: "song c"},
			},
			want: []string{"c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.matches, existing)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterWithNilSnapshot(t *testing.T) {
	got := Filter([]spotify.Match{{TrackID: "a", Artist: "aa", Title: "bb"}}, nil)
	assert.Equal(t, []string{"a"}, got)
}

// Package syncer runs one synchronization pass: scrape the show page, resolve every
// mention in the catalog and work out which tracks the playlist is still missing.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/garry/showsync/logging"
	"github.com/garry/showsync/pause"
	"github.com/garry/showsync/spotify"
	"github.com/garry/showsync/tracklist"
)

// SearchPause is waited before every catalog search except the first
const SearchPause = time.Second

// ErrNoPlaylist is returned by NewEngine when no target playlist is configured
var ErrNoPlaylist = errors.New("no target playlist configured")

// sleep is replaced in tests
var sleep = pause.Sleep

// PageSource provides the raw show page
type PageSource interface {
	Fetch(ctx context.Context) ([]byte, error)
	URL() string
}

// TrackMatcher resolves one mention to a catalog track. A nil Match means no match.
type TrackMatcher interface {
	MatchTrack(ctx context.Context, artist, title string) (*spotify.Match, error)
}

// PlaylistReader returns the tracks already in a playlist
type PlaylistReader interface {
	ReadPlaylist(ctx context.Context, playlistID string) (*spotify.ExistingTracks, error)
}

// Options wires an Engine. Extractor and Logger are optional.
type Options struct {
	Page       PageSource
	Extractor  *tracklist.Extractor
	Matcher    TrackMatcher
	Playlist   PlaylistReader
	PlaylistID string
	Logger     *log.Logger
}

// Engine computes the tracks to append to one playlist
type Engine struct {
	page       PageSource
	extractor  *tracklist.Extractor
	matcher    TrackMatcher
	playlist   PlaylistReader
	playlistID string
	logger     *log.Logger
}

// Result describes one run. ToAdd is in scrape order.
type Result struct {
	Mentions  []tracklist.Mention
	Matches   []spotify.Match
	Unmatched []tracklist.Mention
	Existing  int
	ToAdd     []string
}

// NewEngine validates opts and creates an Engine
func NewEngine(opts Options) (*Engine, error) {
	if opts.PlaylistID == "" {
		return nil, ErrNoPlaylist
	}
	if opts.Page == nil || opts.Matcher == nil || opts.Playlist == nil {
		return nil, fmt.Errorf("page source, matcher and playlist reader are required")
	}

	logger := logging.OrDiscard(opts.Logger)
	extractor := opts.Extractor
	if extractor == nil {
		extractor = tracklist.NewExtractor(logger)
	}

	return &Engine{
		page:       opts.Page,
		extractor:  extractor,
		matcher:    opts.Matcher,
		playlist:   opts.Playlist,
		playlistID: opts.PlaylistID,
		logger:     logger,
	}, nil
}

// PlaylistID returns the playlist the engine computes additions for
func (e *Engine) PlaylistID() string {
	return e.playlistID
}

// Run performs one pass. A fetch or search failure aborts the run; an empty page does not.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	body, err := e.page.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch show page: %w", err)
	}

	result := &Result{}
	for mention := range e.extractor.Mentions(body) {
		result.Mentions = append(result.Mentions, mention)
	}

	if len(result.Mentions) == 0 {
		e.logger.Warn("no tracks found on show page, possible layout change", "url", e.page.URL())
		return result, nil
	}
	e.logger.Info("extracted mentions", "mentions", len(result.Mentions))

	for i, mention := range result.Mentions {
		if i > 0 {
			if err := sleep(ctx, SearchPause); err != nil {
				return nil, err
			}
		}

		match, err := e.matcher.MatchTrack(ctx, mention.Artist, mention.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to match %q: %w", mention.String(), err)
		}
		if match == nil {
			e.logger.Debug("no match", "mention", mention.String())
			result.Unmatched = append(result.Unmatched, mention)
			continue
		}
		result.Matches = append(result.Matches, *match)
	}

	e.logger.Info("resolved mentions", "matched", len(result.Matches), "unmatched", len(result.Unmatched))
	if len(result.Matches) == 0 {
		return result, nil
	}

	existing, err := e.playlist.ReadPlaylist(ctx, e.playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist %s: %w", e.playlistID, err)
	}
	result.Existing = existing.Len()

	result.ToAdd = Filter(result.Matches, existing)
	e.logger.Info("computed additions", "existing", result.Existing, "to_add", len(result.ToAdd))

	return result, nil
}

// Filter returns the IDs of matches that are not in existing, in order. A match is present
// when its track ID or its (artist, title) pair is, which catches the same recording
// released under another ID. Unlike a plain playlist check, repeats within matches are
// collapsed too: a track played twice in one show is added once.
func Filter(matches []spotify.Match, existing *spotify.ExistingTracks) []string {
	var toAdd []string
	queued := spotify.NewExistingTracks()

	for _, match := range matches {
		if existing.Contains(match) || queued.Contains(match) {
			continue
		}
		queued.Add(spotify.PlaylistEntry{TrackID: match.TrackID, Artist: match.Artist, Title: match.Title})
		toAdd = append(toAdd, match.TrackID)
	}

	return toAdd
}

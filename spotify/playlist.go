package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
)

const (
	// PlaylistPageSize is the number of items requested per playlist page
	PlaylistPageSize = 100

	// MaxPlaylistRequests caps pagination in case the API keeps returning a next cursor
	MaxPlaylistRequests = 1000

	// PlaylistPagePause is waited between two playlist page requests
	PlaylistPagePause = time.Second

	// AddBatchSize is the most track URIs the API accepts in one add request
	AddBatchSize = 100
)

// Pair identifies a recording by lowercase artist and title
type Pair struct {
	Artist string
	Title  string
}

// PlaylistEntry is a track already in the playlist, named after its first credited artist
type PlaylistEntry struct {
	TrackID string
	Artist  string
	Title   string
}

// ExistingTracks is the snapshot of a playlist used to avoid re-adding tracks
type ExistingTracks struct {
	Entries []PlaylistEntry
	IDs     map[string]struct{}
	Pairs   map[Pair]struct{}
}

// NewExistingTracks builds a snapshot from entries
func NewExistingTracks(entries ...PlaylistEntry) *ExistingTracks {
	existing := &ExistingTracks{
		IDs:   make(map[string]struct{}),
		Pairs: make(map[Pair]struct{}),
	}
	for _, entry := range entries {
		existing.Add(entry)
	}
	return existing
}

// Add records entry, lowercasing its names
func (e *ExistingTracks) Add(entry PlaylistEntry) {
	entry.Artist = strings.ToLower(entry.Artist)
	entry.Title = strings.ToLower(entry.Title)

	e.Entries = append(e.Entries, entry)
	e.IDs[entry.TrackID] = struct{}{}
	e.Pairs[Pair{Artist: entry.Artist, Title: entry.Title}] = struct{}{}
}

// Contains reports whether m is present by track ID or by (artist, title)
func (e *ExistingTracks) Contains(m Match) bool {
	if e == nil {
		return false
	}
	if _, ok := e.IDs[m.TrackID]; ok {
		return true
	}
	_, ok := e.Pairs[m.Pair()]
	return ok
}

// Len returns the number of entries read
func (e *ExistingTracks) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Entries)
}

// ReadPlaylist pages through the playlist, pausing between pages.
//
// A failing page ends pagination and the tracks read so far are returned without error.
// Pagination also stops after MaxPlaylistRequests requests.
func (c *Client) ReadPlaylist(ctx context.Context, playlistID string) (*ExistingTracks, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlist ID cannot be empty")
	}

	existing := NewExistingTracks()

	page, err := c.client.GetPlaylistTracks(ctx, spotify.ID(playlistID), spotify.Limit(PlaylistPageSize), spotify.Offset(0))
	requests := 1

	for {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return existing, ctxErr
			}
			c.logger.Warn("playlist read stopped early, continuing with partial snapshot",
				"playlist", playlistID, "requests", requests, "tracks", existing.Len(), "err", err)
			break
		}

		for _, item := range page.Tracks {
			addPlaylistTrack(existing, item.Track)
		}

		if page.Next == "" {
			break
		}
		if requests >= MaxPlaylistRequests {
			c.logger.Warn("playlist pagination cap reached", "playlist", playlistID, "requests", requests)
			break
		}

		if err := sleep(ctx, PlaylistPagePause); err != nil {
			return existing, err
		}

		err = c.client.NextPage(ctx, page)
		requests++
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
	}

	c.logger.Debug("read playlist", "playlist", playlistID, "tracks", existing.Len(), "requests", requests)
	return existing, nil
}

// addPlaylistTrack skips items without a track ID (local files, removed tracks)
func addPlaylistTrack(existing *ExistingTracks, track spotify.FullTrack) {
	if track.ID == "" {
		return
	}

	artist := ""
	if len(track.Artists) > 0 {
		artist = track.Artists[0].Name
	}

	existing.Add(PlaylistEntry{
		TrackID: string(track.ID),
		Artist:  artist,
		Title:   track.Name,
	})
}

// AddTracks appends trackIDs to the playlist in order, in batches of AddBatchSize, and
// returns the snapshot ID of the last batch. Failures are returned, not retried.
func (c *Client) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (string, error) {
	if len(trackIDs) == 0 {
		return "", nil
	}
	if playlistID == "" {
		return "", fmt.Errorf("playlist ID cannot be empty")
	}

	var snapshotID string
	for start := 0; start < len(trackIDs); start += AddBatchSize {
		end := min(start+AddBatchSize, len(trackIDs))

		ids := make([]spotify.ID, 0, end-start)
		for _, id := range trackIDs[start:end] {
			ids = append(ids, spotify.ID(id))
		}

		snapshot, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...)
		if err != nil {
			return snapshotID, fmt.Errorf("failed to add tracks %d-%d to playlist %s: %w", start+1, end, playlistID, err)
		}
		snapshotID = snapshot
	}

	c.logger.Info("added tracks to playlist", "playlist", playlistID, "count", len(trackIDs), "snapshot", snapshotID)
	return snapshotID, nil
}

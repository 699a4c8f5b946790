package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SearchLimit is the number of search results considered per mention
const SearchLimit = 10

// Match is a catalog track accepted for a mention. Artist is the credited artist that
// cleared the threshold; both names are lowercase.
type Match struct {
	TrackID string
	Artist  string
	Title   string
}

// Pair returns the (artist, title) key used for de-duplication
func (m Match) Pair() Pair {
	return Pair{Artist: m.Artist, Title: m.Title}
}

// BuildSearchQuery biases the search toward studio recordings with a "remaster" term and
// field filters for the track and artist. Values are title-cased like catalog metadata.
func BuildSearchQuery(artist, title string) string {
	caser := cases.Title(language.Und)
	return fmt.Sprintf("remaster track:%s artist:%s", caser.String(title), caser.String(artist))
}

// MatchTrack searches the catalog and returns the first result whose artist and title both
// reach the similarity threshold. A nil Match with a nil error means nothing qualified.
// Request failures are returned as errors and are not retried.
func (c *Client) MatchTrack(ctx context.Context, artist, title string) (*Match, error) {
	if artist == "" || title == "" {
		return nil, fmt.Errorf("artist and title cannot be empty")
	}

	query := BuildSearchQuery(artist, title)
	result, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(SearchLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}

	if result == nil || result.Tracks == nil {
		return nil, nil
	}

	match := SelectMatch(result.Tracks.Tracks, artist, title, c.threshold)
	if match != nil {
		c.logger.Debug("matched mention", "artist", artist, "title", title, "track", match.TrackID,
			"catalog_artist", match.Artist, "catalog_title", match.Title)
	} else {
		c.logger.Debug("no catalog match", "artist", artist, "title", title, "results", len(result.Tracks.Tracks))
	}
	return match, nil
}

// SelectMatch walks tracks in ranking order and returns the first track that has a credited
// artist with Similarity >= threshold to artist while its name has Similarity >= threshold to
// title. The first qualifying track wins even if a later one would score higher.
func SelectMatch(tracks []spotify.FullTrack, artist, title string, threshold float64) *Match {
	artist = strings.ToLower(strings.TrimSpace(artist))
	title = strings.ToLower(strings.TrimSpace(title))

	for _, track := range tracks {
		if track.ID == "" {
			continue
		}

		trackName := strings.ToLower(track.Name)
		if Similarity(trackName, title) < threshold {
			continue
		}

		for _, credited := range track.Artists {
			creditedName := strings.ToLower(credited.Name)
			if Similarity(creditedName, artist) >= threshold {
				return &Match{
					TrackID: string(track.ID),
					Artist:  creditedName,
					Title:   trackName,
				}
			}
		}
	}

	return nil
}

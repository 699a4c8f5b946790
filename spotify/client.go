package spotify

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"

	"github.com/garry/showsync/config"
	"github.com/garry/showsync/logging"
	"github.com/garry/showsync/pause"
)

// sleep is replaced in tests
var sleep = pause.Sleep

// Client wraps the Spotify API client
type Client struct {
	client    *spotify.Client
	threshold float64
	logger    *log.Logger
}

// NewClient creates a Spotify client on top of an authenticated httpClient (see [NewHTTPClient]).
// cfg supplies the match threshold and an optional API base URL.
func NewClient(httpClient *http.Client, cfg *config.Config, logger *log.Logger) *Client {
	var opts []spotify.ClientOption
	if cfg.Spotify.APIURL != "" {
		baseURL := cfg.Spotify.APIURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, spotify.WithBaseURL(baseURL))
	}

	threshold := cfg.Match.Threshold
	if threshold <= 0 {
		threshold = config.DefaultMatchThreshold
	}

	return &Client{
		client:    spotify.New(httpClient, opts...),
		threshold: threshold,
		logger:    logging.OrDiscard(logger),
	}
}

// Threshold returns the per-field similarity a search result must reach
func (c *Client) Threshold() float64 {
	return c.threshold
}

package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/garry/showsync/config"
)

// DefaultHTTPTimeout bounds every Web API call
const DefaultHTTPTimeout = 10 * time.Second

// NewTokenSource exchanges the long-lived refresh token for an access token.
//
// The first refresh happens here so that revoked or mistyped credentials fail the run
// before the show page is scraped. The returned source refreshes again on expiry.
func NewTokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	if cfg.Spotify.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token cannot be empty")
	}

	tokenURL := cfg.Spotify.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.Spotify.RefreshToken})
	if _, err := tokenSource.Token(); err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	return tokenSource, nil
}

// NewHTTPClient returns an http.Client that sends the bearer token from tokenSource on every request
func NewHTTPClient(tokenSource oauth2.TokenSource) *http.Client {
	return &http.Client{
		Timeout: DefaultHTTPTimeout,
		Transport: &oauth2.Transport{
			Source: tokenSource,
			Base:   http.DefaultTransport,
		},
	}
}

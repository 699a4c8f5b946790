package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults for the show being tracked and the playlist it feeds.
const (
	DefaultShowURL        = "https://superfly.fm/shows/superfly-yachthafen"
	DefaultShowUserAgent  = "Mozilla/5.0 (compatible; ShowSyncBot/1.0; +https://github.com/garry/showsync)"
	DefaultPlaylistID     = "7jNg10gzkESHZ0SiX8FtlG"
	DefaultMatchThreshold = 0.8
	DefaultConfigFile     = "showsync.toml"
	DefaultLogLevel       = "info"
)

// ErrMissingConfig is wrapped by validation errors for absent required values.
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds all configuration values
type Config struct {
	Spotify  SpotifyConfig `toml:"spotify"`
	Show     ShowConfig    `toml:"show"`
	Match    MatchConfig   `toml:"match"`
	LogLevel string        `toml:"log_level"`
}

// SpotifyConfig holds Spotify API configuration
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	PlaylistID   string `toml:"playlist_id"` // Playlist the show's tracks are appended to
	APIURL       string `toml:"api_url"`     // Empty means the public Web API
	TokenURL     string `toml:"token_url"`   // Empty means the public accounts service
}

// ShowConfig describes the radio show page that is scraped
type ShowConfig struct {
	URL       string `toml:"url"`
	UserAgent string `toml:"user_agent"`
}

// MatchConfig tunes the fuzzy catalog matching
type MatchConfig struct {
	Threshold float64 `toml:"threshold"`
}

// Load loads configuration in this order:
// 1. Start with defaults
// 2. Load from the TOML file at path (only if it exists)
// 3. Load from OS environment variables (only if they exist)
// 4. Load from .env file (only if it exists and values exist)
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides loads configuration and applies CLI flag overrides last
func LoadWithOverrides(path string, overrides map[string]string) (*Config, error) {
	config := &Config{}

	config.initializeDefaults()

	if err := config.loadFromFile(path); err != nil {
		return nil, err
	}

	config.loadFromOSEnv()

	config.loadFromEnvFile()

	config.applyOverrides(overrides)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// initializeDefaults sets up the initial configuration with default values
func (c *Config) initializeDefaults() {
	c.Spotify = SpotifyConfig{
		PlaylistID: DefaultPlaylistID,
	}
	c.Show = ShowConfig{
		URL:       DefaultShowURL,
		UserAgent: DefaultShowUserAgent,
	}
	c.Match = MatchConfig{
		Threshold: DefaultMatchThreshold,
	}
	c.LogLevel = DefaultLogLevel
}

// loadFromFile decodes the TOML file over the current values. Only a missing
// DefaultConfigFile is skipped; an explicitly named file must exist and be readable.
func (c *Config) loadFromFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if path == DefaultConfigFile && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromOSEnv loads configuration from OS environment variables (only if they exist)
func (c *Config) loadFromOSEnv() {
	for _, key := range envKeys {
		if value := os.Getenv(key); value != "" {
			c.set(key, value)
		}
	}
}

// loadFromEnvFile loads configuration from .env file (only if it exists and values exist).
// godotenv never overrides variables that are already set in the process environment.
func (c *Config) loadFromEnvFile() {
	if err := godotenv.Load(); err != nil {
		// .env file doesn't exist, skip this step
		return
	}

	c.loadFromOSEnv()
}

// applyOverrides applies CLI flag overrides to the configuration (only if they exist)
func (c *Config) applyOverrides(overrides map[string]string) {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		c.set(key, value)
	}
}

var envKeys = []string{
	"SPOTIFY_CLIENT_ID",
	"SPOTIFY_CLIENT_SECRET",
	"SPOTIFY_REFRESH_TOKEN",
	"SPOTIFY_PLAYLIST_ID",
	"SPOTIFY_API_URL",
	"SPOTIFY_TOKEN_URL",
	"SHOW_URL",
	"SHOW_USER_AGENT",
	"MATCH_THRESHOLD",
	"LOG_LEVEL",
}

// set assigns a single keyed value. Unparseable thresholds are ignored and caught by validate.
func (c *Config) set(key, value string) {
	value = strings.TrimSpace(value)

	switch key {
	case "SPOTIFY_CLIENT_ID":
		c.Spotify.ClientID = value
	case "SPOTIFY_CLIENT_SECRET":
		c.Spotify.ClientSecret = value
	case "SPOTIFY_REFRESH_TOKEN":
		c.Spotify.RefreshToken = value
	case "SPOTIFY_PLAYLIST_ID":
		c.Spotify.PlaylistID = parsePlaylistID(value)
	case "SPOTIFY_API_URL":
		c.Spotify.APIURL = value
	case "SPOTIFY_TOKEN_URL":
		c.Spotify.TokenURL = value
	case "SHOW_URL":
		c.Show.URL = value
	case "SHOW_USER_AGENT":
		c.Show.UserAgent = value
	case "MATCH_THRESHOLD":
		if threshold, err := parseThreshold(value); err == nil {
			c.Match.Threshold = threshold
		} else {
			c.Match.Threshold = -1
		}
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	}
}

// parsePlaylistID accepts a bare ID, a spotify:playlist: URI or an open.spotify.com link
func parsePlaylistID(value string) string {
	value = strings.TrimPrefix(value, "spotify:playlist:")
	if i := strings.Index(value, "/playlist/"); i >= 0 {
		value = value[i+len("/playlist/"):]
	}
	if i := strings.IndexAny(value, "?#/"); i >= 0 {
		value = value[:i]
	}
	return value
}

// parseThreshold parses a similarity threshold in (0, 1]
func parseThreshold(value string) (float64, error) {
	threshold, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold '%s': %w", value, err)
	}
	if threshold <= 0 || threshold > 1 {
		return 0, fmt.Errorf("threshold %v out of range (0, 1]", threshold)
	}
	return threshold, nil
}

// validate checks that all required configuration values are present
func (c *Config) validate() error {
	var missingFields []string

	if c.Spotify.ClientID == "" {
		missingFields = append(missingFields, "SPOTIFY_CLIENT_ID")
	}
	if c.Spotify.ClientSecret == "" {
		missingFields = append(missingFields, "SPOTIFY_CLIENT_SECRET")
	}
	if c.Spotify.RefreshToken == "" {
		missingFields = append(missingFields, "SPOTIFY_REFRESH_TOKEN")
	}
	if c.Spotify.PlaylistID == "" {
		missingFields = append(missingFields, "SPOTIFY_PLAYLIST_ID")
	}
	if c.Show.URL == "" {
		missingFields = append(missingFields, "SHOW_URL")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("%w:\n%s\n\nSet these values via environment variables, .env file, %s or CLI flags",
			ErrMissingConfig, strings.Join(missingFields, "\n"), DefaultConfigFile)
	}

	if c.Match.Threshold <= 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %v", c.Match.Threshold)
	}

	return nil
}

// LoadShow loads only what is needed to scrape the show page, without requiring Spotify credentials
func LoadShow(path string, overrides map[string]string) (*Config, error) {
	config := &Config{}
	config.initializeDefaults()
	if err := config.loadFromFile(path); err != nil {
		return nil, err
	}
	config.loadFromOSEnv()
	config.loadFromEnvFile()
	config.applyOverrides(overrides)

	if config.Show.URL == "" {
		return nil, fmt.Errorf("%w: SHOW_URL", ErrMissingConfig)
	}
	return config, nil
}

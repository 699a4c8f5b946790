package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/garry/showsync/config"
	"github.com/garry/showsync/logging"
	"github.com/garry/showsync/showpage"
	"github.com/garry/showsync/spotify"
	"github.com/garry/showsync/syncer"
	"github.com/garry/showsync/tracklist"
)

// Version information - set during build
var version = "dev"

// Constants for display formatting
const (
	separatorLine   = "="
	separatorLength = 80
)

// Exit codes
const (
	exitCodeSuccess     = 0
	exitCodeRunError    = 1
	exitCodeConfigError = 2
	exitCodeClientError = 3
)

var (
	errConfig = errors.New("configuration error")
	errClient = errors.New("spotify client error")
)

// Application represents the state of one command invocation
type Application struct {
	config        *config.Config
	logger        *log.Logger
	output        io.Writer
	fetcher       *showpage.Fetcher
	extractor     *tracklist.Extractor
	spotifyClient *spotify.Client
}

// NewApplication creates an application that only reads the show page
func NewApplication(cfg *config.Config, logger *log.Logger, output io.Writer) *Application {
	return &Application{
		config:    cfg,
		logger:    logger,
		output:    output,
		fetcher:   showpage.NewFetcher(cfg.Show.URL, cfg.Show.UserAgent, nil, logger),
		extractor: tracklist.NewExtractor(logger),
	}
}

// ConnectSpotify refreshes the access token and creates the Spotify client
func (app *Application) ConnectSpotify(ctx context.Context) error {
	tokenSource, err := spotify.NewTokenSource(ctx, app.config)
	if err != nil {
		return fmt.Errorf("%w: %w", errClient, err)
	}

	app.spotifyClient = spotify.NewClient(spotify.NewHTTPClient(tokenSource), app.config, app.logger)
	return nil
}

// Sync computes the missing tracks and appends them to the playlist unless dryRun is set
func (app *Application) Sync(ctx context.Context, dryRun bool) error {
	playlistID := app.config.Spotify.PlaylistID

	engine, err := syncer.NewEngine(syncer.Options{
		Page:       app.fetcher,
		Extractor:  app.extractor,
		Matcher:    app.spotifyClient,
		Playlist:   app.spotifyClient,
		PlaylistID: playlistID,
		Logger:     app.logger,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}

	app.logger.Info("syncing show", "url", app.fetcher.URL(), "playlist", playlistID, "dry_run", dryRun)

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	app.displayResult(result)

	if len(result.ToAdd) == 0 {
		fmt.Fprintln(app.output, "\n✅ Playlist is up to date, no new tracks")
		return nil
	}
	if dryRun {
		fmt.Fprintf(app.output, "\n🔍 Dry run: %d track(s) would be added to playlist %s\n", len(result.ToAdd), playlistID)
		return nil
	}

	snapshotID, err := app.spotifyClient.AddTracks(ctx, playlistID, result.ToAdd)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	fmt.Fprintf(app.output, "\n🎉 Added %d track(s) to playlist %s (snapshot %s)\n", len(result.ToAdd), playlistID, snapshotID)
	return nil
}

// Extract prints the mentions found on the show page
func (app *Application) Extract(ctx context.Context, asJSON bool) error {
	body, err := app.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	mentions := slices.Collect(app.extractor.Extract(body))

	if asJSON {
		if mentions == nil {
			mentions = []string{}
		}
		encoder := json.NewEncoder(app.output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(mentions)
	}

	if len(mentions) == 0 {
		fmt.Fprintln(app.output, "❌ No tracks found on the show page")
		return nil
	}

	fmt.Fprintf(app.output, "Tracks on %s (%d total):\n", app.fetcher.URL(), len(mentions))
	fmt.Fprintln(app.output, strings.Repeat("-", 60))
	for i, mention := range mentions {
		fmt.Fprintf(app.output, "%3d. %s\n", i+1, mention)
	}
	return nil
}

// Match resolves a single "artist - title" mention and prints the result
func (app *Application) Match(ctx context.Context, query string) error {
	mention, ok := tracklist.ParseMention(query)
	if !ok {
		return fmt.Errorf("expected \"artist - title\", got %q", query)
	}

	match, err := app.spotifyClient.MatchTrack(ctx, mention.Artist, mention.Title)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.output, "🔍 %s\n", mention)
	fmt.Fprintf(app.output, "   Query: %s\n", spotify.BuildSearchQuery(mention.Artist, mention.Title))
	if match == nil {
		fmt.Fprintf(app.output, "❌ No match at threshold %.2f\n", app.spotifyClient.Threshold())
		return nil
	}

	fmt.Fprintf(app.output, "✅ %s - %s\n", match.Artist, match.Title)
	fmt.Fprintf(app.output, "   Spotify track ID: %s - https://open.spotify.com/track/%s\n", match.TrackID, match.TrackID)
	return nil
}

// displayResult prints the outcome of a sync run
func (app *Application) displayResult(result *syncer.Result) {
	fmt.Fprintln(app.output, strings.Repeat(separatorLine, separatorLength))
	fmt.Fprintln(app.output, "SYNC RESULTS")
	fmt.Fprintln(app.output, strings.Repeat(separatorLine, separatorLength))

	if len(result.Mentions) == 0 {
		fmt.Fprintln(app.output, "❌ No tracks found on the show page (has the layout changed?)")
		return
	}

	fmt.Fprintf(app.output, "Tracks on the show page: %d\n", len(result.Mentions))
	fmt.Fprintf(app.output, "Matched on Spotify: %d (%.1f%%)\n", len(result.Matches), percent(len(result.Matches), len(result.Mentions)))
	fmt.Fprintf(app.output, "Already in playlist (%d tracks): %d\n", result.Existing, len(result.Matches)-len(result.ToAdd))
	fmt.Fprintf(app.output, "New tracks: %d\n", len(result.ToAdd))

	if len(result.Unmatched) > 0 {
		fmt.Fprintf(app.output, "\nNot found on Spotify (%d total):\n", len(result.Unmatched))
		fmt.Fprintln(app.output, strings.Repeat("-", 60))
		for i, mention := range result.Unmatched {
			fmt.Fprintf(app.output, "%3d. %s\n", i+1, mention)
		}
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Runner builds an Application for each command from its flags
type Runner struct {
	output    io.Writer
	logOutput io.Writer
}

// loadConfig layers CLI flags over the configuration file and environment.
// Commands that only read the show page do not need Spotify credentials.
func (r *Runner) loadConfig(cmd *cli.Command, needSpotify bool) (*config.Config, error) {
	overrides := map[string]string{
		"SPOTIFY_PLAYLIST_ID": cmd.String("playlist"),
		"SHOW_URL":            cmd.String("show-url"),
	}
	if cmd.Bool("debug") {
		overrides["LOG_LEVEL"] = "debug"
	}

	load := config.LoadShow
	if needSpotify {
		load = config.LoadWithOverrides
	}

	cfg, err := load(cmd.String("config"), overrides)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

func (r *Runner) newApplication(ctx context.Context, cmd *cli.Command, needSpotify bool) (*Application, error) {
	cfg, err := r.loadConfig(cmd, needSpotify)
	if err != nil {
		return nil, err
	}

	app := NewApplication(cfg, logging.New(r.logOutput, cfg.LogLevel), r.output)
	if needSpotify {
		if err := app.ConnectSpotify(ctx); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Sync is the action of the sync command
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	app, err := r.newApplication(ctx, cmd, true)
	if err != nil {
		return err
	}
	return app.Sync(ctx, cmd.Bool("dry-run"))
}

// Extract is the action of the extract command
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	app, err := r.newApplication(ctx, cmd, false)
	if err != nil {
		return err
	}
	return app.Extract(ctx, cmd.Bool("json"))
}

// Match is the action of the match command
func (r *Runner) Match(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("usage: showsync match \"artist - title\"")
	}

	app, err := r.newApplication(ctx, cmd, true)
	if err != nil {
		return err
	}
	return app.Match(ctx, query)
}

func showURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "show-url",
		Usage: "Show page to scrape (overrides SHOW_URL)",
	}
}

// newCommand builds the command tree; output receives results and logOutput receives logs
func newCommand(output, logOutput io.Writer) *cli.Command {
	r := &Runner{output: output, logOutput: logOutput}

	return &cli.Command{
		Name:    "showsync",
		Usage:   "Append the tracks played on a radio show to a Spotify playlist",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   config.DefaultConfigFile,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug output (extraction and matching decisions)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Add the show's new tracks to the playlist",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report the tracks that would be added without changing the playlist",
					},
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Target playlist ID, URI or link (overrides SPOTIFY_PLAYLIST_ID)",
					},
					showURLFlag(),
				},
				Action: r.Sync,
			},
			{
				Name:  "extract",
				Usage: "Print the tracks found on the show page",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output a JSON array",
					},
					showURLFlag(),
				},
				Action: r.Extract,
			},
			{
				Name:      "match",
				Usage:     "Look up one \"artist - title\" mention on Spotify",
				ArgsUsage: "\"artist - title\"",
				Action:    r.Match,
			},
		},
	}
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitCodeSuccess
	case errors.Is(err, errConfig), errors.Is(err, config.ErrMissingConfig):
		return exitCodeConfigError
	case errors.Is(err, errClient):
		return exitCodeClientError
	default:
		return exitCodeRunError
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newCommand(os.Stdout, os.Stderr).Run(ctx, os.Args)
	stop()

	if err != nil {
		logging.New(os.Stderr, config.DefaultLogLevel).Error("showsync failed", "err", err)
		os.Exit(exitCode(err))
	}
}

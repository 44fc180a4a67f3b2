package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/lunastream/internal/formatter"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/urfave/cli/v3"
)

const trackTimeout = 3 * time.Second

// PlayMovie opens a movie in the configured player and records the start of playback.
func (r *Runner) PlayMovie(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	title := r.lookupTitle(ctx, models.KindMovie, id)
	return r.play(ctx, cmd, title, formatter.EmbedRequest{Kind: models.KindMovie, ID: id})
}

// PlayTV opens an episode. Without --season and --episode the saved episode is resumed, or S1E1.
func (r *Runner) PlayTV(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}

	season, episode := cmd.Int("season"), cmd.Int("episode")
	if season == 0 && episode == 0 {
		key := models.ProgressKey(models.Series, id)
		for _, entry := range r.progress.Continue(ctx) {
			if entry.Key() == key && entry.HasEpisode() {
				season, episode = entry.Season, entry.Episode
				r.logger.Debug("resuming saved episode", "id", id, "season", season, "episode", episode)
				break
			}
		}
	}
	season, episode = max(season, 1), max(episode, 1)

	title := r.lookupTitle(ctx, models.KindSeries, id)
	return r.play(ctx, cmd, title, formatter.EmbedRequest{Kind: models.KindSeries, ID: id, Season: season, Episode: episode})
}

// PlayAnime opens an anime episode. Anime playback is not tracked in continue-watching.
func (r *Runner) PlayAnime(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	title := models.Title{Kind: models.KindAnime, ID: id, Name: fmt.Sprintf("anime %d", id)}
	return r.play(ctx, cmd, title, formatter.EmbedRequest{
		Kind:    models.KindAnime,
		ID:      id,
		Episode: max(cmd.Int("episode"), 1),
		Dub:     cmd.Bool("dub"),
	})
}

// PlayResume opens the most recent continue-watching entry.
func (r *Runner) PlayResume(ctx context.Context, cmd *cli.Command) error {
	entries := r.progress.Continue(ctx)
	if len(entries) == 0 {
		return fmt.Errorf("%w: nothing to resume", shared.ErrNotFound)
	}
	entry := entries[0]

	title := models.Title{Kind: titleKind(entry.Kind), ID: entry.SubjectID, Name: entry.Title, PosterURL: entry.PosterPath}
	return r.play(ctx, cmd, title, formatter.EmbedRequest{
		Kind:    title.Kind,
		ID:      entry.SubjectID,
		Season:  entry.Season,
		Episode: entry.Episode,
	})
}

// play resolves the embed URL, records playback and opens or prints the URL.
//
// Movies and series use the player from settings unless --player is given; anime only uses --player.
func (r *Runner) play(ctx context.Context, cmd *cli.Command, title models.Title, req formatter.EmbedRequest) error {
	settings, err := r.settings.Get()
	if err != nil {
		r.logger.Warn("failed to read settings, using defaults", "error", err)
		settings = models.DefaultSettings()
	}

	req.Accent = settings.AccentColor
	if req.Kind == models.KindAnime {
		req.Player = cmd.String("player")
	} else {
		req.Player = cmp.Or(cmd.String("player"), settings.Player)
	}

	url, err := formatter.EmbedURL(req)
	if err != nil {
		return err
	}

	if req.Kind != models.KindAnime {
		if err := r.progress.StartPlayback(ctx, title, req.Season, req.Episode); err != nil {
			r.logger.Warn("failed to record playback", "title", title.Name, "error", err)
		}
	}
	r.track(ctx, models.EventWatch)

	if cmd.Bool("print") {
		return r.writePlain("%s\n", url)
	}

	label := title.Name
	if req.Kind == models.KindSeries {
		label = fmt.Sprintf("%s S%dE%d", title.Name, req.Season, req.Episode)
	}
	r.writePlain("▶ Playing %s\n", label)
	if err := r.open(url); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlain("Open this URL in your browser:\n%s\n", url)
	}
	return nil
}

// lookupTitle fetches display details, falling back to a bare title when the provider fails.
func (r *Runner) lookupTitle(ctx context.Context, kind models.TitleKind, id int) models.Title {
	title, err := r.catalog.Details(ctx, kind, id)
	if err != nil {
		r.logger.Warn("failed to look up title", "kind", kind, "id", id, "error", err)
		return models.Title{Kind: kind, ID: id, Name: fmt.Sprintf("%s %d", kind, id)}
	}
	return *title
}

// track records a usage event. Failures are only logged.
func (r *Runner) track(ctx context.Context, event models.TrackEvent) {
	if r.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, trackTimeout)
	defer cancel()
	if err := r.api.Track(ctx, event); err != nil {
		r.logger.Debug("failed to track event", "event", event, "error", err)
	}
}

// Players lists the embed players for movies and series, or anime with --anime.
func (r *Runner) Players(ctx context.Context, cmd *cli.Command) error {
	players := formatter.Players()
	if cmd.Bool("anime") {
		players = formatter.AnimePlayers()
	}

	if cmd.Bool("json") {
		return r.writeJSON(players, cmd.Bool("pretty"))
	}

	current := models.DefaultSettings().Player
	if settings, err := r.settings.Get(); err == nil {
		current = settings.Player
	}
	for _, p := range players {
		marker := " "
		if p.ID == current {
			marker = "*"
		}
		r.writePlain("%s %-14s %s\n", marker, p.ID, p.Name)
	}
	return nil
}

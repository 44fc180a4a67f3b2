package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SportsLive lists live matches grouped by sport.
func (r *Runner) SportsLive(ctx context.Context, cmd *cli.Command) error {
	groups, err := tasks.LiveMatches(ctx, r.sports, cmd.String("sport"), cmd.Bool("popular"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(groups, cmd.Bool("pretty"))
	}
	if len(groups) == 0 {
		return r.writePlain("No live matches right now\n")
	}

	for _, group := range groups {
		r.writePlainln("%s (%d)", group.Sport, len(group.Matches))
		for _, m := range group.Matches {
			started := m.Date.Local().Format(time.Kitchen)
			r.writePlain("  %-8s %s", started, m.Title)
			if m.Popular {
				r.writePlain(" ★")
			}
			r.writePlain("\n")
			for _, src := range m.Sources {
				r.writePlain("           ↳ luna sports streams %s %s\n", src.Source, src.ID)
			}
		}
	}
	return nil
}

// SportsStreams lists the streams for one match source, optionally opening the first.
func (r *Runner) SportsStreams(ctx context.Context, cmd *cli.Command) error {
	if r.sports == nil {
		return fmt.Errorf("%w: no sports provider", shared.ErrServiceUnavailable)
	}
	source, id := cmd.StringArg("source"), cmd.StringArg("id")
	if source == "" || id == "" {
		return fmt.Errorf("%w: source and id", shared.ErrMissingArgument)
	}

	streams, err := r.sports.Streams(ctx, source, id)
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		if len(streams) == 0 {
			return fmt.Errorf("%w: no streams for %s/%s", shared.ErrNotFound, source, id)
		}
		r.writePlain("▶ Opening stream %d (%s)\n", streams[0].StreamNo, streams[0].Language)
		return r.open(streams[0].EmbedURL)
	}

	if cmd.Bool("json") {
		return r.writeJSON(streams, cmd.Bool("pretty"))
	}
	if len(streams) == 0 {
		return r.writePlain("No streams for %s/%s\n", source, id)
	}
	for _, s := range streams {
		quality := "SD"
		if s.HD {
			quality = "HD"
		}
		r.writePlain("  #%-3d %-3s %-10s %s\n", s.StreamNo, quality, s.Language, s.EmbedURL)
	}
	return nil
}

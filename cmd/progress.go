package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/lunastream/internal/formatter"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/urfave/cli/v3"
)

// ProgressList prints the continue-watching list from the authoritative store.
func (r *Runner) ProgressList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	entries := r.progress.Continue(ctx)
	r.logger.Debug("listed progress", "source", r.progress.Source(), "count", len(entries))

	data, err := formatter.Export(entries, format, r.config.Credentials.TMDB.ImageBaseURL)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ProgressAdd records progress for a movie or series. The title is looked up when --title is omitted.
func (r *Runner) ProgressAdd(ctx context.Context, cmd *cli.Command) error {
	kind, id, err := parseSubject(cmd.StringArg("kind"), cmd.StringArg("id"))
	if err != nil {
		return err
	}

	entry := models.WatchProgressEntry{
		SubjectID:       id,
		Kind:            kind,
		Title:           cmd.String("title"),
		PositionSeconds: cmd.Float("position"),
		DurationSeconds: cmd.Float("duration"),
	}
	if kind == models.Series {
		entry.Season, entry.Episode = cmd.Int("season"), cmd.Int("episode")
	}

	if entry.Title == "" {
		if title, err := r.catalog.Details(ctx, titleKind(kind), id); err != nil {
			r.logger.Warn("failed to look up title, storing without a name", "kind", kind, "id", id, "error", err)
			entry.Title = fmt.Sprintf("%s %d", kind, id)
		} else {
			entry.Title, entry.PosterPath = title.Name, title.PosterURL
		}
	}

	if err := r.progress.Upsert(ctx, entry); err != nil {
		return err
	}
	return r.writePlain("✓ Saved %s to %s progress\n", entry.Label(), r.progress.Source())
}

// ProgressRemove deletes an entry from the authoritative store.
func (r *Runner) ProgressRemove(ctx context.Context, cmd *cli.Command) error {
	kind, id, err := parseSubject(cmd.StringArg("kind"), cmd.StringArg("id"))
	if err != nil {
		return err
	}
	if err := r.progress.Remove(ctx, id, kind); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s\n", models.ProgressKey(kind, id))
}

// ProgressExport writes the continue-watching list to a file.
func (r *Runner) ProgressExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path != "" && !strings.HasSuffix(path, format.Extension()) {
		path += format.Extension()
	}

	entries := r.progress.Continue(ctx)
	written, err := formatter.WriteExport(entries, format, path, r.config.Credentials.TMDB.ImageBaseURL)
	if err != nil {
		return err
	}
	r.logger.Info("exported progress", "path", written, "format", format, "count", len(entries))
	return r.writePlain("✓ Exported %d entries to %s\n", len(entries), written)
}

func parseSubject(rawKind, rawID string) (models.MediaKind, int, error) {
	if rawKind == "" {
		return 0, 0, fmt.Errorf("%w: kind (movie or tv)", shared.ErrMissingArgument)
	}
	kind, err := models.ParseMediaKind(rawKind)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	id, err := parseID(rawID, "id")
	if err != nil {
		return 0, 0, err
	}
	return kind, id, nil
}

func parseID(raw, name string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

func titleKind(kind models.MediaKind) models.TitleKind {
	if kind == models.Series {
		return models.KindSeries
	}
	return models.KindMovie
}

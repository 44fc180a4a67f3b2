package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Search queries every provider in scope and prints the ranked results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	scope, err := tasks.ParseSearchScope(cmd.String("type"))
	if err != nil {
		return err
	}

	status, done := r.logStatus()
	results := r.catalog.Search(ctx, query, scope, status)
	close(status)
	<-done

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}
	if len(results) == 0 {
		return r.writePlain("No results for %q\n", query)
	}
	r.writePlainHeader(fmt.Sprintf("Results for %q (%s)", query, scope))
	r.writeTitles(results)
	return nil
}

// Browse lists popular titles of one kind.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	kind, err := models.ParseTitleKind(cmd.StringArg("kind"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	order := tasks.SortOrder(strings.ToLower(cmd.String("sort")))
	switch order {
	case tasks.SortRelevance, tasks.SortRating, tasks.SortPopularity, tasks.SortRelease:
	default:
		return fmt.Errorf("%w: unknown sort %q", shared.ErrInvalidFlag, order)
	}

	titles, err := r.catalog.Browse(ctx, kind, order)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(titles, cmd.Bool("pretty"))
	}
	r.writePlainHeader(fmt.Sprintf("Popular %s by %s", kind, order))
	r.writeTitles(titles)
	return nil
}

// MovieDetails prints one movie.
func (r *Runner) MovieDetails(ctx context.Context, cmd *cli.Command) error {
	return r.details(ctx, cmd, models.KindMovie)
}

// TVDetails prints one series with its seasons.
func (r *Runner) TVDetails(ctx context.Context, cmd *cli.Command) error {
	return r.details(ctx, cmd, models.KindSeries)
}

// AnimeDetails prints one anime with its relations.
func (r *Runner) AnimeDetails(ctx context.Context, cmd *cli.Command) error {
	return r.details(ctx, cmd, models.KindAnime)
}

func (r *Runner) details(ctx context.Context, cmd *cli.Command, kind models.TitleKind) error {
	id, err := parseID(cmd.StringArg("id"), "id")
	if err != nil {
		return err
	}
	title, err := r.catalog.Details(ctx, kind, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(title, cmd.Bool("pretty"))
	}
	r.writeDetails(title)
	return nil
}

// PersonDetails prints a cast member with their known-for titles and filmography.
func (r *Runner) PersonDetails(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "person id")
	if err != nil {
		return err
	}
	person, err := r.catalog.Person(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(person, cmd.Bool("pretty"))
	}

	r.writePlainHeader(person.Name)
	if person.Department != "" {
		r.writePlain("Known for %s\n", person.Department)
	}
	if person.Birthday != "" {
		r.writePlain("Born: %s", person.Birthday)
		if person.PlaceOfBirth != "" {
			r.writePlain(", %s", person.PlaceOfBirth)
		}
		r.writePlain("\n")
	}
	if person.Biography != "" {
		r.writePlainln("%s", person.Biography)
	}

	if len(person.KnownFor) > 0 {
		r.writePlainln("Known for:")
		for _, c := range person.KnownFor {
			r.writePlain("  %-4s %-8d %s\n", c.Kind, c.ID, c.Name)
		}
	}
	if len(person.Filmography) > 0 {
		r.writePlainln("Filmography:")
		for _, c := range person.Filmography {
			year := c.Year()
			if year == "" {
				year = "TBA"
			}
			r.writePlain("  %s  %s", year, c.Name)
			if c.Character != "" {
				r.writePlain(" as %s", c.Character)
			}
			if c.Rating > 0 {
				r.writePlain("  ★ %.1f", c.Rating)
			}
			r.writePlain("\n")
		}
	}
	return nil
}

// Season prints the episode list of one season.
func (r *Runner) Season(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd.StringArg("id"), "series id")
	if err != nil {
		return err
	}
	number, err := strconv.Atoi(cmd.StringArg("season"))
	if err != nil || number < 0 {
		return fmt.Errorf("%w: season must be a non-negative integer, got %q", shared.ErrInvalidArgument, cmd.StringArg("season"))
	}

	season, err := r.catalog.Season(ctx, id, number)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(season, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d episodes)", season.Name, len(season.Episodes)))
	for _, ep := range season.Episodes {
		r.writePlain("E%02d  %s", ep.Number, ep.Name)
		if ep.AirDate != "" {
			r.writePlain("  (%s)", ep.AirDate)
		}
		if ep.Runtime > 0 {
			r.writePlain("  %dm", ep.Runtime)
		}
		r.writePlain("\n")
	}
	return nil
}

// Home prints the landing page rows. Rows whose provider failed are reported and skipped.
func (r *Runner) Home(ctx context.Context, cmd *cli.Command) error {
	status, done := r.logStatus()
	result, err := r.catalog.Home(ctx, status, tasks.HomeOpts{
		NumWorkers: cmd.Int("workers"),
		MaxTitles:  cmd.Int("limit"),
	})
	close(status)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	for _, section := range result.Sections {
		r.writePlainln("%s", section.Name)
		if section.Err != nil {
			r.writePlain("  ✗ unavailable (%v)\n", section.Err)
			continue
		}
		r.writeTitles(section.Titles)
	}
	if result.Failed > 0 {
		r.writePlainln("⚠ %d of %d rows failed to load", result.Failed, len(result.Sections))
	}
	return nil
}

// logStatus drains catalog status updates into the debug log until the returned channel is closed.
func (r *Runner) logStatus() (chan tasks.StatusUpdate, <-chan struct{}) {
	status := make(chan tasks.StatusUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range status {
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()
	return status, done
}

func (r *Runner) writeTitles(titles []models.Title) {
	for _, t := range titles {
		r.writePlain("  %-6s %-8d %s", t.Kind, t.ID, t.Name)
		if year := t.Year(); year != "" {
			r.writePlain(" (%s)", year)
		}
		if t.Rating > 0 {
			r.writePlain("  ★ %.1f", t.Rating)
		}
		r.writePlain("\n")
	}
}

func (r *Runner) writeDetails(t *models.Title) {
	header := t.Name
	if year := t.Year(); year != "" {
		header += " (" + year + ")"
	}
	r.writePlainHeader(header)
	r.writePlain("Kind: %s  ID: %d  Rating: %.1f\n", t.Kind, t.ID, t.Rating)
	if len(t.Genres) > 0 {
		r.writePlain("Genres: %s\n", strings.Join(t.Genres, ", "))
	}
	if len(t.AltNames) > 0 {
		r.writePlain("Also known as: %s\n", strings.Join(t.AltNames, ", "))
	}
	if t.Overview != "" {
		r.writePlainln("%s", t.Overview)
	}

	switch {
	case t.Movie != nil:
		if t.Movie.RuntimeMinutes > 0 {
			r.writePlain("\nRuntime: %s\n", shared.FormatSeconds(float64(t.Movie.RuntimeMinutes*60)))
		}
		r.writeCast(t.Movie.Cast)
	case t.Series != nil:
		if len(t.Series.Seasons) > 0 {
			r.writePlainln("Seasons:")
			for _, s := range t.Series.Seasons {
				r.writePlain("  %2d. %s (%d episodes)\n", s.Number, s.Name, s.EpisodeCount)
			}
		}
		r.writeCast(t.Series.Cast)
	case t.Anime != nil:
		r.writePlain("\nFormat: %s  Status: %s  Episodes: %d\n", t.Anime.Format, t.Anime.Status, t.Anime.Episodes)
		if len(t.Anime.Studios) > 0 {
			r.writePlain("Studios: %s\n", strings.Join(t.Anime.Studios, ", "))
		}
		if len(t.Anime.Relations) > 0 {
			r.writePlainln("Related:")
			for _, rel := range t.Anime.Relations {
				r.writePlain("  %-8d %s (%s)\n", rel.ID, rel.Name, strings.ToLower(rel.Relation))
			}
		}
	}
}

func (r *Runner) writeCast(cast []models.CastMember) {
	if len(cast) == 0 {
		return
	}
	names := make([]string, 0, 5)
	for i, c := range cast {
		if i == 5 {
			break
		}
		names = append(names, c.Name)
	}
	r.writePlain("Cast: %s\n", strings.Join(names, ", "))
}

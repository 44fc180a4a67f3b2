// package services defines clients for the HTTP APIs LunaStream consumes
//
// TMDB (movies, series), AniList (anime), Streamed (sports), and the LunaStream server itself.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// Metadata is a movie and series metadata provider.
type Metadata interface {
	Name() string

	// SearchMulti searches movies and series together; people are dropped.
	SearchMulti(ctx context.Context, query string) ([]models.Title, error)
	SearchMovies(ctx context.Context, query string) ([]models.Title, error)
	SearchTV(ctx context.Context, query string) ([]models.Title, error)

	// Popular lists popular titles of a single kind ([models.KindMovie] or [models.KindSeries]).
	Popular(ctx context.Context, kind models.TitleKind) ([]models.Title, error)

	// Trending lists trending titles for "day" or "week".
	Trending(ctx context.Context, window string) ([]models.Title, error)

	// Discover lists popular movies in a genre.
	Discover(ctx context.Context, genreID int) ([]models.Title, error)

	// Details fetches a title with credits and trailers.
	Details(ctx context.Context, kind models.TitleKind, id int) (*models.Title, error)

	// Season fetches the episode list for one season of a series.
	Season(ctx context.Context, seriesID, number int) (*models.Season, error)

	// Person fetches a cast member with their known-for titles and filmography.
	Person(ctx context.Context, id int) (*models.Person, error)
}

// Anime is an anime metadata provider.
type Anime interface {
	Name() string
	Trending(ctx context.Context, page, perPage int) ([]models.Title, error)
	Popular(ctx context.Context, page, perPage int) ([]models.Title, error)
	Search(ctx context.Context, query string, page, perPage int) ([]models.Title, error)
	Details(ctx context.Context, id int) (*models.Title, error)
}

// Sports is a live sports aggregator.
type Sports interface {
	Sports(ctx context.Context) ([]models.Sport, error)

	// LiveMatches lists matches in progress, optionally only popular ones.
	LiveMatches(ctx context.Context, popular bool) ([]models.Match, error)

	// Matches lists matches for a sport id, or every sport when sport is "all".
	Matches(ctx context.Context, sport string, popular bool) ([]models.Match, error)
	TodayMatches(ctx context.Context) ([]models.Match, error)
	Streams(ctx context.Context, source, id string) ([]models.Stream, error)
}

// checkResponse maps non-2xx responses to wrapped sentinel errors.
//
// A 404 wraps [shared.ErrNotFound], 401 [shared.ErrNotAuthenticated] and 403 [shared.ErrForbidden]; anything else
// wraps [shared.ErrAPIRequest]. The body is read for a message.
func checkResponse(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errResp struct {
		StatusMessage string `json:"status_message"`
		Error         string `json:"error"`
		Message       string `json:"message"`
	}
	msg := string(body)
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.StatusMessage != "":
			msg = errResp.StatusMessage
		case errResp.Error != "":
			msg = errResp.Error
		case errResp.Message != "":
			msg = errResp.Message
		}
	}

	sentinel := shared.ErrAPIRequest
	if resp.StatusCode == http.StatusNotFound {
		sentinel = shared.ErrNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized {
		sentinel = shared.ErrNotAuthenticated
	}
	if resp.StatusCode == http.StatusForbidden {
		sentinel = shared.ErrForbidden
	}
	return fmt.Errorf("%w: %s API error (status %d): %s", sentinel, provider, resp.StatusCode, msg)
}

// decodeJSON decodes body into result, tolerating an empty body when result is nil.
func decodeJSON(body io.Reader, result any) error {
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

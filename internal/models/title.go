package models

import (
	"fmt"
	"strings"
)

// TitleKind is the discriminant of a [Title], fixed when a provider record is ingested.
type TitleKind string

const (
	KindMovie  TitleKind = "movie"
	KindSeries TitleKind = "tv"
	KindAnime  TitleKind = "anime"
)

// ParseTitleKind parses a kind name.
func ParseTitleKind(s string) (TitleKind, error) {
	switch TitleKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindMovie:
		return KindMovie, nil
	case KindSeries, "series":
		return KindSeries, nil
	case KindAnime:
		return KindAnime, nil
	default:
		return "", fmt.Errorf("unknown title kind %q", s)
	}
}

// MediaKind maps a title kind to the resumable kind used by watch progress.
//
// Anime has no TMDB-backed progress record and reports false.
func (k TitleKind) MediaKind() (MediaKind, bool) {
	switch k {
	case KindMovie:
		return Movie, true
	case KindSeries:
		return Series, true
	default:
		return 0, false
	}
}

// Title is a catalog entry from any provider.
//
// Kind is the only discriminant consumers need; provider-specific details live in the optional sections.
type Title struct {
	Kind        TitleKind `json:"kind"`
	ID          int       `json:"id"`
	Name        string    `json:"title"`
	AltNames    []string  `json:"alt_titles,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	BackdropURL string    `json:"backdrop_url,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	Rating      float64   `json:"rating"`
	Popularity  float64   `json:"popularity"`
	ReleaseDate string    `json:"release_date,omitempty"`

	Series *SeriesInfo `json:"series,omitempty"`
	Anime  *AnimeInfo  `json:"anime,omitempty"`
	Movie  *MovieInfo  `json:"movie,omitempty"`
}

// Year returns the four-digit year prefix of ReleaseDate, or "".
func (t Title) Year() string {
	if len(t.ReleaseDate) >= 4 {
		return t.ReleaseDate[:4]
	}
	return ""
}

// MovieInfo holds movie-only details.
type MovieInfo struct {
	RuntimeMinutes int          `json:"runtime_minutes,omitempty"`
	Cast           []CastMember `json:"cast,omitempty"`
	TrailerKey     string       `json:"trailer_key,omitempty"`
}

// SeriesInfo holds series-only details.
type SeriesInfo struct {
	Seasons    []SeasonSummary `json:"seasons,omitempty"`
	Cast       []CastMember    `json:"cast,omitempty"`
	TrailerKey string          `json:"trailer_key,omitempty"`
}

// AnimeInfo holds anime-only details.
type AnimeInfo struct {
	Episodes        int            `json:"episodes,omitempty"`
	Format          string         `json:"format,omitempty"`
	Status          string         `json:"status,omitempty"`
	Native          string         `json:"native,omitempty"`
	Romaji          string         `json:"romaji,omitempty"`
	Studios         []string       `json:"studios,omitempty"`
	TrailerKey      string         `json:"trailer_key,omitempty"`
	Relations       []RelatedTitle `json:"relations,omitempty"`
	Recommendations []RelatedTitle `json:"recommendations,omitempty"`
}

// RelatedTitle is a lightweight reference to another anime.
type RelatedTitle struct {
	ID        int    `json:"id"`
	Name      string `json:"title"`
	Relation  string `json:"relation,omitempty"`
	Format    string `json:"format,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
}

// SeasonSummary describes one season of a series.
type SeasonSummary struct {
	Number       int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date,omitempty"`
}

// Episode describes one episode within a season.
type Episode struct {
	Number    int     `json:"episode_number"`
	Name      string  `json:"name"`
	Overview  string  `json:"overview,omitempty"`
	AirDate   string  `json:"air_date,omitempty"`
	Rating    float64 `json:"rating"`
	StillPath string  `json:"still_path,omitempty"`
	Runtime   int     `json:"runtime,omitempty"`
}

// Season is a season with its episode list.
type Season struct {
	SeriesID int       `json:"series_id"`
	Number   int       `json:"season_number"`
	Name     string    `json:"name"`
	Episodes []Episode `json:"episodes"`
}

// CastMember is a credited performer.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
}

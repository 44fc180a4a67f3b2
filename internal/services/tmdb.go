// TMDB v3 implementation of [Metadata]
//
// Response types based on https://developer.themoviedb.org/reference
package services

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	defaultTMDBBaseURL  = "https://api.themoviedb.org/3"
	defaultTMDBImageURL = "https://image.tmdb.org/t/p"
	defaultTMDBTimeout  = 10 * time.Second
)

var tmdbGenres = map[int]string{
	12: "Adventure", 14: "Fantasy", 16: "Animation", 18: "Drama", 27: "Horror", 28: "Action", 35: "Comedy",
	36: "History", 37: "Western", 53: "Thriller", 80: "Crime", 99: "Documentary", 878: "Science Fiction",
	9648: "Mystery", 10402: "Music", 10749: "Romance", 10751: "Family", 10752: "War", 10759: "Action & Adventure",
	10762: "Kids", 10763: "News", 10764: "Reality", 10765: "Sci-Fi & Fantasy", 10766: "Soap", 10767: "Talk",
	10768: "War & Politics", 10770: "TV Movie",
}

// TMDBResult is a movie, series or person record from list and search endpoints.
type TMDBResult struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ProfilePath  string  `json:"profile_path"`
	GenreIDs     []int   `json:"genre_ids"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
}

type tmdbPage struct {
	Page         int          `json:"page"`
	Results      []TMDBResult `json:"results"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
}

type tmdbGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tmdbCast struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

type tmdbVideo struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// TMDBDetails is the payload of movie/{id} and tv/{id} with credits and videos appended.
type TMDBDetails struct {
	TMDBResult
	Genres  []tmdbGenre `json:"genres"`
	Runtime int         `json:"runtime"`
	Seasons []struct {
		SeasonNumber int    `json:"season_number"`
		Name         string `json:"name"`
		EpisodeCount int    `json:"episode_count"`
		AirDate      string `json:"air_date"`
	} `json:"seasons"`
	Credits struct {
		Cast []tmdbCast `json:"cast"`
	} `json:"credits"`
	Videos struct {
		Results []tmdbVideo `json:"results"`
	} `json:"videos"`
}

// TMDBPerson is the payload of person/{id} with combined_credits appended.
type TMDBPerson struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Biography          string `json:"biography"`
	Birthday           string `json:"birthday"`
	PlaceOfBirth       string `json:"place_of_birth"`
	KnownForDepartment string `json:"known_for_department"`
	ProfilePath        string `json:"profile_path"`
	CombinedCredits    struct {
		Cast []struct {
			TMDBResult
			Character string `json:"character"`
		} `json:"cast"`
	} `json:"combined_credits"`
}

type tmdbSeason struct {
	Name         string `json:"name"`
	SeasonNumber int    `json:"season_number"`
	Episodes     []struct {
		EpisodeNumber int     `json:"episode_number"`
		Name          string  `json:"name"`
		Overview      string  `json:"overview"`
		AirDate       string  `json:"air_date"`
		VoteAverage   float64 `json:"vote_average"`
		StillPath     string  `json:"still_path"`
		Runtime       int     `json:"runtime"`
	} `json:"episodes"`
}

// TMDBOpts configures a [TMDBService].
type TMDBOpts struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	RateLimit    float64 // Requests per second; zero disables limiting
	CacheSize    int     // Cached detail/season responses; zero disables caching
	CacheTTL     time.Duration
	HTTPClient   *http.Client
	OnRequest    func() // Called once per outbound request, before it is sent
}

// TMDBService implements [Metadata] against The Movie Database.
type TMDBService struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
	cache        *expirable.LRU[string, []byte]
	onRequest    func()
}

// NewTMDBService creates a TMDB client. Empty options fall back to public defaults.
func NewTMDBService(opts TMDBOpts) *TMDBService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultTMDBBaseURL
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = defaultTMDBImageURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTMDBTimeout}
	}

	s := &TMDBService{
		apiKey:       opts.APIKey,
		baseURL:      opts.BaseURL,
		imageBaseURL: opts.ImageBaseURL,
		httpClient:   opts.HTTPClient,
		onRequest:    opts.OnRequest,
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	if opts.CacheSize > 0 {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		s.cache = expirable.NewLRU[string, []byte](opts.CacheSize, nil, ttl)
	}
	return s
}

// Name returns the service name.
func (s *TMDBService) Name() string {
	return "TMDB"
}

// ImageURL builds an image URL for a TMDB file path at the given size (e.g. "w500", "original").
func (s *TMDBService) ImageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return s.imageBaseURL + "/" + size + path
}

func (s *TMDBService) doRequest(ctx context.Context, endpoint string, params url.Values, cacheable bool, result any) error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: tmdb api_key is not set", shared.ErrMissingCredentials)
	}
	if params == nil {
		params = url.Values{}
	}
	cacheKey := endpoint + "?" + params.Encode()
	params.Set("api_key", s.apiKey)

	if cacheable && s.cache != nil {
		if body, ok := s.cache.Get(cacheKey); ok {
			return decodeJSON(bytes.NewReader(body), result)
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if s.onRequest != nil {
		s.onRequest()
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse("tmdb", resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if cacheable && s.cache != nil {
		s.cache.Add(cacheKey, body)
	}
	return decodeJSON(bytes.NewReader(body), result)
}

func (s *TMDBService) list(ctx context.Context, endpoint string, params url.Values, hint models.TitleKind) ([]models.Title, error) {
	var page tmdbPage
	if err := s.doRequest(ctx, endpoint, params, false, &page); err != nil {
		return nil, err
	}

	titles := make([]models.Title, 0, len(page.Results))
	for _, r := range page.Results {
		if t, ok := s.toTitle(r, hint); ok {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// toTitle resolves a result's kind from media_type, falling back to the endpoint's kind. People are rejected.
func (s *TMDBService) toTitle(r TMDBResult, hint models.TitleKind) (models.Title, bool) {
	kind := hint
	switch r.MediaType {
	case "movie":
		kind = models.KindMovie
	case "tv":
		kind = models.KindSeries
	case "person":
		return models.Title{}, false
	}
	if kind == "" {
		return models.Title{}, false
	}

	t := models.Title{
		Kind:        kind,
		ID:          r.ID,
		Overview:    r.Overview,
		PosterURL:   s.ImageURL("w500", r.PosterPath),
		BackdropURL: s.ImageURL("original", r.BackdropPath),
		Rating:      r.VoteAverage,
		Popularity:  r.Popularity,
	}
	if kind == models.KindMovie {
		t.Name, t.ReleaseDate = r.Title, r.ReleaseDate
	} else {
		t.Name, t.ReleaseDate = r.Name, r.FirstAirDate
		if r.OriginalName != "" && r.OriginalName != r.Name {
			t.AltNames = []string{r.OriginalName}
		}
	}
	for _, id := range r.GenreIDs {
		if name, ok := tmdbGenres[id]; ok {
			t.Genres = append(t.Genres, name)
		}
	}
	return t, true
}

// SearchMulti calls GET /search/multi.
func (s *TMDBService) SearchMulti(ctx context.Context, query string) ([]models.Title, error) {
	return s.list(ctx, "/search/multi", url.Values{"query": {query}}, "")
}

// SearchMovies calls GET /search/movie.
func (s *TMDBService) SearchMovies(ctx context.Context, query string) ([]models.Title, error) {
	return s.list(ctx, "/search/movie", url.Values{"query": {query}}, models.KindMovie)
}

// SearchTV calls GET /search/tv.
func (s *TMDBService) SearchTV(ctx context.Context, query string) ([]models.Title, error) {
	return s.list(ctx, "/search/tv", url.Values{"query": {query}}, models.KindSeries)
}

// Popular calls GET /movie/popular or /tv/popular.
func (s *TMDBService) Popular(ctx context.Context, kind models.TitleKind) ([]models.Title, error) {
	switch kind {
	case models.KindMovie:
		return s.list(ctx, "/movie/popular", nil, models.KindMovie)
	case models.KindSeries:
		return s.list(ctx, "/tv/popular", nil, models.KindSeries)
	default:
		return nil, fmt.Errorf("%w: tmdb has no %q listings", shared.ErrInvalidArgument, kind)
	}
}

// Trending calls GET /trending/all/{window}; window is "day" or "week".
func (s *TMDBService) Trending(ctx context.Context, window string) ([]models.Title, error) {
	if window != "day" && window != "week" {
		window = "week"
	}
	return s.list(ctx, "/trending/all/"+window, nil, "")
}

// Discover calls GET /discover/movie filtered by a TMDB genre id (27 is horror).
func (s *TMDBService) Discover(ctx context.Context, genreID int) ([]models.Title, error) {
	params := url.Values{"with_genres": {strconv.Itoa(genreID)}, "sort_by": {"popularity.desc"}}
	return s.list(ctx, "/discover/movie", params, models.KindMovie)
}

// Details calls GET /movie/{id} or /tv/{id} with videos and credits appended.
func (s *TMDBService) Details(ctx context.Context, kind models.TitleKind, id int) (*models.Title, error) {
	if kind != models.KindMovie && kind != models.KindSeries {
		return nil, fmt.Errorf("%w: tmdb has no %q details", shared.ErrInvalidArgument, kind)
	}

	var d TMDBDetails
	endpoint := fmt.Sprintf("/%s/%d", kind, id)
	params := url.Values{"append_to_response": {"videos,credits"}}
	if err := s.doRequest(ctx, endpoint, params, true, &d); err != nil {
		return nil, err
	}

	t, _ := s.toTitle(d.TMDBResult, kind)
	t.Genres = nil
	for _, g := range d.Genres {
		t.Genres = append(t.Genres, g.Name)
	}

	cast := make([]models.CastMember, 0, min(len(d.Credits.Cast), 20))
	for i, c := range d.Credits.Cast {
		if i == 20 {
			break
		}
		cast = append(cast, models.CastMember{
			ID:          c.ID,
			Name:        c.Name,
			Character:   c.Character,
			ProfilePath: s.ImageURL("w185", c.ProfilePath),
		})
	}

	trailer := ""
	for _, v := range d.Videos.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" {
			trailer = v.Key
			break
		}
	}

	if kind == models.KindMovie {
		t.Movie = &models.MovieInfo{RuntimeMinutes: d.Runtime, Cast: cast, TrailerKey: trailer}
		return &t, nil
	}

	info := &models.SeriesInfo{Cast: cast, TrailerKey: trailer}
	for _, season := range d.Seasons {
		if season.SeasonNumber == 0 {
			continue
		}
		info.Seasons = append(info.Seasons, models.SeasonSummary{
			Number:       season.SeasonNumber,
			Name:         season.Name,
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
		})
	}
	t.Series = info
	return &t, nil
}

const (
	knownForLimit    = 6
	filmographyLimit = 20
)

// Person calls GET /person/{id} with combined credits appended.
//
// KnownFor keeps the best rated credits and Filmography the newest, each credit resolved through media_type.
func (s *TMDBService) Person(ctx context.Context, id int) (*models.Person, error) {
	var raw TMDBPerson
	params := url.Values{"append_to_response": {"combined_credits"}}
	if err := s.doRequest(ctx, fmt.Sprintf("/person/%d", id), params, true, &raw); err != nil {
		return nil, err
	}

	credits := make([]models.Credit, 0, len(raw.CombinedCredits.Cast))
	for _, c := range raw.CombinedCredits.Cast {
		t, ok := s.toTitle(c.TMDBResult, models.KindMovie)
		if !ok {
			continue
		}
		credits = append(credits, models.Credit{
			Kind:        t.Kind,
			ID:          t.ID,
			Name:        t.Name,
			Character:   c.Character,
			PosterURL:   t.PosterURL,
			Rating:      t.Rating,
			ReleaseDate: t.ReleaseDate,
		})
	}

	knownFor := slices.Clone(credits)
	slices.SortStableFunc(knownFor, func(a, b models.Credit) int { return cmp.Compare(b.Rating, a.Rating) })
	filmography := slices.Clone(credits)
	slices.SortStableFunc(filmography, func(a, b models.Credit) int { return cmp.Compare(b.ReleaseDate, a.ReleaseDate) })

	return &models.Person{
		ID:           raw.ID,
		Name:         raw.Name,
		Biography:    raw.Biography,
		Birthday:     raw.Birthday,
		PlaceOfBirth: raw.PlaceOfBirth,
		Department:   raw.KnownForDepartment,
		ProfileURL:   s.ImageURL("w500", raw.ProfilePath),
		KnownFor:     knownFor[:min(len(knownFor), knownForLimit)],
		Filmography:  filmography[:min(len(filmography), filmographyLimit)],
	}, nil
}

// Season calls GET /tv/{id}/season/{n}.
func (s *TMDBService) Season(ctx context.Context, seriesID, number int) (*models.Season, error) {
	var raw tmdbSeason
	if err := s.doRequest(ctx, fmt.Sprintf("/tv/%d/season/%d", seriesID, number), nil, true, &raw); err != nil {
		return nil, err
	}

	season := &models.Season{
		SeriesID: seriesID,
		Number:   raw.SeasonNumber,
		Name:     raw.Name,
		Episodes: make([]models.Episode, 0, len(raw.Episodes)),
	}
	for _, e := range raw.Episodes {
		season.Episodes = append(season.Episodes, models.Episode{
			Number:    e.EpisodeNumber,
			Name:      e.Name,
			Overview:  e.Overview,
			AirDate:   e.AirDate,
			Rating:    e.VoteAverage,
			StillPath: s.ImageURL("w300", e.StillPath),
			Runtime:   e.Runtime,
		})
	}
	return season, nil
}

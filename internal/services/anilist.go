// AniList GraphQL implementation of [Anime]
//
// Schema reference: https://docs.anilist.co/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"golang.org/x/time/rate"
)

const defaultAniListURL = "https://graphql.anilist.co"

const aniListMediaFields = `
	id
	title { romaji english native }
	coverImage { large extraLarge }
	bannerImage
	description
	episodes
	format
	status
	averageScore
	popularity
	seasonYear
	genres`

var (
	aniListPageQuery = `query ($page: Int, $perPage: Int) {
		Page(page: $page, perPage: $perPage) {
			media(sort: %s, type: ANIME) {` + aniListMediaFields + `}
		}
	}`

	aniListSearchQuery = `query ($search: String, $page: Int, $perPage: Int) {
		Page(page: $page, perPage: $perPage) {
			media(search: $search, type: ANIME, sort: SEARCH_MATCH) {` + aniListMediaFields + `}
		}
	}`

	aniListDetailsQuery = `query ($id: Int) {
		Media(id: $id, type: ANIME) {` + aniListMediaFields + `
			studios { nodes { name } }
			trailer { id site }
			relations {
				edges {
					relationType
					node { id title { romaji english native } coverImage { large extraLarge } format }
				}
			}
			recommendations {
				nodes {
					mediaRecommendation { id title { romaji english native } coverImage { large extraLarge } averageScore }
				}
			}
		}
	}`
)

type aniListTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// Preferred returns the English title, then romaji, then native.
func (t aniListTitle) Preferred() string {
	switch {
	case t.English != "":
		return t.English
	case t.Romaji != "":
		return t.Romaji
	default:
		return t.Native
	}
}

type aniListCover struct {
	Large      string `json:"large"`
	ExtraLarge string `json:"extraLarge"`
}

func (c aniListCover) Best() string {
	if c.ExtraLarge != "" {
		return c.ExtraLarge
	}
	return c.Large
}

// AniListMedia is the media shape shared by every query.
type AniListMedia struct {
	ID           int          `json:"id"`
	Title        aniListTitle `json:"title"`
	CoverImage   aniListCover `json:"coverImage"`
	BannerImage  string       `json:"bannerImage"`
	Description  string       `json:"description"`
	Episodes     int          `json:"episodes"`
	Format       string       `json:"format"`
	Status       string       `json:"status"`
	AverageScore float64      `json:"averageScore"`
	Popularity   float64      `json:"popularity"`
	SeasonYear   int          `json:"seasonYear"`
	Genres       []string     `json:"genres"`
	Studios      struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"studios"`
	Trailer *struct {
		ID   string `json:"id"`
		Site string `json:"site"`
	} `json:"trailer"`
	Relations struct {
		Edges []struct {
			RelationType string `json:"relationType"`
			Node         struct {
				ID         int          `json:"id"`
				Title      aniListTitle `json:"title"`
				CoverImage aniListCover `json:"coverImage"`
				Format     string       `json:"format"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"relations"`
	Recommendations struct {
		Nodes []struct {
			MediaRecommendation *struct {
				ID         int          `json:"id"`
				Title      aniListTitle `json:"title"`
				CoverImage aniListCover `json:"coverImage"`
			} `json:"mediaRecommendation"`
		} `json:"nodes"`
	} `json:"recommendations"`
}

type aniListResponse struct {
	Data struct {
		Page *struct {
			Media []AniListMedia `json:"media"`
		} `json:"Page"`
		Media *AniListMedia `json:"Media"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"errors"`
}

// AniListService implements [Anime] against the AniList GraphQL API.
type AniListService struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAniListService creates an AniList client. rateLimit is requests per second; zero disables limiting.
func NewAniListService(url string, rateLimit float64, client *http.Client) *AniListService {
	if url == "" {
		url = defaultAniListURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	s := &AniListService{url: url, httpClient: client}
	if rateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}
	return s
}

// Name returns the service name.
func (s *AniListService) Name() string {
	return "AniList"
}

func (s *AniListService) doQuery(ctx context.Context, query string, variables map[string]any) (*aniListResponse, error) {
	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse("anilist", resp); err != nil {
		return nil, err
	}

	var out aniListResponse
	if err := decodeJSON(resp.Body, &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		if out.Errors[0].Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: anilist: %s", shared.ErrNotFound, out.Errors[0].Message)
		}
		return nil, fmt.Errorf("%w: anilist: %s", shared.ErrAPIRequest, out.Errors[0].Message)
	}
	return &out, nil
}

func (s *AniListService) page(ctx context.Context, query string, variables map[string]any) ([]models.Title, error) {
	out, err := s.doQuery(ctx, query, variables)
	if err != nil {
		return nil, err
	}
	if out.Data.Page == nil {
		return []models.Title{}, nil
	}

	titles := make([]models.Title, 0, len(out.Data.Page.Media))
	for _, m := range out.Data.Page.Media {
		titles = append(titles, toAnimeTitle(m))
	}
	return titles, nil
}

// Trending lists anime sorted by TRENDING_DESC.
func (s *AniListService) Trending(ctx context.Context, page, perPage int) ([]models.Title, error) {
	return s.page(ctx, fmt.Sprintf(aniListPageQuery, "TRENDING_DESC"), pageVars(page, perPage))
}

// Popular lists anime sorted by POPULARITY_DESC.
func (s *AniListService) Popular(ctx context.Context, page, perPage int) ([]models.Title, error) {
	return s.page(ctx, fmt.Sprintf(aniListPageQuery, "POPULARITY_DESC"), pageVars(page, perPage))
}

// Search runs a free-text anime search.
func (s *AniListService) Search(ctx context.Context, query string, page, perPage int) ([]models.Title, error) {
	vars := pageVars(page, perPage)
	vars["search"] = query
	return s.page(ctx, aniListSearchQuery, vars)
}

// Details fetches one anime with studios, relations and recommendations.
func (s *AniListService) Details(ctx context.Context, id int) (*models.Title, error) {
	out, err := s.doQuery(ctx, aniListDetailsQuery, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if out.Data.Media == nil {
		return nil, fmt.Errorf("%w: anime %d", shared.ErrNotFound, id)
	}

	m := *out.Data.Media
	t := toAnimeTitle(m)
	for _, n := range m.Studios.Nodes {
		t.Anime.Studios = append(t.Anime.Studios, n.Name)
	}
	if m.Trailer != nil && m.Trailer.Site == "youtube" {
		t.Anime.TrailerKey = m.Trailer.ID
	}
	for _, e := range m.Relations.Edges {
		t.Anime.Relations = append(t.Anime.Relations, models.RelatedTitle{
			ID:        e.Node.ID,
			Name:      e.Node.Title.Preferred(),
			Relation:  e.RelationType,
			Format:    e.Node.Format,
			PosterURL: e.Node.CoverImage.Best(),
		})
	}
	for _, n := range m.Recommendations.Nodes {
		if n.MediaRecommendation == nil {
			continue
		}
		r := n.MediaRecommendation
		t.Anime.Recommendations = append(t.Anime.Recommendations, models.RelatedTitle{
			ID:        r.ID,
			Name:      r.Title.Preferred(),
			PosterURL: r.CoverImage.Best(),
		})
	}
	return &t, nil
}

func pageVars(page, perPage int) map[string]any {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 50 {
		perPage = 20
	}
	return map[string]any{"page": page, "perPage": perPage}
}

// toAnimeTitle converts AniList media to a [models.KindAnime] title. Scores are rescaled from 100 to 10.
func toAnimeTitle(m AniListMedia) models.Title {
	t := models.Title{
		Kind:        models.KindAnime,
		ID:          m.ID,
		Name:        m.Title.Preferred(),
		Overview:    StripHTML(m.Description),
		PosterURL:   m.CoverImage.Best(),
		BackdropURL: m.BannerImage,
		Genres:      m.Genres,
		Rating:      m.AverageScore / 10,
		Popularity:  m.Popularity,
		Anime: &models.AnimeInfo{
			Episodes: m.Episodes,
			Format:   m.Format,
			Status:   m.Status,
			Native:   m.Title.Native,
			Romaji:   m.Title.Romaji,
		},
	}
	if m.SeasonYear > 0 {
		t.ReleaseDate = strconv.Itoa(m.SeasonYear)
	}
	for _, alt := range []string{m.Title.Romaji, m.Title.Native} {
		if alt != "" && alt != t.Name {
			t.AltNames = append(t.AltNames, alt)
		}
	}
	return t
}

// StripHTML converts an HTML fragment to plain text, turning <br> into newlines.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(doc.Text())
}

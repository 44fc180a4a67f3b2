// Streamed sports aggregator implementation of [Sports]
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

const defaultStreamedBaseURL = "https://streamed.pk/api"

// StreamedMatch is the aggregator's match payload. Date is unix milliseconds.
type StreamedMatch struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Date     int64  `json:"date"`
	Poster   string `json:"poster"`
	Popular  bool   `json:"popular"`
	Teams    *struct {
		Home *models.Team `json:"home"`
		Away *models.Team `json:"away"`
	} `json:"teams"`
	Sources []models.MatchSource `json:"sources"`
}

type streamedStream struct {
	ID       string `json:"id"`
	StreamNo int    `json:"streamNo"`
	Language string `json:"language"`
	HD       bool   `json:"hd"`
	EmbedURL string `json:"embedUrl"`
	Source   string `json:"source"`
}

// StreamedService implements [Sports].
type StreamedService struct {
	baseURL    string
	httpClient *http.Client
}

// NewStreamedService creates a sports aggregator client.
func NewStreamedService(baseURL string, client *http.Client) *StreamedService {
	if baseURL == "" {
		baseURL = defaultStreamedBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &StreamedService{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// Name returns the service name.
func (s *StreamedService) Name() string {
	return "Streamed"
}

func (s *StreamedService) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse("streamed", resp); err != nil {
		return err
	}
	return decodeJSON(resp.Body, result)
}

// Sports calls GET /sports.
func (s *StreamedService) Sports(ctx context.Context) ([]models.Sport, error) {
	var sports []models.Sport
	if err := s.doRequest(ctx, "/sports", &sports); err != nil {
		return nil, err
	}
	return sports, nil
}

// LiveMatches calls GET /matches/live or /matches/live/popular.
func (s *StreamedService) LiveMatches(ctx context.Context, popular bool) ([]models.Match, error) {
	endpoint := "/matches/live"
	if popular {
		endpoint += "/popular"
	}
	return s.matches(ctx, endpoint)
}

// Matches calls GET /matches/{sport} or /matches/{sport}/popular. Use "all" for every sport.
func (s *StreamedService) Matches(ctx context.Context, sport string, popular bool) ([]models.Match, error) {
	if sport == "" {
		return nil, fmt.Errorf("%w: sport is required", shared.ErrMissingArgument)
	}
	endpoint := "/matches/" + url.PathEscape(sport)
	if popular {
		endpoint += "/popular"
	}
	return s.matches(ctx, endpoint)
}

// TodayMatches calls GET /matches/all-today.
func (s *StreamedService) TodayMatches(ctx context.Context) ([]models.Match, error) {
	return s.matches(ctx, "/matches/all-today")
}

// Streams calls GET /stream/{source}/{id}.
func (s *StreamedService) Streams(ctx context.Context, source, id string) ([]models.Stream, error) {
	if source == "" || id == "" {
		return nil, fmt.Errorf("%w: source and id are required", shared.ErrMissingArgument)
	}

	var raw []streamedStream
	if err := s.doRequest(ctx, "/stream/"+url.PathEscape(source)+"/"+url.PathEscape(id), &raw); err != nil {
		return nil, err
	}

	streams := make([]models.Stream, 0, len(raw))
	for _, r := range raw {
		streams = append(streams, models.Stream(r))
	}
	return streams, nil
}

func (s *StreamedService) matches(ctx context.Context, endpoint string) ([]models.Match, error) {
	var raw []StreamedMatch
	if err := s.doRequest(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0, len(raw))
	for _, r := range raw {
		matches = append(matches, s.toMatch(r))
	}
	return matches, nil
}

func (s *StreamedService) toMatch(r StreamedMatch) models.Match {
	m := models.Match{
		ID:       r.ID,
		Title:    r.Title,
		Category: r.Category,
		Date:     time.UnixMilli(r.Date).UTC(),
		Popular:  r.Popular,
		Sources:  r.Sources,
	}
	if r.Teams != nil {
		m.Home, m.Away = r.Teams.Home, r.Teams.Away
		if m.Home != nil && m.Home.Badge != "" {
			m.Home = &models.Team{Name: m.Home.Name, Badge: s.BadgeURL(m.Home.Badge)}
		}
		if m.Away != nil && m.Away.Badge != "" {
			m.Away = &models.Team{Name: m.Away.Name, Badge: s.BadgeURL(m.Away.Badge)}
		}
	}

	switch {
	case r.Poster != "":
		m.Poster = s.ProxyImageURL(r.Poster)
	case r.Teams != nil && r.Teams.Home != nil && r.Teams.Away != nil && r.Teams.Home.Badge != "" && r.Teams.Away.Badge != "":
		m.Poster = s.PosterURL(r.Teams.Home.Badge, r.Teams.Away.Badge)
	}
	return m
}

// BadgeURL returns the image URL of a team badge.
func (s *StreamedService) BadgeURL(badgeID string) string {
	return fmt.Sprintf("%s/images/badge/%s.webp", s.baseURL, badgeID)
}

// PosterURL returns the generated poster for a home/away badge pair.
func (s *StreamedService) PosterURL(homeBadge, awayBadge string) string {
	return fmt.Sprintf("%s/images/poster/%s/%s.webp", s.baseURL, homeBadge, awayBadge)
}

// ProxyImageURL resolves a poster path returned by the API against the site origin.
func (s *StreamedService) ProxyImageURL(poster string) string {
	origin := strings.TrimSuffix(s.baseURL, "/api")
	return origin + poster + ".webp"
}

package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
)

// MatchGroup is the set of matches for one sport category.
type MatchGroup struct {
	Sport   string         `json:"sport"`
	Matches []models.Match `json:"matches"`
}

// GroupMatches buckets matches by category. Groups are ordered by name, matches by start time.
func GroupMatches(matches []models.Match) []MatchGroup {
	buckets := map[string][]models.Match{}
	for _, m := range matches {
		category := m.Category
		if category == "" {
			category = "other"
		}
		buckets[category] = append(buckets[category], m)
	}

	groups := make([]MatchGroup, 0, len(buckets))
	for sport, ms := range buckets {
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].Date.Before(ms[j].Date) })
		groups = append(groups, MatchGroup{Sport: sport, Matches: ms})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Sport < groups[j].Sport })
	return groups
}

// LiveMatches lists live matches grouped by sport, optionally restricted to one sport.
func LiveMatches(ctx context.Context, sports services.Sports, sport string, popular bool) ([]MatchGroup, error) {
	if sports == nil {
		return nil, fmt.Errorf("%w: no sports provider", shared.ErrServiceUnavailable)
	}

	matches, err := sports.LiveMatches(ctx, popular)
	if err != nil {
		return nil, err
	}

	sport = strings.ToLower(strings.TrimSpace(sport))
	if sport != "" && sport != "all" {
		var filtered []models.Match
		for _, m := range matches {
			if strings.EqualFold(m.Category, sport) {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}
	return GroupMatches(matches), nil
}

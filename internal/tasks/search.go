package tasks

import (
	"sort"
	"strings"

	"github.com/desertthunder/lunastream/internal/models"
)

// Score rates how well title matches query: 100 exact, 50 prefix, 10 substring, 0 otherwise.
//
// Comparison is case-insensitive. An empty query scores 0.
func Score(title, query string) int {
	t := strings.ToLower(title)
	q := strings.ToLower(query)
	switch {
	case q == "":
		return 0
	case t == q:
		return 100
	case strings.HasPrefix(t, q):
		return 50
	case strings.Contains(t, q):
		return 10
	default:
		return 0
	}
}

// Rank orders results by score, then popularity, both descending. Zero-score results are kept.
//
// The input slice is not modified.
func Rank(query string, results []models.Title) []models.Title {
	type scored struct {
		title models.Title
		score int
	}

	items := make([]scored, len(results))
	for i, r := range results {
		items[i] = scored{title: r, score: Score(r.Name, query)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].title.Popularity > items[j].title.Popularity
	})

	out := make([]models.Title, len(items))
	for i, it := range items {
		out[i] = it.title
	}
	return out
}

// SortOrder names an alternate ordering for browse listings.
type SortOrder string

const (
	SortRelevance  SortOrder = "relevance"
	SortRating     SortOrder = "rating"
	SortPopularity SortOrder = "popularity"
	SortRelease    SortOrder = "release"
)

// SortTitles reorders titles in place by order. Relevance leaves the order unchanged.
func SortTitles(titles []models.Title, order SortOrder) {
	var less func(a, b models.Title) bool
	switch order {
	case SortRating:
		less = func(a, b models.Title) bool { return a.Rating > b.Rating }
	case SortPopularity:
		less = func(a, b models.Title) bool { return a.Popularity > b.Popularity }
	case SortRelease:
		less = func(a, b models.Title) bool { return a.ReleaseDate > b.ReleaseDate }
	default:
		return
	}
	sort.SliceStable(titles, func(i, j int) bool { return less(titles[i], titles[j]) })
}

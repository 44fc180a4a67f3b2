package tasks

import (
	"fmt"
)

// StatusUpdate represents a status event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type StatusUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTrending Phase = iota
	FetchPopularMovies
	FetchPopularSeries
	FetchHorror
	FetchTrendingAnime
	SearchProviders
	RankResults
)

func (p Phase) String() string {
	switch p {
	case FetchTrending:
		return "fetch_trending"
	case FetchPopularMovies:
		return "fetch_popular_movies"
	case FetchPopularSeries:
		return "fetch_popular_series"
	case FetchHorror:
		return "fetch_horror"
	case FetchTrendingAnime:
		return "fetch_trending_anime"
	case SearchProviders:
		return "search_providers"
	case RankResults:
		return "rank_results"
	default:
		return ""
	}
}

// sendStatus sends an update through the channel without blocking.
func sendStatus(status chan<- StatusUpdate, update StatusUpdate) {
	if status == nil {
		return
	}
	select {
	case status <- update:
	default:
	}
}

func sectionStartUpdate(step, total int, s homeSection) StatusUpdate {
	return StatusUpdate{
		Phase:   s.phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, s.name),
	}
}

func sectionDoneUpdate(step, total int, section Section) StatusUpdate {
	return StatusUpdate{
		Phase:   section.Phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d titles)", step, total, section.Name, len(section.Titles)),
		Data:    section,
	}
}

func sectionFailedUpdate(step, total int, section Section) StatusUpdate {
	return StatusUpdate{
		Phase:   section.Phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, section.Name, section.Err),
	}
}

func searchProvidersUpdate(query string, providers int) StatusUpdate {
	return StatusUpdate{
		Phase:   SearchProviders,
		Step:    1,
		Total:   providers,
		Message: fmt.Sprintf("Searching %d providers for %q...", providers, query),
	}
}

func rankResultsUpdate(count int) StatusUpdate {
	return StatusUpdate{
		Phase:   RankResults,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ranking %d results...", count),
	}
}

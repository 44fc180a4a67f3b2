package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
	"golang.org/x/time/rate"
)

// HorrorGenreID is the TMDB genre id featured on the home page.
const HorrorGenreID = 27

// SearchScope restricts a catalog search to one kind, or "all".
type SearchScope string

const (
	ScopeAll   SearchScope = "all"
	ScopeMovie SearchScope = "movie"
	ScopeTV    SearchScope = "tv"
	ScopeAnime SearchScope = "anime"
)

// ParseSearchScope parses a scope name; empty means [ScopeAll].
func ParseSearchScope(s string) (SearchScope, error) {
	switch scope := SearchScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeMovie, ScopeTV, ScopeAnime:
		return scope, nil
	default:
		return "", fmt.Errorf("%w: unknown search type %q", shared.ErrInvalidArgument, s)
	}
}

// CatalogEngine fans requests out to the metadata providers.
//
// Either provider may be nil; its results are then simply absent.
type CatalogEngine struct {
	metadata services.Metadata
	anime    services.Anime
	logger   *log.Logger
}

// NewCatalogEngine creates a new CatalogEngine with the provided services.
func NewCatalogEngine(metadata services.Metadata, anime services.Anime, logger *log.Logger) *CatalogEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogEngine{metadata: metadata, anime: anime, logger: logger}
}

type searchCall struct {
	provider string
	fetch    func(ctx context.Context) ([]models.Title, error)
}

func (e *CatalogEngine) searchCalls(query string, scope SearchScope) []searchCall {
	var calls []searchCall
	if e.metadata != nil {
		switch scope {
		case ScopeAll:
			calls = append(calls, searchCall{e.metadata.Name(), func(ctx context.Context) ([]models.Title, error) {
				return e.metadata.SearchMulti(ctx, query)
			}})
		case ScopeMovie:
			calls = append(calls, searchCall{e.metadata.Name(), func(ctx context.Context) ([]models.Title, error) {
				return e.metadata.SearchMovies(ctx, query)
			}})
		case ScopeTV:
			calls = append(calls, searchCall{e.metadata.Name(), func(ctx context.Context) ([]models.Title, error) {
				return e.metadata.SearchTV(ctx, query)
			}})
		}
	}
	if e.anime != nil && (scope == ScopeAll || scope == ScopeAnime) {
		calls = append(calls, searchCall{e.anime.Name(), func(ctx context.Context) ([]models.Title, error) {
			return e.anime.Search(ctx, query, 1, 20)
		}})
	}
	return calls
}

// Search queries every provider in scope concurrently and returns ranked, tagged results.
//
// Provider failures are logged and contribute nothing. Results without artwork are dropped.
func (e *CatalogEngine) Search(ctx context.Context, query string, scope SearchScope, status chan<- StatusUpdate) []models.Title {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Title{}
	}

	calls := e.searchCalls(query, scope)
	sendStatus(status, searchProvidersUpdate(query, len(calls)))

	batches := make([][]models.Title, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call searchCall) {
			defer wg.Done()
			titles, err := call.fetch(ctx)
			if err != nil {
				e.logger.Warn("search failed", "provider", call.provider, "query", query, "error", err)
				return
			}
			batches[i] = titles
		}(i, call)
	}
	wg.Wait()

	var merged []models.Title
	for _, batch := range batches {
		for _, t := range batch {
			if t.PosterURL != "" {
				merged = append(merged, t)
			}
		}
	}

	sendStatus(status, rankResultsUpdate(len(merged)))
	return Rank(query, merged)
}

// Browse lists popular titles of one kind in the given order. Anime comes from the anime provider.
func (e *CatalogEngine) Browse(ctx context.Context, kind models.TitleKind, order SortOrder) ([]models.Title, error) {
	var (
		titles []models.Title
		err    error
	)
	switch {
	case kind == models.KindAnime && e.anime != nil:
		titles, err = e.anime.Popular(ctx, 1, 20)
	case kind != models.KindAnime && e.metadata != nil:
		titles, err = e.metadata.Popular(ctx, kind)
	default:
		return nil, fmt.Errorf("%w: no provider for %s", shared.ErrServiceUnavailable, kind)
	}
	if err != nil {
		return nil, err
	}
	SortTitles(titles, order)
	return titles, nil
}

// Details fetches one title from the provider that owns its kind.
func (e *CatalogEngine) Details(ctx context.Context, kind models.TitleKind, id int) (*models.Title, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %s %d", shared.ErrNotFound, kind, id)
	}
	switch {
	case kind == models.KindAnime && e.anime != nil:
		return e.anime.Details(ctx, id)
	case kind != models.KindAnime && e.metadata != nil:
		return e.metadata.Details(ctx, kind, id)
	default:
		return nil, fmt.Errorf("%w: no provider for %s", shared.ErrServiceUnavailable, kind)
	}
}

// Season fetches the episode list for one season of a series.
func (e *CatalogEngine) Season(ctx context.Context, seriesID, number int) (*models.Season, error) {
	if e.metadata == nil {
		return nil, fmt.Errorf("%w: no metadata provider", shared.ErrServiceUnavailable)
	}
	if seriesID <= 0 || number < 0 {
		return nil, fmt.Errorf("%w: season %d of %d", shared.ErrNotFound, number, seriesID)
	}
	return e.metadata.Season(ctx, seriesID, number)
}

// Person fetches a cast member and their credits.
func (e *CatalogEngine) Person(ctx context.Context, id int) (*models.Person, error) {
	if e.metadata == nil {
		return nil, fmt.Errorf("%w: no metadata provider", shared.ErrServiceUnavailable)
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: person %d", shared.ErrNotFound, id)
	}
	return e.metadata.Person(ctx, id)
}

// Section is one titled row of the home page.
type Section struct {
	Name   string         `json:"name"`
	Phase  Phase          `json:"-"`
	Titles []models.Title `json:"titles"`
	Err    error          `json:"-"`
}

// HomeResult contains the home page rows in display order.
type HomeResult struct {
	Sections []Section `json:"sections"`
	Failed   int       `json:"failed"`
}

// HomeOpts contains configuration for fetching the home page.
type HomeOpts struct {
	NumWorkers int     // Concurrent workers (default: 3)
	RateLimit  float64 // Section fetches per second (default: 10)
	MaxTitles  int     // Titles kept per section (default: 20)
}

type homeSection struct {
	index int
	name  string
	phase Phase
	fetch func(ctx context.Context) ([]models.Title, error)
}

func (e *CatalogEngine) homeSections() []homeSection {
	var sections []homeSection
	add := func(name string, phase Phase, fetch func(ctx context.Context) ([]models.Title, error)) {
		sections = append(sections, homeSection{index: len(sections), name: name, phase: phase, fetch: fetch})
	}

	if e.metadata != nil {
		add("Trending This Week", FetchTrending, func(ctx context.Context) ([]models.Title, error) {
			return e.metadata.Trending(ctx, "week")
		})
		add("Popular Movies", FetchPopularMovies, func(ctx context.Context) ([]models.Title, error) {
			return e.metadata.Popular(ctx, models.KindMovie)
		})
		add("Popular TV Shows", FetchPopularSeries, func(ctx context.Context) ([]models.Title, error) {
			return e.metadata.Popular(ctx, models.KindSeries)
		})
		add("Horror Picks", FetchHorror, func(ctx context.Context) ([]models.Title, error) {
			return e.metadata.Discover(ctx, HorrorGenreID)
		})
	}
	if e.anime != nil {
		add("Trending Anime", FetchTrendingAnime, func(ctx context.Context) ([]models.Title, error) {
			return e.anime.Trending(ctx, 1, 20)
		})
	}
	return sections
}

// Home fetches every home page row with a rate-limited worker pool.
//
// A failing row is reported through status and kept with its error; the others are unaffected.
func (e *CatalogEngine) Home(ctx context.Context, status chan<- StatusUpdate, opts HomeOpts) (*HomeResult, error) {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.MaxTitles <= 0 {
		opts.MaxTitles = 20
	}

	sections := e.homeSections()
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no metadata providers configured", shared.ErrServiceUnavailable)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan homeSection, len(sections))
	results := make(chan Section, len(sections))
	total := len(sections)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.homeWorker(ctx, &wg, jobs, results, opts.MaxTitles)
	}

	go func() {
		defer close(jobs)
		for i, s := range sections {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendStatus(status, sectionStartUpdate(i+1, total, s))
			jobs <- s
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	result := &HomeResult{Sections: make([]Section, total)}
	filled := make([]bool, total)
	completed := 0
	for s := range results {
		completed++
		idx := indexOfSection(sections, s.Name)
		result.Sections[idx] = s
		filled[idx] = true
		if s.Err != nil {
			result.Failed++
			sendStatus(status, sectionFailedUpdate(completed, total, s))
			continue
		}
		sendStatus(status, sectionDoneUpdate(completed, total, s))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	for i, ok := range filled {
		if !ok {
			result.Sections[i] = Section{Name: sections[i].name, Phase: sections[i].phase, Titles: []models.Title{}}
		}
	}
	return result, nil
}

func (e *CatalogEngine) homeWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan homeSection, results chan<- Section, maxTitles int) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		section := Section{Name: job.name, Phase: job.phase, Titles: []models.Title{}}
		titles, err := job.fetch(ctx)
		if err != nil {
			e.logger.Warn("home section failed", "section", job.name, "error", err)
			section.Err = err
		} else {
			if len(titles) > maxTitles {
				titles = titles[:maxTitles]
			}
			section.Titles = titles
		}
		results <- section
	}
}

func indexOfSection(sections []homeSection, name string) int {
	for _, s := range sections {
		if s.name == name {
			return s.index
		}
	}
	return 0
}

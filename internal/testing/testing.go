// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/desertthunder/lunastream/internal/models"
)

// MockMetadata is a test double for [services.Metadata].
//
// Every call returns Titles (or Title/SeasonData/PersonData for single-item calls) and Err.
type MockMetadata struct {
	Titles     []models.Title
	Title      *models.Title
	SeasonData *models.Season
	PersonData *models.Person
	Err        error

	mu    sync.Mutex
	Calls []string
}

func (m *MockMetadata) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockMetadata) Name() string { return "mock-metadata" }

func (m *MockMetadata) SearchMulti(ctx context.Context, query string) ([]models.Title, error) {
	m.record("SearchMulti")
	return m.Titles, m.Err
}
func (m *MockMetadata) SearchMovies(ctx context.Context, query string) ([]models.Title, error) {
	m.record("SearchMovies")
	return m.Titles, m.Err
}
func (m *MockMetadata) SearchTV(ctx context.Context, query string) ([]models.Title, error) {
	m.record("SearchTV")
	return m.Titles, m.Err
}
func (m *MockMetadata) Popular(ctx context.Context, kind models.TitleKind) ([]models.Title, error) {
	m.record("Popular")
	return m.Titles, m.Err
}
func (m *MockMetadata) Trending(ctx context.Context, window string) ([]models.Title, error) {
	m.record("Trending")
	return m.Titles, m.Err
}
func (m *MockMetadata) Discover(ctx context.Context, genreID int) ([]models.Title, error) {
	m.record("Discover")
	return m.Titles, m.Err
}
func (m *MockMetadata) Details(ctx context.Context, kind models.TitleKind, id int) (*models.Title, error) {
	m.record("Details")
	return m.Title, m.Err
}
func (m *MockMetadata) Season(ctx context.Context, seriesID, number int) (*models.Season, error) {
	m.record("Season")
	return m.SeasonData, m.Err
}

func (m *MockMetadata) Person(ctx context.Context, id int) (*models.Person, error) {
	m.record("Person")
	return m.PersonData, m.Err
}

// MockAnime is a test double for [services.Anime].
type MockAnime struct {
	Titles []models.Title
	Title  *models.Title
	Err    error
}

func (m *MockAnime) Name() string { return "mock-anime" }
func (m *MockAnime) Trending(ctx context.Context, page, perPage int) ([]models.Title, error) {
	return m.Titles, m.Err
}
func (m *MockAnime) Popular(ctx context.Context, page, perPage int) ([]models.Title, error) {
	return m.Titles, m.Err
}
func (m *MockAnime) Search(ctx context.Context, query string, page, perPage int) ([]models.Title, error) {
	return m.Titles, m.Err
}
func (m *MockAnime) Details(ctx context.Context, id int) (*models.Title, error) {
	return m.Title, m.Err
}

// MockSports is a test double for [services.Sports].
type MockSports struct {
	SportList []models.Sport
	MatchList []models.Match
	StreamSet []models.Stream
	Err       error
}

func (m *MockSports) Sports(ctx context.Context) ([]models.Sport, error) { return m.SportList, m.Err }
func (m *MockSports) LiveMatches(ctx context.Context, popular bool) ([]models.Match, error) {
	return m.MatchList, m.Err
}
func (m *MockSports) Matches(ctx context.Context, sport string, popular bool) ([]models.Match, error) {
	return m.MatchList, m.Err
}
func (m *MockSports) TodayMatches(ctx context.Context) ([]models.Match, error) { return m.MatchList, m.Err }
func (m *MockSports) Streams(ctx context.Context, source, id string) ([]models.Stream, error) {
	return m.StreamSet, m.Err
}

// MemoryProgressStore is an in-memory [tasks.ProgressStore] keyed like the device store.
//
// ListErr, when set, is returned by List.
type MemoryProgressStore struct {
	mu      sync.Mutex
	entries map[string]models.WatchProgressEntry
	ListErr error
}

// NewMemoryProgressStore creates a store seeded with entries.
func NewMemoryProgressStore(entries ...models.WatchProgressEntry) *MemoryProgressStore {
	s := &MemoryProgressStore{entries: map[string]models.WatchProgressEntry{}}
	for _, e := range entries {
		s.entries[e.Key()] = e
	}
	return s
}

func (s *MemoryProgressStore) List(ctx context.Context) ([]models.WatchProgressEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]models.WatchProgressEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *MemoryProgressStore) Upsert(ctx context.Context, entry models.WatchProgressEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key()] = entry
	return nil
}

func (s *MemoryProgressStore) Remove(ctx context.Context, subjectID int, kind models.MediaKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, models.ProgressKey(kind, subjectID))
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryProgressStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StaticIdentity resolves a fixed set of bearer tokens to identities.
type StaticIdentity map[string]models.Identity

// ErrUnknownToken is returned by [StaticIdentity] for tokens it does not know.
var ErrUnknownToken = errors.New("unknown token")

func (s StaticIdentity) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	id, ok := s[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return &id, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
	tu "github.com/desertthunder/lunastream/internal/testing"
	"golang.org/x/crypto/bcrypt"
)

const adminPassword = "hunter2"

type testEnv struct {
	server   *httptest.Server
	db       *sql.DB
	metadata *tu.MockMetadata
	anime    *tu.MockAnime
	sports   *tu.MockSports
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	env := &testEnv{
		db:       setupTestDB(t),
		metadata: &tu.MockMetadata{},
		anime:    &tu.MockAnime{},
		sports:   &tu.MockSports{},
	}

	srv := New(Options{
		DB:      env.db,
		Catalog: tasks.NewCatalogEngine(env.metadata, env.anime, logger),
		Sports:  env.sports,
		Identity: tu.StaticIdentity{
			"alice-token": {Subject: "alice", Email: "alice@example.com", Name: "Alice"},
			"bob-token":   {Subject: "bob", Email: "bob@example.com", Name: "Bob"},
		},
		AdminPasswordHash: string(hash),
		Logger:            logger,
	})

	env.server = httptest.NewServer(srv.Handler())
	t.Cleanup(env.server.Close)
	return env
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, out any, headers ...string) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]string
	if status := env.do(t, http.MethodGet, "/health", "", nil, &body); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body)
	}
}

func TestContinueWatching(t *testing.T) {
	severance := map[string]any{
		"media_id": 95396, "media_type": "tv", "title": "Severance", "poster_path": "/sev.jpg",
		"season": 2, "episode": 3, "timestamp": 0, "duration": 3300,
	}

	t.Run("Requires Identity", func(t *testing.T) {
		env := newTestEnv(t)
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
			if status := env.do(t, method, "/api/continue-watching", "", nil, nil); status != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", method, status)
			}
		}
		if status := env.do(t, http.MethodGet, "/api/continue-watching", "forged", nil, nil); status != http.StatusUnauthorized {
			t.Errorf("expected 401 for unknown token, got %d", status)
		}
	})

	t.Run("Upsert Then List", func(t *testing.T) {
		env := newTestEnv(t)

		if status := env.do(t, http.MethodPost, "/api/continue-watching", "alice-token", severance, nil); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}

		var entries []models.WatchProgressEntry
		env.do(t, http.MethodGet, "/api/continue-watching", "alice-token", nil, &entries)
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		if entries[0].Key() != "tv-95396" || entries[0].Episode != 3 || entries[0].LastUpdatedAt.IsZero() {
			t.Errorf("unexpected entry %+v", entries[0])
		}
	})

	t.Run("Identities Are Isolated", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(t, http.MethodPost, "/api/continue-watching", "alice-token", severance, nil)

		var entries []models.WatchProgressEntry
		env.do(t, http.MethodGet, "/api/continue-watching", "bob-token", nil, &entries)
		if len(entries) != 0 {
			t.Errorf("expected bob to see nothing, got %+v", entries)
		}
	})

	t.Run("Invalid Body", func(t *testing.T) {
		env := newTestEnv(t)
		cases := []any{
			map[string]any{"media_type": "tv", "title": "No id"},
			map[string]any{"media_id": 1, "media_type": "podcast"},
		}
		for _, body := range cases {
			if status := env.do(t, http.MethodPost, "/api/continue-watching", "alice-token", body, nil); status != http.StatusBadRequest {
				t.Errorf("expected 400 for %v, got %d", body, status)
			}
		}
	})

	t.Run("Remove", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(t, http.MethodPost, "/api/continue-watching", "alice-token", severance, nil)

		for _, path := range []string{
			"/api/continue-watching?media_id=95396",
			"/api/continue-watching?media_type=tv",
			"/api/continue-watching?media_id=abc&media_type=tv",
		} {
			if status := env.do(t, http.MethodDelete, path, "alice-token", nil, nil); status != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", path, status)
			}
		}

		for i := 0; i < 2; i++ {
			var body map[string]bool
			status := env.do(t, http.MethodDelete, "/api/continue-watching?media_id=95396&media_type=tv", "alice-token", nil, &body)
			if status != http.StatusOK || !body["success"] {
				t.Errorf("remove %d: expected success, got %d %v", i, status, body)
			}
		}

		var entries []models.WatchProgressEntry
		env.do(t, http.MethodGet, "/api/continue-watching", "alice-token", nil, &entries)
		if len(entries) != 0 {
			t.Errorf("expected empty list, got %+v", entries)
		}
	})
}

func TestNotifications(t *testing.T) {
	admin := []string{AdminPasswordHeader, adminPassword}

	t.Run("Admin Auth", func(t *testing.T) {
		env := newTestEnv(t)
		if status := env.do(t, http.MethodGet, "/api/admin/notifications", "", nil, nil); status != http.StatusUnauthorized {
			t.Errorf("expected 401 without password, got %d", status)
		}
		if status := env.do(t, http.MethodGet, "/api/admin/notifications", "", nil, nil, AdminPasswordHeader, "wrong"); status != http.StatusUnauthorized {
			t.Errorf("expected 401 for wrong password, got %d", status)
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		env := newTestEnv(t)

		var created map[string]any
		status := env.do(t, http.MethodPost, "/api/admin/notifications", "", map[string]string{"title": "Welcome", "content": "Hello"}, &created, admin...)
		if status != http.StatusCreated {
			t.Fatalf("expected 201, got %d", status)
		}
		id, _ := created["id"].(string)
		if id == "" {
			t.Fatalf("expected created id, got %v", created)
		}
		env.do(t, http.MethodPost, "/api/admin/notifications", "", map[string]string{"title": "Update", "content": "New players"}, nil, admin...)

		if status := env.do(t, http.MethodPost, "/api/admin/notifications", "", map[string]string{"title": "", "content": "x"}, nil, admin...); status != http.StatusBadRequest {
			t.Errorf("expected 400 for empty title, got %d", status)
		}

		var guestCount map[string]int
		env.do(t, http.MethodGet, "/api/notifications/unread-count", "", nil, &guestCount)
		if guestCount["count"] != 0 {
			t.Errorf("expected 0 for guests, got %d", guestCount["count"])
		}

		var count map[string]int
		env.do(t, http.MethodGet, "/api/notifications/unread-count", "alice-token", nil, &count)
		if count["count"] != 2 {
			t.Errorf("expected 2 unread, got %d", count["count"])
		}

		for i := 0; i < 2; i++ {
			if status := env.do(t, http.MethodPost, "/api/notifications/read", "alice-token", map[string]string{"notification_id": id}, nil); status != http.StatusOK {
				t.Fatalf("mark read %d: expected 200, got %d", i, status)
			}
		}

		var items []map[string]any
		env.do(t, http.MethodGet, "/api/notifications", "alice-token", nil, &items)
		if len(items) != 2 || items[0]["read"] != false || items[1]["read"] != true {
			t.Errorf("unexpected notifications %v", items)
		}

		if status := env.do(t, http.MethodPost, "/api/notifications/read", "alice-token", map[string]string{}, nil); status != http.StatusBadRequest {
			t.Errorf("expected 400 without notification_id, got %d", status)
		}
		if status := env.do(t, http.MethodPost, "/api/notifications/read", "alice-token", map[string]string{"notification_id": "nope"}, nil); status != http.StatusNotFound {
			t.Errorf("expected 404 for unknown notification, got %d", status)
		}
		if status := env.do(t, http.MethodPost, "/api/notifications/read-all", "", nil, nil); status != http.StatusUnauthorized {
			t.Errorf("expected 401 for guest read-all, got %d", status)
		}

		env.do(t, http.MethodPost, "/api/notifications/read-all", "alice-token", nil, nil)
		env.do(t, http.MethodGet, "/api/notifications/unread-count", "alice-token", nil, &count)
		if count["count"] != 0 {
			t.Errorf("expected 0 unread after read-all, got %d", count["count"])
		}

		if status := env.do(t, http.MethodDelete, "/api/admin/notifications?id="+id, "", nil, nil, admin...); status != http.StatusOK {
			t.Errorf("expected 200 on delete, got %d", status)
		}
		if status := env.do(t, http.MethodDelete, "/api/admin/notifications?id="+id, "", nil, nil, admin...); status != http.StatusNotFound {
			t.Errorf("expected 404 on second delete, got %d", status)
		}
		if status := env.do(t, http.MethodDelete, "/api/admin/notifications", "", nil, nil, admin...); status != http.StatusBadRequest {
			t.Errorf("expected 400 without id, got %d", status)
		}

		var remaining []map[string]any
		env.do(t, http.MethodGet, "/api/admin/notifications", "", nil, &remaining, admin...)
		if len(remaining) != 1 {
			t.Errorf("expected 1 remaining notification, got %d", len(remaining))
		}
	})
}

func TestStatistics(t *testing.T) {
	env := newTestEnv(t)

	track := func(metric string, headers ...string) int {
		return env.do(t, http.MethodPost, "/api/statistics/track", "", map[string]string{"metric": metric}, nil, headers...)
	}

	if status := track("watch"); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	track("unique_visitor", "X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	track("unique_visitor", "X-Forwarded-For", "203.0.113.7")
	track("unique_visitor", "X-Real-IP", "198.51.100.4")

	if status := track("page_view"); status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown metric, got %d", status)
	}

	// Provision a user so the signup count is non-zero.
	env.do(t, http.MethodGet, "/api/notifications/unread-count", "alice-token", nil, nil)

	var stats map[string]int64
	env.do(t, http.MethodGet, "/api/statistics", "", nil, &stats)
	if stats["watch_count"] != 1 {
		t.Errorf("expected watch_count 1, got %d", stats["watch_count"])
	}
	if stats["unique_visitors"] != 2 {
		t.Errorf("expected 2 unique visitors, got %d", stats["unique_visitors"])
	}
	if stats["user_signups"] != 1 {
		t.Errorf("expected 1 signup, got %d", stats["user_signups"])
	}
}

func TestCatalogRoutes(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		env := newTestEnv(t)
		env.metadata.Titles = []models.Title{
			{Kind: models.KindMovie, ID: 603, Name: "The Matrix", PosterURL: "m.jpg"},
			{Kind: models.KindMovie, ID: 604, Name: "Matrix", PosterURL: "r.jpg"},
		}

		var results []models.Title
		if status := env.do(t, http.MethodGet, "/api/search?q=matrix&type=movie", "", nil, &results); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if len(results) != 2 || results[0].ID != 604 {
			t.Errorf("unexpected results %+v", results)
		}

		if status := env.do(t, http.MethodGet, "/api/search?q=matrix&type=person", "", nil, nil); status != http.StatusBadRequest {
			t.Errorf("expected 400 for unknown type, got %d", status)
		}
	})

	t.Run("Search Degrades", func(t *testing.T) {
		env := newTestEnv(t)
		env.metadata.Err = errors.New("upstream down")
		env.anime.Err = errors.New("rate limited")

		var results []models.Title
		if status := env.do(t, http.MethodGet, "/api/search?q=matrix", "", nil, &results); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if results == nil || len(results) != 0 {
			t.Errorf("expected empty array, got %#v", results)
		}
	})

	t.Run("Details", func(t *testing.T) {
		env := newTestEnv(t)
		env.metadata.Title = &models.Title{Kind: models.KindMovie, ID: 603, Name: "The Matrix"}
		env.anime.Title = &models.Title{Kind: models.KindAnime, ID: 21, Name: "One Piece"}

		var title models.Title
		if status := env.do(t, http.MethodGet, "/api/movie/603", "", nil, &title); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if title.Name != "The Matrix" {
			t.Errorf("unexpected title %+v", title)
		}

		env.do(t, http.MethodGet, "/api/anime/21", "", nil, &title)
		if title.Name != "One Piece" {
			t.Errorf("expected anime details, got %+v", title)
		}

		for _, path := range []string{"/api/movie/abc", "/api/tv/-1", "/api/anime/0", "/api/tv/1/season/x"} {
			if status := env.do(t, http.MethodGet, path, "", nil, nil); status != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", path, status)
			}
		}
	})

	t.Run("Details Upstream Errors", func(t *testing.T) {
		env := newTestEnv(t)

		env.metadata.Err = shared.ErrNotFound
		if status := env.do(t, http.MethodGet, "/api/movie/999999", "", nil, nil); status != http.StatusNotFound {
			t.Errorf("expected 404, got %d", status)
		}

		env.metadata.Err = shared.ErrAPIRequest
		if status := env.do(t, http.MethodGet, "/api/tv/1399", "", nil, nil); status != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", status)
		}
	})

	t.Run("Season", func(t *testing.T) {
		env := newTestEnv(t)
		env.metadata.SeasonData = &models.Season{SeriesID: 1399, Episodes: []models.Episode{{Number: 1, Name: "Winter Is Coming"}}}

		var season models.Season
		if status := env.do(t, http.MethodGet, "/api/tv/1399/season/1", "", nil, &season); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if len(season.Episodes) != 1 {
			t.Errorf("expected 1 episode, got %+v", season)
		}
	})

	t.Run("Person", func(t *testing.T) {
		env := newTestEnv(t)
		env.metadata.PersonData = &models.Person{
			ID:       6193,
			Name:     "Leonardo DiCaprio",
			KnownFor: []models.Credit{{Kind: models.KindMovie, ID: 27205, Name: "Inception", Character: "Cobb"}},
		}

		var person models.Person
		if status := env.do(t, http.MethodGet, "/api/person/6193", "", nil, &person); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if person.Name != "Leonardo DiCaprio" || len(person.KnownFor) != 1 || person.KnownFor[0].Character != "Cobb" {
			t.Errorf("unexpected person %+v", person)
		}

		for _, path := range []string{"/api/person/abc", "/api/person/0"} {
			if status := env.do(t, http.MethodGet, path, "", nil, nil); status != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", path, status)
			}
		}

		env.metadata.Err = shared.ErrNotFound
		if status := env.do(t, http.MethodGet, "/api/person/1", "", nil, nil); status != http.StatusNotFound {
			t.Errorf("expected 404 for unknown person, got %d", status)
		}
	})

	t.Run("Home", func(t *testing.T) {
		env := newTestEnv(t)
		env.metadata.Titles = []models.Title{{ID: 1, Name: "One"}}
		env.anime.Titles = []models.Title{{ID: 2, Name: "Two"}}

		var home tasks.HomeResult
		if status := env.do(t, http.MethodGet, "/api/home", "", nil, &home); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if len(home.Sections) != 5 || home.Sections[0].Name != "Trending This Week" {
			t.Errorf("unexpected home %+v", home)
		}
	})
}

func TestSportsRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.sports.MatchList = []models.Match{
		{ID: "a", Category: "football", Title: "A vs B"},
		{ID: "b", Category: "tennis", Title: "C vs D"},
	}
	env.sports.StreamSet = []models.Stream{{ID: "s1", StreamNo: 1, EmbedURL: "https://embed.example/1", Source: "alpha"}}

	var groups []tasks.MatchGroup
	if status := env.do(t, http.MethodGet, "/api/sports/live?sport=tennis", "", nil, &groups); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(groups) != 1 || groups[0].Sport != "tennis" {
		t.Errorf("unexpected groups %+v", groups)
	}

	var streams []models.Stream
	if status := env.do(t, http.MethodGet, "/api/sports/streams/alpha/a", "", nil, &streams); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(streams) != 1 || streams[0].EmbedURL != "https://embed.example/1" {
		t.Errorf("unexpected streams %+v", streams)
	}

	env.sports.Err = errors.New("down")
	groups = nil
	if status := env.do(t, http.MethodGet, "/api/sports/live", "", nil, &groups); status != http.StatusOK {
		t.Fatalf("expected 200 on provider failure, got %d", status)
	}
	if len(groups) != 0 {
		t.Errorf("expected empty groups, got %+v", groups)
	}
}

func TestPlayersRoute(t *testing.T) {
	env := newTestEnv(t)

	var players []map[string]string
	env.do(t, http.MethodGet, "/api/players?kind=anime", "", nil, &players)
	if len(players) != 2 {
		t.Errorf("expected 2 anime players, got %d", len(players))
	}

	var embed map[string]string
	status := env.do(t, http.MethodGet, "/api/players?kind=tv&id=1399&season=1&episode=2&player=vidlink", "", nil, &embed)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if embed["player"] != "vidlink" || !strings.HasPrefix(embed["url"], "https://vidlink.pro/tv/1399/1/2?") {
		t.Errorf("unexpected embed %v", embed)
	}

	if status := env.do(t, http.MethodGet, "/api/players?id=1&player=bogus", "", nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown player, got %d", status)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/api/continue-watching", nil)
	req.Header.Set("Origin", "https://luna.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestServe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := New(Options{DB: setupTestDB(t), Logger: shared.NewLogger(io.Discard)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lunastream/internal/localstore"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
	tu "github.com/desertthunder/lunastream/internal/testing"
)

type staticSettings struct {
	settings models.Settings
	err      error
}

func (s staticSettings) Get() (models.Settings, error) { return s.settings, s.err }

type fixture struct {
	model    *Model
	store    *tu.MemoryProgressStore
	metadata *tu.MockMetadata
	opened   []string
	changes  chan string
}

func newFixture(t *testing.T, entries ...models.WatchProgressEntry) *fixture {
	t.Helper()

	logger := shared.NewLogger(io.Discard)
	f := &fixture{
		store:    tu.NewMemoryProgressStore(entries...),
		metadata: &tu.MockMetadata{},
		changes:  make(chan string, 1),
	}
	f.model = NewModel(context.Background(), Options{
		Progress: tasks.NewProgressEngine(f.store, logger),
		Catalog:  tasks.NewCatalogEngine(f.metadata, nil, logger),
		Settings: staticSettings{settings: models.DefaultSettings()},
		Open: func(url string) error {
			f.opened = append(f.opened, url)
			return nil
		},
		Changes:  f.changes,
		Debounce: time.Millisecond,
	})
	f.model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return f
}

// send applies msg and returns the resulting command.
func (f *fixture) send(msg tea.Msg) tea.Cmd {
	_, cmd := f.model.Update(msg)
	return cmd
}

// run executes cmd and feeds its message back into the model.
func (f *fixture) run(t *testing.T, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return f.send(cmd())
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func severance() models.WatchProgressEntry {
	return models.WatchProgressEntry{
		SubjectID: 95396, Kind: models.Series, Title: "Severance", Season: 2, Episode: 3,
		LastUpdatedAt: time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestContinueView(t *testing.T) {
	t.Run("Loads Entries", func(t *testing.T) {
		f := newFixture(t, severance())
		f.run(t, f.model.loadProgress())

		if got := len(f.model.continueList.Items()); got != 1 {
			t.Fatalf("expected 1 item, got %d", got)
		}
		if view := f.model.View(); !strings.Contains(view, "Severance S2E3") {
			t.Errorf("expected entry label in view, got:\n%s", view)
		}
	})

	t.Run("Empty State", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.loadProgress())

		if view := f.model.View(); !strings.Contains(view, "Nothing here yet") {
			t.Errorf("expected empty hint, got:\n%s", view)
		}
	})

	t.Run("Play Resumes Entry", func(t *testing.T) {
		f := newFixture(t, severance())
		f.run(t, f.model.loadProgress())

		reload := f.run(t, f.send(tea.KeyMsg{Type: tea.KeyEnter}))
		if len(f.opened) != 1 || !strings.HasPrefix(f.opened[0], "https://player.videasy.net/tv/95396/2/3?color=fbc9ff") {
			t.Fatalf("unexpected opened urls %v", f.opened)
		}
		if !strings.Contains(f.model.status, "Severance S2E3") {
			t.Errorf("expected playing status, got %q", f.model.status)
		}
		if reload == nil {
			t.Error("expected progress reload after playback")
		}

		entries, _ := f.store.List(context.Background())
		if !entries[0].LastUpdatedAt.After(severance().LastUpdatedAt) {
			t.Errorf("expected playback start to restamp the entry, got %v", entries[0].LastUpdatedAt)
		}
	})

	t.Run("Open Failure", func(t *testing.T) {
		f := newFixture(t, severance())
		f.model.opts.Open = func(string) error { return errors.New("no browser") }
		f.run(t, f.model.loadProgress())

		f.run(t, f.send(tea.KeyMsg{Type: tea.KeyEnter}))
		if f.model.err == nil || !strings.Contains(f.model.View(), "no browser") {
			t.Errorf("expected error in view, got %v", f.model.err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		f := newFixture(t, severance())
		f.run(t, f.model.loadProgress())

		reload := f.run(t, f.send(runes("d")))
		if f.store.Len() != 0 {
			t.Fatalf("expected store to be empty, got %d", f.store.Len())
		}
		f.run(t, reload)
		if got := len(f.model.continueList.Items()); got != 0 {
			t.Errorf("expected empty list after reload, got %d", got)
		}
	})

	t.Run("Quit", func(t *testing.T) {
		f := newFixture(t)
		cmd := f.send(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestStoreChanges(t *testing.T) {
	t.Run("Progress File Reloads List", func(t *testing.T) {
		f := newFixture(t)
		f.run(t, f.model.loadProgress())

		f.store.Upsert(context.Background(), severance())
		f.changes <- localstore.ProgressFile

		next := f.run(t, f.model.waitForChange())
		if next == nil {
			t.Fatal("expected reload and re-armed watch")
		}
		f.run(t, f.model.loadProgress())
		if got := len(f.model.continueList.Items()); got != 1 {
			t.Errorf("expected 1 item after change, got %d", got)
		}
	})

	t.Run("Pushed Settings Apply To Playback", func(t *testing.T) {
		f := newFixture(t, severance())
		f.run(t, f.model.loadProgress())

		svc := localstore.NewSettingsService(t.TempDir())
		defer svc.Subscribe(func(s models.Settings) { f.send(SettingsChangedMsg(s)) })()
		if _, err := svc.Set("player", "vidking"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if f.model.settings.Player != "vidking" {
			t.Fatalf("expected pushed player, got %q", f.model.settings.Player)
		}

		f.run(t, f.send(tea.KeyMsg{Type: tea.KeyEnter}))
		if len(f.opened) != 1 || !strings.Contains(f.opened[0], "vidking") {
			t.Errorf("expected playback through vidking, got %v", f.opened)
		}
	})

	t.Run("Closed Channel", func(t *testing.T) {
		f := newFixture(t)
		close(f.changes)
		if msg := f.model.waitForChange()(); msg != nil {
			t.Errorf("expected nil message, got %v", msg)
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		m := NewModel(context.Background(), Options{})
		if cmd := m.waitForChange(); cmd != nil {
			t.Error("expected no watch command without a change feed")
		}
	})
}

func TestSearchView(t *testing.T) {
	openSearch := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.send(runes("/"))
		if f.model.view != SearchView {
			t.Fatalf("expected search view, got %v", f.model.view)
		}
		return f
	}

	t.Run("Keystrokes Supersede Pending Ticks", func(t *testing.T) {
		f := openSearch(t)
		f.send(runes("m"))
		f.send(runes("a"))

		if f.model.searchTag != 2 || f.model.input.Value() != "ma" {
			t.Fatalf("expected tag 2 for %q, got %d", f.model.input.Value(), f.model.searchTag)
		}

		if cmd := f.send(searchTickMsg(1, "m")); cmd != nil || f.model.searching {
			t.Error("expected stale tick to be ignored")
		}
		if len(f.metadata.Calls) != 0 {
			t.Errorf("expected no provider calls, got %v", f.metadata.Calls)
		}

		cmd := f.send(searchTickMsg(2, "ma"))
		if cmd == nil || !f.model.searching {
			t.Fatal("expected current tick to dispatch a search")
		}
	})

	t.Run("Results Are Ranked", func(t *testing.T) {
		f := openSearch(t)
		f.metadata.Titles = []models.Title{
			{Kind: models.KindMovie, ID: 603, Name: "The Matrix", PosterURL: "/m.jpg", Popularity: 90},
			{Kind: models.KindMovie, ID: 604, Name: "Matrix", PosterURL: "/r.jpg", Popularity: 10},
		}
		f.send(runes("matrix"))

		f.run(t, f.send(searchTickMsg(f.model.searchTag, "matrix")))
		items := f.model.resultList.Items()
		if len(items) != 2 || items[0].(titleItem).title.ID != 604 {
			t.Errorf("unexpected results %+v", items)
		}
		if f.model.searching {
			t.Error("expected searching to be cleared")
		}
	})

	t.Run("Out Of Order Results Are Applied", func(t *testing.T) {
		f := openSearch(t)
		f.send(runes("ab"))
		f.model.searching = true

		f.send(searchResultsMsg(f.model.searchTag-1, "a", []models.Title{{ID: 1, Name: "A"}}))
		if len(f.model.resultList.Items()) != 1 {
			t.Error("expected stale results to be shown")
		}
		if !f.model.searching {
			t.Error("expected latest search to still be pending")
		}
	})

	t.Run("Blank Query Clears Results", func(t *testing.T) {
		f := openSearch(t)
		f.send(searchResultsMsg(f.model.searchTag, "x", []models.Title{{ID: 1, Name: "X"}}))

		if cmd := f.send(searchTickMsg(f.model.searchTag, "  ")); cmd != nil {
			cmd()
		}
		if len(f.model.resultList.Items()) != 0 || f.model.searching {
			t.Error("expected results to be cleared")
		}
	})

	t.Run("Scope Cycles", func(t *testing.T) {
		f := openSearch(t)
		tag := f.model.searchTag
		f.send(tea.KeyMsg{Type: tea.KeyTab})

		if scopes[f.model.scope] != tasks.ScopeMovie {
			t.Errorf("expected movie scope, got %s", scopes[f.model.scope])
		}
		if f.model.searchTag != tag+1 {
			t.Error("expected scope change to schedule a search")
		}
		if !strings.Contains(f.model.View(), "[movie]") {
			t.Error("expected scope in view")
		}
	})

	t.Run("Play Series Starts Tracking", func(t *testing.T) {
		f := openSearch(t)
		show := models.Title{Kind: models.KindSeries, ID: 1399, Name: "Game of Thrones", PosterURL: "/got.jpg"}
		f.send(searchResultsMsg(f.model.searchTag, "got", []models.Title{show}))

		f.run(t, f.send(tea.KeyMsg{Type: tea.KeyEnter}))
		if len(f.opened) != 1 || !strings.Contains(f.opened[0], "/tv/1399/1/1") {
			t.Fatalf("unexpected opened urls %v", f.opened)
		}
		entries, _ := f.store.List(context.Background())
		if len(entries) != 1 || entries[0].Key() != "tv-1399" || entries[0].PositionSeconds != 0 {
			t.Errorf("unexpected stored entries %+v", entries)
		}
	})

	t.Run("Play Anime Is Not Tracked", func(t *testing.T) {
		f := openSearch(t)
		anime := models.Title{Kind: models.KindAnime, ID: 21, Name: "One Piece", PosterURL: "/op.jpg"}
		f.send(searchResultsMsg(f.model.searchTag, "one", []models.Title{anime}))

		f.run(t, f.send(tea.KeyMsg{Type: tea.KeyEnter}))
		if len(f.opened) != 1 || f.opened[0] != "https://player.videasy.net/anime/21/1" {
			t.Fatalf("unexpected opened urls %v", f.opened)
		}
		if f.store.Len() != 0 {
			t.Error("expected anime playback to skip progress")
		}
	})

	t.Run("Q Types Instead Of Quitting", func(t *testing.T) {
		f := openSearch(t)
		f.send(runes("q"))
		if f.model.input.Value() != "q" {
			t.Errorf("expected q in input, got %q", f.model.input.Value())
		}
	})

	t.Run("Back", func(t *testing.T) {
		f := openSearch(t)
		f.send(tea.KeyMsg{Type: tea.KeyEsc})
		if f.model.view != ContinueView {
			t.Error("expected continue view")
		}
	})
}

package localstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	tu "github.com/desertthunder/lunastream/internal/testing"
)

func TestProgressStore(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("List Missing File", func(t *testing.T) {
		store := NewProgressStore(t.TempDir())
		entries, err := store.List(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if entries == nil || len(entries) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", entries)
		}
	})

	t.Run("Upsert Replaces Same Subject", func(t *testing.T) {
		dir := t.TempDir()
		store := NewProgressStore(dir)

		first := models.WatchProgressEntry{SubjectID: 1399, Kind: models.Series, Title: "GoT", Season: 1, Episode: 1, LastUpdatedAt: updated}
		second := first
		second.Season, second.Episode = 1, 2

		if err := store.Upsert(ctx, first); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if err := store.Upsert(ctx, second); err != nil {
			t.Fatalf("Upsert: %v", err)
		}

		entries, err := store.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(entries) != 1 || entries[0].Episode != 2 {
			t.Errorf("expected one entry at episode 2, got %+v", entries)
		}

		tu.AssertFileExists(t, filepath.Join(dir, ProgressFile))
		content := tu.MustReadFile(t, filepath.Join(dir, ProgressFile))
		if !strings.Contains(content, `"tv-1399"`) {
			t.Errorf("expected entry keyed tv-1399, got %s", content)
		}
	})

	t.Run("Movie And Series Keys Are Distinct", func(t *testing.T) {
		store := NewProgressStore(t.TempDir())
		store.Upsert(ctx, models.WatchProgressEntry{SubjectID: 5, Kind: models.Movie, LastUpdatedAt: updated})
		store.Upsert(ctx, models.WatchProgressEntry{SubjectID: 5, Kind: models.Series, LastUpdatedAt: updated})

		entries, _ := store.List(ctx)
		if len(entries) != 2 {
			t.Errorf("expected 2 entries, got %d", len(entries))
		}
	})

	t.Run("Remove Is Idempotent", func(t *testing.T) {
		store := NewProgressStore(t.TempDir())
		store.Upsert(ctx, models.WatchProgressEntry{SubjectID: 7, Kind: models.Movie, LastUpdatedAt: updated})

		for i := 0; i < 2; i++ {
			if err := store.Remove(ctx, 7, models.Movie); err != nil {
				t.Fatalf("remove %d: %v", i, err)
			}
		}
		entries, _ := store.List(ctx)
		if len(entries) != 0 {
			t.Errorf("expected empty store, got %+v", entries)
		}
	})

	t.Run("Remove Without File", func(t *testing.T) {
		dir := t.TempDir()
		store := NewProgressStore(dir)
		if err := store.Remove(ctx, 1, models.Movie); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, ProgressFile)); !os.IsNotExist(err) {
			t.Error("expected no file to be created")
		}
	})

	t.Run("Unreadable File", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, ProgressFile), []byte("{not json"), 0600)

		_, err := NewProgressStore(dir).List(ctx)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Drops Malformed Entries", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ProgressFile)
		os.WriteFile(path, []byte(`{
  "movie-603": {"media_id": 603, "media_type": "movie", "title": "The Matrix", "timestamp": 42, "updated_at": "2026-02-01T10:00:00Z"},
  "anime-21": {"media_id": 21, "media_type": "anime", "title": "One Piece", "timestamp": 0, "updated_at": "2026-02-01T10:00:00Z"},
  "movie-abc": {"media_id": "abc", "media_type": "movie", "title": "Broken", "timestamp": 0, "updated_at": "2026-02-01T10:00:00Z"},
  "movie-0": {"media_id": 0, "media_type": "movie", "title": "Zero", "timestamp": 0, "updated_at": "2026-02-01T10:00:00Z"}
}`), 0600)
		store := NewProgressStore(dir)

		entries, err := store.List(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(entries) != 1 || entries[0].Key() != "movie-603" || entries[0].PositionSeconds != 42 {
			t.Fatalf("expected only movie-603, got %+v", entries)
		}

		if err := store.Upsert(ctx, models.WatchProgressEntry{SubjectID: 1399, Kind: models.Series, Title: "GoT", LastUpdatedAt: updated}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if err := store.Remove(ctx, 603, models.Movie); err != nil {
			t.Fatalf("Remove: %v", err)
		}

		content := tu.MustReadFile(t, path)
		for _, gone := range []string{"anime-21", "movie-abc", "movie-0", "movie-603"} {
			if strings.Contains(content, gone) {
				t.Errorf("expected %s to be dropped, got %s", gone, content)
			}
		}
		if !strings.Contains(content, `"tv-1399"`) {
			t.Errorf("expected tv-1399 to be written, got %s", content)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewProgressStore(t.TempDir())
		store.Upsert(ctx, models.WatchProgressEntry{SubjectID: 7, Kind: models.Movie, LastUpdatedAt: updated})
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		entries, _ := store.List(ctx)
		if len(entries) != 0 {
			t.Errorf("expected empty store, got %d entries", len(entries))
		}
	})

	t.Run("No Temp Files Left", func(t *testing.T) {
		dir := t.TempDir()
		store := NewProgressStore(dir)
		store.Upsert(ctx, models.WatchProgressEntry{SubjectID: 1, Kind: models.Movie, LastUpdatedAt: updated})

		files, _ := os.ReadDir(dir)
		if len(files) != 1 {
			t.Errorf("expected only %s, got %d files", ProgressFile, len(files))
		}
	})
}

func TestSettingsService(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		svc := NewSettingsService(t.TempDir())
		got, err := svc.Get()
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != models.DefaultSettings() {
			t.Errorf("expected defaults, got %+v", got)
		}
	})

	t.Run("Partial File Keeps Defaults", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, SettingsFile), []byte(`{"player":"vidlink"}`), 0600)

		got, err := NewSettingsService(dir).Get()
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Player != "vidlink" || !got.PlayTrailers || got.AccentColor != "fbc9ff" {
			t.Errorf("unexpected settings %+v", got)
		}
	})

	t.Run("Update Notifies Subscribers", func(t *testing.T) {
		svc := NewSettingsService(t.TempDir())

		var seen []models.Settings
		unsubscribe := svc.Subscribe(func(s models.Settings) { seen = append(seen, s) })

		next := models.DefaultSettings()
		next.ShowIntro = true
		if err := svc.Update(next); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if len(seen) != 1 || !seen[0].ShowIntro {
			t.Fatalf("expected one notification with show_intro, got %+v", seen)
		}

		unsubscribe()
		if err := svc.Update(models.DefaultSettings()); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if len(seen) != 1 {
			t.Errorf("expected no notification after unsubscribe, got %d", len(seen))
		}

		got, _ := svc.Get()
		if got.ShowIntro {
			t.Error("expected saved settings to be read back")
		}
	})

	t.Run("Reload Notifies Subscribers", func(t *testing.T) {
		dir := t.TempDir()
		svc := NewSettingsService(dir)

		var seen []models.Settings
		defer svc.Subscribe(func(s models.Settings) { seen = append(seen, s) })()

		os.WriteFile(filepath.Join(dir, SettingsFile), []byte(`{"player":"vidking"}`), 0600)
		got, err := svc.Reload()
		if err != nil {
			t.Fatalf("Reload: %v", err)
		}
		if got.Player != "vidking" || len(seen) != 1 || seen[0].Player != "vidking" {
			t.Errorf("expected vidking to be delivered, got %+v and %+v", got, seen)
		}

		os.WriteFile(filepath.Join(dir, SettingsFile), []byte("{not json"), 0600)
		if _, err := svc.Reload(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(seen) != 1 {
			t.Errorf("expected no notification for an unreadable file, got %d", len(seen))
		}
	})

	t.Run("Invalid Update Is Not Saved", func(t *testing.T) {
		svc := NewSettingsService(t.TempDir())
		notified := false
		svc.Subscribe(func(models.Settings) { notified = true })

		bad := models.DefaultSettings()
		bad.AccentColor = "zzz"
		if err := svc.Update(bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if notified {
			t.Error("expected no notification for rejected update")
		}
	})

	t.Run("Set", func(t *testing.T) {
		svc := NewSettingsService(t.TempDir())

		tests := []struct {
			key, value string
			check      func(models.Settings) bool
		}{
			{"play_trailers", "false", func(s models.Settings) bool { return !s.PlayTrailers }},
			{"show_intro", "true", func(s models.Settings) bool { return s.ShowIntro }},
			{"player", " VidLink ", func(s models.Settings) bool { return s.Player == "vidlink" }},
			{"accent_color", "#00ff88", func(s models.Settings) bool { return s.AccentColor == "00ff88" }},
		}
		for _, tt := range tests {
			got, err := svc.Set(tt.key, tt.value)
			if err != nil {
				t.Errorf("Set(%s): %v", tt.key, err)
				continue
			}
			if !tt.check(got) {
				t.Errorf("Set(%s, %s) produced %+v", tt.key, tt.value, got)
			}
		}

		if _, err := svc.Set("volume", "11"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for unknown key, got %v", err)
		}
		if _, err := svc.Set("show_intro", "maybe"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for bad bool, got %v", err)
		}
	})
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, func(name string) { changed <- name })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	store := NewProgressStore(dir)
	if err := store.Upsert(ctx, models.WatchProgressEntry{SubjectID: 1, Kind: models.Movie}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	select {
	case name := <-changed:
		if name != ProgressFile {
			t.Errorf("expected %s, got %s", ProgressFile, name)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for change event")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestSession(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Missing File", func(t *testing.T) {
		session, err := LoadSession(filepath.Join(t.TempDir(), "token.json"))
		if err != nil || session != nil {
			t.Errorf("expected nil session and no error, got %v, %v", session, err)
		}
	})

	t.Run("Save And Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "token.json")
		want := Session{IDToken: "eyJ.abc.def", RefreshToken: "r1", Expiry: expiry, Subject: "sub-1", Email: "luna@example.com"}

		if err := SaveSession(path, want); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
		got, err := LoadSession(path)
		if err != nil {
			t.Fatalf("LoadSession: %v", err)
		}
		if got == nil || got.IDToken != want.IDToken || got.Subject != want.Subject || !got.Expiry.Equal(expiry) {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			t.Errorf("expected session file to be private, got %v", perm)
		}
	})

	t.Run("Blank Token Is No Session", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		os.WriteFile(path, []byte(`{"subject":"sub-1"}`), 0600)

		session, err := LoadSession(path)
		if err != nil || session != nil {
			t.Errorf("expected nil session, got %v, %v", session, err)
		}
	})

	t.Run("Malformed File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		os.WriteFile(path, []byte("{not json"), 0600)

		if _, err := LoadSession(path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		if err := SaveSession(path, Session{IDToken: "x"}); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
		if err := ClearSession(path); err != nil {
			t.Fatalf("ClearSession: %v", err)
		}
		if err := ClearSession(path); err != nil {
			t.Errorf("expected clearing a missing session to succeed, got %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected session file to be removed")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		s := Session{Expiry: expiry}
		if s.Expired(expiry.Add(-time.Minute)) {
			t.Error("expected session to be valid before expiry")
		}
		if !s.Expired(expiry) {
			t.Error("expected session to be expired at expiry")
		}
		if (Session{}).Expired(expiry) {
			t.Error("expected zero expiry to never expire")
		}
	})
}

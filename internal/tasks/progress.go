package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// Source identifies which progress store is authoritative.
type Source int

const (
	LocalSource Source = iota
	RemoteSource
)

func (s Source) String() string {
	if s == RemoteSource {
		return "remote"
	}
	return "local"
}

// SelectAuthoritativeSource returns [RemoteSource] when an identity is present, otherwise [LocalSource].
func SelectAuthoritativeSource(identityPresent bool) Source {
	if identityPresent {
		return RemoteSource
	}
	return LocalSource
}

// ProgressStore persists watch progress for one owner.
//
// Upsert overwrites any entry with the same (Kind, SubjectID). Remove of a missing entry is not an error.
type ProgressStore interface {
	List(ctx context.Context) ([]models.WatchProgressEntry, error)
	Upsert(ctx context.Context, entry models.WatchProgressEntry) error
	Remove(ctx context.Context, subjectID int, kind models.MediaKind) error
}

// Reconcile collapses raw entries to at most one per (Kind, SubjectID), newest first.
//
// Series entries that both carry a season and episode are compared by (season, episode), with equal episodes
// falling back to the timestamp. Everything else is compared by timestamp. Invalid entries are dropped.
func Reconcile(raw []models.WatchProgressEntry) []models.WatchProgressEntry {
	latest := make(map[string]models.WatchProgressEntry, len(raw))
	for _, e := range raw {
		if !e.Valid() {
			continue
		}
		current, ok := latest[e.Key()]
		if !ok || supersedes(e, current) {
			latest[e.Key()] = e
		}
	}

	out := make([]models.WatchProgressEntry, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdatedAt.Equal(out[j].LastUpdatedAt) {
			return out[i].LastUpdatedAt.After(out[j].LastUpdatedAt)
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// supersedes reports whether candidate should replace current for the same subject.
func supersedes(candidate, current models.WatchProgressEntry) bool {
	if candidate.HasEpisode() && current.HasEpisode() {
		if candidate.Season != current.Season {
			return candidate.Season > current.Season
		}
		if candidate.Episode != current.Episode {
			return candidate.Episode > current.Episode
		}
	}
	return candidate.LastUpdatedAt.After(current.LastUpdatedAt)
}

// ProgressEngine routes watch progress to the authoritative store.
//
// The local store is always present; a remote store is attached by [ProgressEngine.SignIn] and detached by
// [ProgressEngine.SignOut]. The two are never merged.
type ProgressEngine struct {
	mu     sync.RWMutex
	local  ProgressStore
	remote ProgressStore
	logger *log.Logger
	now    func() time.Time
}

// NewProgressEngine creates an engine backed by local until an identity signs in.
func NewProgressEngine(local ProgressStore, logger *log.Logger) *ProgressEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ProgressEngine{local: local, logger: logger, now: time.Now}
}

// SignIn makes remote the authoritative store.
func (e *ProgressEngine) SignIn(remote ProgressStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote = remote
}

// SignOut reverts to the local store.
func (e *ProgressEngine) SignOut() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote = nil
}

// Source reports which store is currently authoritative.
func (e *ProgressEngine) Source() Source {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return SelectAuthoritativeSource(e.remote != nil)
}

// Store returns the authoritative store.
func (e *ProgressEngine) Store() ProgressStore {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if SelectAuthoritativeSource(e.remote != nil) == RemoteSource {
		return e.remote
	}
	return e.local
}

// Continue lists reconciled entries from the authoritative store.
//
// Listing failures are logged and yield an empty list.
func (e *ProgressEngine) Continue(ctx context.Context) []models.WatchProgressEntry {
	store := e.Store()
	if store == nil {
		return []models.WatchProgressEntry{}
	}

	raw, err := store.List(ctx)
	if err != nil {
		e.logger.Warn("failed to load continue watching", "source", e.Source(), "error", err)
		return []models.WatchProgressEntry{}
	}
	return Reconcile(raw)
}

// Upsert stamps entry with the current time and writes it to the authoritative store.
func (e *ProgressEngine) Upsert(ctx context.Context, entry models.WatchProgressEntry) error {
	if !entry.Valid() {
		return fmt.Errorf("%w: media id and media type are required", shared.ErrInvalidInput)
	}
	store := e.Store()
	if store == nil {
		return fmt.Errorf("%w: no progress store", shared.ErrServiceUnavailable)
	}

	entry.LastUpdatedAt = e.now().UTC()
	if err := store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Remove deletes the subject's entry from the authoritative store.
func (e *ProgressEngine) Remove(ctx context.Context, subjectID int, kind models.MediaKind) error {
	store := e.Store()
	if store == nil {
		return fmt.Errorf("%w: no progress store", shared.ErrServiceUnavailable)
	}
	if err := store.Remove(ctx, subjectID, kind); err != nil {
		return fmt.Errorf("failed to remove progress: %w", err)
	}
	return nil
}

// StartPlayback records the start of playback with position zero.
func (e *ProgressEngine) StartPlayback(ctx context.Context, title models.Title, season, episode int) error {
	kind, ok := title.Kind.MediaKind()
	if !ok {
		return fmt.Errorf("%w: %s titles are not tracked", shared.ErrInvalidInput, title.Kind)
	}

	entry := models.WatchProgressEntry{
		SubjectID:  title.ID,
		Kind:       kind,
		Title:      title.Name,
		PosterPath: title.PosterURL,
	}
	if kind == models.Series {
		entry.Season, entry.Episode = season, episode
	}
	if title.Movie != nil && title.Movie.RuntimeMinutes > 0 {
		entry.DurationSeconds = float64(title.Movie.RuntimeMinutes * 60)
	}
	return e.Upsert(ctx, entry)
}

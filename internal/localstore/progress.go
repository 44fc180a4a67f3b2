package localstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"github.com/desertthunder/lunastream/internal/models"
)

// ProgressStore is the anonymous, device-local watch progress store.
//
// Entries are kept as a JSON object keyed by [models.ProgressKey], so an upsert for the same subject replaces
// the previous entry.
type ProgressStore struct {
	mu   sync.Mutex
	path string
}

// NewProgressStore creates a store under dir. The file is created on first write.
func NewProgressStore(dir string) *ProgressStore {
	return &ProgressStore{path: filepath.Join(dir, ProgressFile)}
}

// Path returns the backing file.
func (s *ProgressStore) Path() string {
	return s.path
}

// load decodes each entry on its own. Entries that fail to decode or are not [models.WatchProgressEntry.Valid]
// are dropped, and the next write persists the cleaned map.
func (s *ProgressStore) load() (map[string]models.WatchProgressEntry, error) {
	raw := map[string]json.RawMessage{}
	if _, err := readJSON(s.path, &raw); err != nil {
		return nil, err
	}

	entries := make(map[string]models.WatchProgressEntry, len(raw))
	for _, data := range raw {
		var e models.WatchProgressEntry
		if err := json.Unmarshal(data, &e); err != nil || !e.Valid() {
			continue
		}
		entries[e.Key()] = e
	}
	return entries, nil
}

// List returns every stored entry ordered by key.
func (s *ProgressStore) List(ctx context.Context) ([]models.WatchProgressEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]models.WatchProgressEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// Upsert writes entry, replacing any entry for the same subject.
func (s *ProgressStore) Upsert(ctx context.Context, entry models.WatchProgressEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[entry.Key()] = entry
	return writeJSON(s.path, entries)
}

// Remove deletes the subject's entry. Removing a missing entry does not touch the file.
func (s *ProgressStore) Remove(ctx context.Context, subjectID int, kind models.MediaKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	key := models.ProgressKey(kind, subjectID)
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return writeJSON(s.path, entries)
}

// Clear removes every entry.
func (s *ProgressStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path, map[string]models.WatchProgressEntry{})
}

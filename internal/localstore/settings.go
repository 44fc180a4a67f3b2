package localstore

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// SettingsService loads and saves [models.Settings] and notifies subscribers of saved changes.
type SettingsService struct {
	mu     sync.Mutex
	path   string
	subs   map[int]func(models.Settings)
	nextID int
}

// NewSettingsService creates a service under dir.
func NewSettingsService(dir string) *SettingsService {
	return &SettingsService{path: filepath.Join(dir, SettingsFile), subs: map[int]func(models.Settings){}}
}

// Get returns the saved settings. Missing fields keep their defaults.
func (s *SettingsService) Get() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := models.DefaultSettings()
	if _, err := readJSON(s.path, &settings); err != nil {
		return models.DefaultSettings(), err
	}
	return settings, nil
}

// Update saves settings and then calls every subscriber with the saved value.
func (s *SettingsService) Update(settings models.Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}

	s.mu.Lock()
	if err := writeJSON(s.path, settings); err != nil {
		s.mu.Unlock()
		return err
	}
	subs := s.subscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(settings)
	}
	return nil
}

// Reload reads the file after an outside change and calls every subscriber with the result.
func (s *SettingsService) Reload() (models.Settings, error) {
	settings, err := s.Get()
	if err != nil {
		return settings, err
	}

	s.mu.Lock()
	subs := s.subscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(settings)
	}
	return settings, nil
}

func (s *SettingsService) subscribers() []func(models.Settings) {
	subs := make([]func(models.Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

// Set updates a single setting by its JSON name.
func (s *SettingsService) Set(key, value string) (models.Settings, error) {
	settings, err := s.Get()
	if err != nil {
		return settings, err
	}
	if err := ApplySetting(&settings, key, value); err != nil {
		return settings, err
	}
	return settings, s.Update(settings)
}

// Subscribe registers fn for saved changes. The returned function unregisters it.
func (s *SettingsService) Subscribe(fn func(models.Settings)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ApplySetting sets one field of settings from its string form.
func ApplySetting(settings *models.Settings, key, value string) error {
	switch strings.ToLower(key) {
	case "play_trailers":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: play_trailers must be true or false", shared.ErrInvalidArgument)
		}
		settings.PlayTrailers = b
	case "show_intro":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: show_intro must be true or false", shared.ErrInvalidArgument)
		}
		settings.ShowIntro = b
	case "player":
		settings.Player = strings.ToLower(strings.TrimSpace(value))
	case "accent_color":
		settings.AccentColor = strings.TrimPrefix(strings.TrimSpace(value), "#")
	default:
		return fmt.Errorf("%w: unknown setting %q", shared.ErrInvalidArgument, key)
	}
	return validateSettings(*settings)
}

func validateSettings(s models.Settings) error {
	if s.Player == "" {
		return fmt.Errorf("%w: player is required", shared.ErrInvalidInput)
	}
	if len(s.AccentColor) != 6 {
		return fmt.Errorf("%w: accent_color must be six hex digits", shared.ErrInvalidInput)
	}
	if _, err := strconv.ParseUint(s.AccentColor, 16, 32); err != nil {
		return fmt.Errorf("%w: accent_color must be six hex digits", shared.ErrInvalidInput)
	}
	return nil
}

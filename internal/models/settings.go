package models

// Settings are device-local display preferences.
type Settings struct {
	PlayTrailers bool   `json:"play_trailers"`
	ShowIntro    bool   `json:"show_intro"`
	Player       string `json:"player"`
	AccentColor  string `json:"accent_color"`
}

// DefaultSettings returns the preferences used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		PlayTrailers: true,
		ShowIntro:    false,
		Player:       "videasy",
		AccentColor:  "fbc9ff",
	}
}

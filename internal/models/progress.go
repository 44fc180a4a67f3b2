package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MediaKind distinguishes the two resumable title kinds.
type MediaKind int

const (
	Movie MediaKind = iota + 1
	Series
)

// String returns the wire name of the kind ("movie" or "tv").
func (k MediaKind) String() string {
	switch k {
	case Movie:
		return "movie"
	case Series:
		return "tv"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k MediaKind) Valid() bool {
	return k == Movie || k == Series
}

// ParseMediaKind parses a wire name. "series" and "show" are accepted for Series.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return Movie, nil
	case "tv", "series", "show":
		return Series, nil
	default:
		return 0, fmt.Errorf("unknown media kind %q", s)
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k MediaKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid media kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *MediaKind) UnmarshalText(b []byte) error {
	parsed, err := ParseMediaKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// WatchProgressEntry is one identity's progress on one title.
//
// Season and Episode are only meaningful for [Series]; zero means absent. DurationSeconds is zero when unknown.
type WatchProgressEntry struct {
	SubjectID       int       `json:"media_id"`
	Kind            MediaKind `json:"media_type"`
	Title           string    `json:"title"`
	PosterPath      string    `json:"poster_path,omitempty"`
	Season          int       `json:"season,omitempty"`
	Episode         int       `json:"episode,omitempty"`
	PositionSeconds float64   `json:"timestamp"`
	DurationSeconds float64   `json:"duration,omitempty"`
	LastUpdatedAt   time.Time `json:"updated_at"`
}

// Key returns the grouping key "{kind}-{id}".
func (e WatchProgressEntry) Key() string {
	return ProgressKey(e.Kind, e.SubjectID)
}

// HasEpisode reports whether the entry is a Series entry with both season and episode set.
func (e WatchProgressEntry) HasEpisode() bool {
	return e.Kind == Series && e.Season > 0 && e.Episode > 0
}

// Valid reports whether the entry can be stored or displayed.
func (e WatchProgressEntry) Valid() bool {
	return e.SubjectID > 0 && e.Kind.Valid()
}

// ResumePath returns the application route that resumes playback of the entry.
func (e WatchProgressEntry) ResumePath() string {
	if e.HasEpisode() {
		return fmt.Sprintf("/watch/tv/%d/%d/%d", e.SubjectID, e.Season, e.Episode)
	}
	return fmt.Sprintf("/watch/%s/%d", e.Kind, e.SubjectID)
}

// Label renders a short human label such as "Severance S2E3".
func (e WatchProgressEntry) Label() string {
	if e.HasEpisode() {
		return fmt.Sprintf("%s S%dE%d", e.Title, e.Season, e.Episode)
	}
	return e.Title
}

// ProgressKey builds the "{kind}-{id}" key used by stores to address a subject.
func ProgressKey(kind MediaKind, subjectID int) string {
	return kind.String() + "-" + strconv.Itoa(subjectID)
}

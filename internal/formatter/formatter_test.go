package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	tu "github.com/desertthunder/lunastream/internal/testing"
)

func sampleEntries() []models.WatchProgressEntry {
	updated := time.Date(2026, 4, 2, 21, 30, 0, 0, time.UTC)
	return []models.WatchProgressEntry{
		{
			SubjectID: 95396, Kind: models.Series, Title: "Severance", PosterPath: "/sev.jpg",
			Season: 2, Episode: 3, PositionSeconds: 0, DurationSeconds: 3300, LastUpdatedAt: updated,
		},
		{
			SubjectID: 603, Kind: models.Movie, Title: "The Matrix, Reloaded", LastUpdatedAt: updated.Add(-time.Hour),
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(decoded))
		}
		if decoded[0]["media_type"] != "tv" || decoded[0]["media_id"].(float64) != 95396 {
			t.Errorf("unexpected first entry %v", decoded[0])
		}
	})

	t.Run("ExportToJSON Empty", func(t *testing.T) {
		data, err := ExportToJSON(nil)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %s", data)
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Kind,ID,Title,Season,Episode,Position,Duration,Updated") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "tv,95396,Severance,2,3,0,3300,2026-04-02T21:30:00Z") {
			t.Errorf("CSV missing series row, got: %s", output)
		}
		if !strings.Contains(output, `movie,603,"The Matrix, Reloaded",,,0,0,`) {
			t.Errorf("CSV missing quoted movie row, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without images", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleEntries(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)

			if !strings.Contains(output, "# Continue Watching") {
				t.Errorf("Markdown missing heading")
			}
			if !strings.Contains(output, "**Titles**: 2") {
				t.Errorf("Markdown missing count")
			}
			if !strings.Contains(output, "1. **Severance S2E3** (tv) [0:00 / 55:00] `/watch/tv/95396/2/3`") {
				t.Errorf("Markdown missing series line, got: %s", output)
			}
			if !strings.Contains(output, "2. **The Matrix, Reloaded** (movie) `/watch/movie/603`") {
				t.Errorf("Markdown missing movie line, got: %s", output)
			}
			if strings.Contains(output, "![") {
				t.Errorf("expected no images without a base URL")
			}
		})

		t.Run("with images", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleEntries(), "https://image.tmdb.org/t/p/w185/")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Severance](https://image.tmdb.org/t/p/w185/sev.jpg)") {
				t.Errorf("Markdown missing poster image, got: %s", data)
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleEntries())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "Continue watching: 2") {
			t.Errorf("Text missing count")
		}
		if !strings.Contains(output, "1. Severance S2E3") {
			t.Errorf("Text missing series entry")
		}
		if !strings.Contains(output, "2. The Matrix, Reloaded") {
			t.Errorf("Text missing movie entry")
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "progress.csv")

		written, err := WriteExport(sampleEntries(), FormatCSV, path, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Severance") {
			t.Errorf("exported file missing entries")
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"CSV", FormatCSV},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"txt", FormatText},
		{"", FormatText},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
	if FormatMarkdown.Extension() != ".md" {
		t.Errorf("unexpected markdown extension %s", FormatMarkdown.Extension())
	}
}

func TestPlayers(t *testing.T) {
	if got := len(Players()); got != 26 {
		t.Errorf("expected 26 players, got %d", got)
	}
	if got := len(AnimePlayers()); got != 2 {
		t.Errorf("expected 2 anime players, got %d", got)
	}

	seen := map[string]bool{}
	for _, p := range Players() {
		if seen[p.ID] {
			t.Errorf("duplicate player %s", p.ID)
		}
		seen[p.ID] = true
		if p.movie == "" || p.tv == "" {
			t.Errorf("player %s is missing a template", p.ID)
		}
	}

	if _, ok := LookupPlayer(models.KindMovie, " VidLink "); !ok {
		t.Error("expected case-insensitive lookup")
	}
	if _, ok := LookupPlayer(models.KindAnime, "vidlink"); ok {
		t.Error("expected vidlink to be unavailable for anime")
	}
}

func TestEmbedURL(t *testing.T) {
	tests := []struct {
		name string
		req  EmbedRequest
		want string
	}{
		{
			"Default Movie Player",
			EmbedRequest{Kind: models.KindMovie, ID: 603},
			"https://player.videasy.net/movie/603?color=fbc9ff&chromecast=false&nextEpisode=true&autoplayNextEpisode=true",
		},
		{
			"Series With Accent",
			EmbedRequest{Kind: models.KindSeries, ID: 1399, Season: 2, Episode: 5, Player: "vidfast", Accent: "#00ff88"},
			"https://vidfast.pro/tv/1399/2/5?theme=00ff88&chromecast=false&nextButton=true&autoNext=true&poster=true",
		},
		{
			"Series Defaults To First Episode",
			EmbedRequest{Kind: models.KindSeries, ID: 1399, Player: "vidsrc.xyz"},
			"https://vidsrc.xyz/embed/tv/1399/1-1?autoplay=1&autonext=1",
		},
		{
			"Mapple Dash Format",
			EmbedRequest{Kind: models.KindSeries, ID: 7, Season: 3, Episode: 4, Player: "mapple"},
			"https://mapple.uk/watch/tv/7-3-4?theme=fbc9ff&autoPlay=true&nextButton=true&autoNext=true",
		},
		{
			"Anime Sub",
			EmbedRequest{Kind: models.KindAnime, ID: 21, Episode: 1000},
			"https://player.videasy.net/anime/21/1000",
		},
		{
			"Anime Dub",
			EmbedRequest{Kind: models.KindAnime, ID: 21, Episode: 3, Dub: true},
			"https://player.videasy.net/anime/21/3?dub=true",
		},
		{
			"Anime VidNest",
			EmbedRequest{Kind: models.KindAnime, ID: 21, Episode: 3, Player: "vidnest", Dub: true},
			"https://vidnest.fun/anime/21/3/dub",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EmbedURL(tt.req)
			if err != nil {
				t.Fatalf("EmbedURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("Errors", func(t *testing.T) {
		if _, err := EmbedURL(EmbedRequest{Kind: models.KindMovie, ID: 1, Player: "nope"}); !errors.Is(err, shared.ErrUnknownPlayer) {
			t.Errorf("expected ErrUnknownPlayer, got %v", err)
		}
		if _, err := EmbedURL(EmbedRequest{Kind: models.KindMovie}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for zero id, got %v", err)
		}
	})
}

func TestResumeURL(t *testing.T) {
	entry := models.WatchProgressEntry{SubjectID: 95396, Kind: models.Series, Season: 2, Episode: 3}
	got, err := ResumeURL(entry, "vidlink", "")
	if err != nil {
		t.Fatalf("ResumeURL: %v", err)
	}
	if !strings.HasPrefix(got, "https://vidlink.pro/tv/95396/2/3?") {
		t.Errorf("unexpected resume URL %s", got)
	}

	got, _ = ResumeURL(models.WatchProgressEntry{SubjectID: 603, Kind: models.Movie}, "", "")
	if !strings.HasPrefix(got, "https://player.videasy.net/movie/603?") {
		t.Errorf("unexpected movie resume URL %s", got)
	}
}

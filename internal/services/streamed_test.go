package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/lunastream/internal/shared"
)

func TestStreamedService(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sports":
			w.Write([]byte(`[{"id":"football","name":"Football"},{"id":"basketball","name":"Basketball"}]`))
		case "/api/matches/live/popular":
			w.Write([]byte(`[{"id":"m1","title":"Arsenal vs Chelsea","category":"football","date":1767225600000,"popular":true,
				"teams":{"home":{"name":"Arsenal","badge":"ars"},"away":{"name":"Chelsea","badge":"che"}},
				"sources":[{"source":"alpha","id":"ars-che"}]}]`))
		case "/api/matches/football":
			w.Write([]byte(`[{"id":"m2","title":"Derby","category":"football","date":0,"poster":"/api/images/proxy/abc"}]`))
		case "/api/stream/alpha/ars-che":
			w.Write([]byte(`[{"id":"ars-che","streamNo":1,"language":"English","hd":true,"embedUrl":"https://embed/1","source":"alpha"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"not found"}`))
		}
	}))
	defer server.Close()

	srv := NewStreamedService(server.URL+"/api/", nil)

	t.Run("Sports", func(t *testing.T) {
		sports, err := srv.Sports(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sports) != 2 || sports[0].ID != "football" {
			t.Errorf("unexpected sports %+v", sports)
		}
	})

	t.Run("LiveMatches", func(t *testing.T) {
		matches, err := srv.LiveMatches(ctx, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}

		m := matches[0]
		if !m.Date.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected date %v", m.Date)
		}
		if m.Home == nil || m.Home.Badge != server.URL+"/api/images/badge/ars.webp" {
			t.Errorf("unexpected home team %+v", m.Home)
		}
		if m.Poster != server.URL+"/api/images/poster/ars/che.webp" {
			t.Errorf("expected generated poster, got %s", m.Poster)
		}
		if len(m.Sources) != 1 || m.Sources[0].Source != "alpha" {
			t.Errorf("unexpected sources %+v", m.Sources)
		}
	})

	t.Run("Matches", func(t *testing.T) {
		matches, err := srv.Matches(ctx, "football", false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(matches) != 1 || matches[0].Poster != server.URL+"/api/images/proxy/abc.webp" {
			t.Errorf("unexpected matches %+v", matches)
		}

		if _, err := srv.Matches(ctx, "", false); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Streams", func(t *testing.T) {
		streams, err := srv.Streams(ctx, "alpha", "ars-che")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(streams) != 1 || !streams[0].HD || streams[0].EmbedURL != "https://embed/1" {
			t.Errorf("unexpected streams %+v", streams)
		}

		if _, err := srv.Streams(ctx, "alpha", "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

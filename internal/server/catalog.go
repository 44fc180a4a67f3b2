package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/lunastream/internal/formatter"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
)

// Search returns ranked results across providers for ?q=&type=.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	scope, err := tasks.ParseSearchScope(query.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid type")
		return
	}

	writeJSON(w, http.StatusOK, a.catalog.Search(r.Context(), query.Get("q"), scope, nil))
}

// Home returns the landing page rows. Rows whose provider failed are empty.
func (a *API) Home(w http.ResponseWriter, r *http.Request) {
	result, err := a.catalog.Home(r.Context(), nil, tasks.HomeOpts{})
	switch {
	case errors.Is(err, shared.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "No catalog provider configured")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to load home page")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (a *API) titleDetails(kind models.TitleKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}

		title, err := a.catalog.Details(r.Context(), kind, id)
		if err != nil {
			a.writeProviderError(w, err, "details", "kind", kind, "id", id)
			return
		}
		writeJSON(w, http.StatusOK, title)
	}
}

// Season returns the episode list of /api/tv/{id}/season/{n}.
func (a *API) Season(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	number, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || number < 0 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	season, err := a.catalog.Season(r.Context(), id, number)
	if err != nil {
		a.writeProviderError(w, err, "season", "id", id, "season", number)
		return
	}
	writeJSON(w, http.StatusOK, season)
}

// Person returns /api/person/{id} with known-for titles and filmography.
func (a *API) Person(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	person, err := a.catalog.Person(r.Context(), id)
	if err != nil {
		a.writeProviderError(w, err, "person", "id", id)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

// LiveSports returns live matches grouped by sport for ?sport=&popular=.
//
// Upstream failures degrade to an empty list.
func (a *API) LiveSports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	popular, _ := strconv.ParseBool(query.Get("popular"))

	groups, err := tasks.LiveMatches(r.Context(), a.sports, query.Get("sport"), popular)
	switch {
	case errors.Is(err, shared.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "No sports provider configured")
		return
	case err != nil:
		a.logger.Warn("sports provider failed", "error", err)
		groups = []tasks.MatchGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// Streams returns the candidate streams for /api/sports/streams/{source}/{id}.
func (a *API) Streams(w http.ResponseWriter, r *http.Request) {
	if a.sports == nil {
		writeError(w, http.StatusServiceUnavailable, "No sports provider configured")
		return
	}

	streams, err := a.sports.Streams(r.Context(), r.PathValue("source"), r.PathValue("id"))
	if err != nil {
		a.writeProviderError(w, err, "streams", "source", r.PathValue("source"), "id", r.PathValue("id"))
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

// Players lists players for ?kind= or, when ?id= is set, resolves an embed URL.
func (a *API) Players(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	kind := models.KindMovie
	if raw := query.Get("kind"); raw != "" {
		parsed, err := models.ParseTitleKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid kind")
			return
		}
		kind = parsed
	}

	if query.Get("id") == "" {
		players := formatter.Players()
		if kind == models.KindAnime {
			players = formatter.AnimePlayers()
		}
		writeJSON(w, http.StatusOK, players)
		return
	}

	req := formatter.EmbedRequest{
		Kind:   kind,
		Player: query.Get("player"),
		Accent: query.Get("accent"),
	}
	var err error
	if req.ID, err = strconv.Atoi(query.Get("id")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if raw := query.Get("season"); raw != "" {
		if req.Season, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid season")
			return
		}
	}
	if raw := query.Get("episode"); raw != "" {
		if req.Episode, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid episode")
			return
		}
	}
	req.Dub, _ = strconv.ParseBool(query.Get("dub"))

	url, err := formatter.EmbedURL(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	player := strings.ToLower(strings.TrimSpace(req.Player))
	if player == "" {
		player = formatter.DefaultPlayer
	}
	writeJSON(w, http.StatusOK, map[string]string{"player": player, "url": url})
}

// writeProviderError maps upstream failures: 404 for unknown ids, 503 without a provider, 502 otherwise.
func (a *API) writeProviderError(w http.ResponseWriter, err error, what string, kv ...any) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, shared.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Provider not configured")
	default:
		a.logger.Warn("provider request failed", append([]any{"what", what, "error", err}, kv...)...)
		writeError(w, http.StatusBadGateway, "Failed to fetch "+what)
	}
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/repositories"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
)

// API holds the dependencies of the JSON handlers.
type API struct {
	users         *repositories.UserRepository
	progress      *repositories.ProgressRepository
	notifications *repositories.NotificationRepository
	stats         *repositories.StatisticsRepository
	catalog       *tasks.CatalogEngine
	sports        services.Sports
	logger        *log.Logger
}

func (a *API) register(r *BasicRouter, adminHash string) {
	authed := func(fn http.HandlerFunc) http.Handler { return RequireIdentity(fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return Admin(adminHash)(fn) }

	r.HandleFunc(http.MethodGet, "/health", a.Health)

	r.Handle(http.MethodGet, "/api/continue-watching", authed(a.ListProgress))
	r.Handle(http.MethodPost, "/api/continue-watching", authed(a.UpsertProgress))
	r.Handle(http.MethodDelete, "/api/continue-watching", authed(a.RemoveProgress))

	r.Handle(http.MethodPost, "/api/notifications/read", authed(a.MarkRead))
	r.Handle(http.MethodPost, "/api/notifications/read-all", authed(a.MarkAllRead))
	r.HandleFunc(http.MethodGet, "/api/notifications/unread-count", a.UnreadCount)
	r.HandleFunc(http.MethodGet, "/api/notifications", a.ListNotifications)

	r.HandleFunc(http.MethodGet, "/api/statistics", a.Statistics)
	r.HandleFunc(http.MethodPost, "/api/statistics/track", a.Track)

	r.Handle(http.MethodGet, "/api/admin/notifications", admin(a.AdminListNotifications))
	r.Handle(http.MethodPost, "/api/admin/notifications", admin(a.AdminCreateNotification))
	r.Handle(http.MethodDelete, "/api/admin/notifications", admin(a.AdminDeleteNotification))

	r.HandleFunc(http.MethodGet, "/api/search", a.Search)
	r.HandleFunc(http.MethodGet, "/api/home", a.Home)
	r.HandleFunc(http.MethodGet, "/api/movie/{id}", a.titleDetails(models.KindMovie))
	r.HandleFunc(http.MethodGet, "/api/tv/{id}", a.titleDetails(models.KindSeries))
	r.HandleFunc(http.MethodGet, "/api/anime/{id}", a.titleDetails(models.KindAnime))
	r.HandleFunc(http.MethodGet, "/api/tv/{id}/season/{n}", a.Season)
	r.HandleFunc(http.MethodGet, "/api/person/{id}", a.Person)

	r.HandleFunc(http.MethodGet, "/api/sports/live", a.LiveSports)
	r.HandleFunc(http.MethodGet, "/api/sports/streams/{source}/{id}", a.Streams)
	r.HandleFunc(http.MethodGet, "/api/players", a.Players)
}

// Health reports liveness.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProgress returns the caller's reconciled continue-watching list, newest first.
func (a *API) ListProgress(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	entries, err := a.progress.List(r.Context(), user.ID())
	if err != nil {
		a.logger.Error("failed to list progress", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch continue watching")
		return
	}
	writeJSON(w, http.StatusOK, tasks.Reconcile(entries))
}

// UpsertProgress records progress for one title, replacing any row with the same kind and id.
func (a *API) UpsertProgress(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var entry models.WatchProgressEntry
	if err := decodeBody(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !entry.Valid() {
		writeError(w, http.StatusBadRequest, "media_id and media_type are required")
		return
	}
	entry.LastUpdatedAt = time.Now().UTC()

	if err := a.progress.Upsert(r.Context(), user.ID(), entry); err != nil {
		a.logger.Error("failed to save progress", "user", user.ID(), "key", entry.Key(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save continue watching")
		return
	}
	writeSuccess(w)
}

// RemoveProgress deletes the caller's entry for ?media_id=&media_type=.
func (a *API) RemoveProgress(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	query := r.URL.Query()

	rawID, rawType := query.Get("media_id"), query.Get("media_type")
	if rawID == "" || rawType == "" {
		writeError(w, http.StatusBadRequest, "media_id and media_type are required")
		return
	}

	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid media_id")
		return
	}
	kind, err := models.ParseMediaKind(rawType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid media_type")
		return
	}

	if err := a.progress.Remove(r.Context(), user.ID(), id, kind); err != nil {
		a.logger.Error("failed to remove progress", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to remove from continue watching")
		return
	}
	writeSuccess(w)
}

// MarkRead marks one notification read for the caller.
func (a *API) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var body struct {
		NotificationID string `json:"notification_id"`
	}
	if err := decodeBody(r, &body); err != nil || strings.TrimSpace(body.NotificationID) == "" {
		writeError(w, http.StatusBadRequest, "notification_id is required")
		return
	}

	err := a.notifications.MarkRead(user.ID(), body.NotificationID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeError(w, http.StatusNotFound, "Notification not found")
	case err != nil:
		a.logger.Error("failed to mark notification read", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to mark notification as read")
	default:
		writeSuccess(w)
	}
}

// MarkAllRead marks every active notification read for the caller.
func (a *API) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	marked, err := a.notifications.MarkAllRead(user.ID())
	if err != nil {
		a.logger.Error("failed to mark notifications read", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to mark all notifications as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "marked": marked})
}

// UnreadCount returns the caller's unread count, 0 for guests.
func (a *API) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]int64{"count": 0})
		return
	}

	count, err := a.notifications.UnreadCount(user.ID())
	if err != nil {
		a.logger.Error("failed to count unread notifications", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch unread count")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// ListNotifications returns active notifications, newest first, with the caller's read flags.
func (a *API) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if user := UserFromContext(r.Context()); user != nil {
		userID = user.ID()
	}

	views, err := a.notifications.ListViews(userID)
	if err != nil {
		a.logger.Error("failed to list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Statistics returns every usage counter.
func (a *API) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.stats.All()
	if err != nil {
		a.logger.Error("failed to read statistics", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Track applies a tracking event. Unique visitors are counted by client IP.
func (a *API) Track(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Metric models.TrackEvent `json:"metric"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := a.stats.Track(body.Metric, ClientIP(r))
	switch {
	case errors.Is(err, shared.ErrUnknownMetric):
		writeError(w, http.StatusBadRequest, "Invalid metric")
	case err != nil:
		a.logger.Error("failed to track metric", "metric", body.Metric, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to track metric")
	default:
		writeSuccess(w)
	}
}

// AdminListNotifications returns every active notification.
func (a *API) AdminListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := a.notifications.List(nil)
	if err != nil {
		a.logger.Error("failed to list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// AdminCreateNotification publishes a notification from {title, content}.
func (a *API) AdminCreateNotification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n := models.NewNotification(body.Title, body.Content)
	err := a.notifications.Create(n)
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "title and content are required")
	case err != nil:
		a.logger.Error("failed to create notification", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create notification")
	default:
		a.logger.Info("notification created", "id", n.ID(), "title", n.Title())
		writeJSON(w, http.StatusCreated, n)
	}
}

// AdminDeleteNotification soft-deletes the notification named by ?id=.
func (a *API) AdminDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	err := a.notifications.Delete(id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeError(w, http.StatusNotFound, "Notification not found")
	case err != nil:
		a.logger.Error("failed to delete notification", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete notification")
	default:
		writeSuccess(w)
	}
}

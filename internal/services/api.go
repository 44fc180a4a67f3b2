// API client for a running LunaStream server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// APIService makes requests to the LunaStream JSON API on behalf of the CLI.
//
// With a bearer token it acts as the signed-in identity; [APIService.Progress] then serves as the remote progress store.
type APIService struct {
	baseURL       string
	httpClient    *http.Client
	token         string
	adminPassword string
}

// NewAPIService creates a new API client.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:3000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// WithToken returns a copy of the client that sends token as a bearer credential.
func (a *APIService) WithToken(token string) *APIService {
	c := *a
	c.token = token
	return &c
}

// WithAdminPassword returns a copy of the client that authenticates admin endpoints.
func (a *APIService) WithAdminPassword(password string) *APIService {
	c := *a
	c.adminPassword = password
	return &c
}

// HasToken reports whether requests carry an identity.
func (a *APIService) HasToken() bool {
	return a.token != ""
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.raw(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.raw(ctx, http.MethodPost, path, data)
}

func (a *APIService) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if a.adminPassword != "" {
		req.Header.Set("X-Admin-Password", a.adminPassword)
	}
	return req, nil
}

func (a *APIService) raw(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := a.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// doRequest sends payload (if any) as JSON and decodes a 2xx response into result.
func (a *APIService) doRequest(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := a.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkResponse("lunastream", resp); err != nil {
		return err
	}
	return decodeJSON(resp.Body, result)
}

// Health calls GET /health.
func (a *APIService) Health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := a.doRequest(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Statistics calls GET /api/statistics.
func (a *APIService) Statistics(ctx context.Context) (map[string]int64, error) {
	stats := map[string]int64{}
	if err := a.doRequest(ctx, http.MethodGet, "/api/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Track calls POST /api/statistics/track.
func (a *APIService) Track(ctx context.Context, event models.TrackEvent) error {
	return a.doRequest(ctx, http.MethodPost, "/api/statistics/track", map[string]string{"metric": string(event)}, nil)
}

// NotificationItem is a notification as returned by the API.
type NotificationItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	Read      bool   `json:"read"`
}

// Notifications calls GET /api/notifications.
func (a *APIService) Notifications(ctx context.Context) ([]NotificationItem, error) {
	var items []NotificationItem
	if err := a.doRequest(ctx, http.MethodGet, "/api/notifications", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UnreadCount calls GET /api/notifications/unread-count.
func (a *APIService) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := a.doRequest(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkRead calls POST /api/notifications/read.
func (a *APIService) MarkRead(ctx context.Context, notificationID string) error {
	payload := map[string]string{"notification_id": notificationID}
	return a.doRequest(ctx, http.MethodPost, "/api/notifications/read", payload, nil)
}

// MarkAllRead calls POST /api/notifications/read-all.
func (a *APIService) MarkAllRead(ctx context.Context) error {
	return a.doRequest(ctx, http.MethodPost, "/api/notifications/read-all", nil, nil)
}

// AdminNotifications calls GET /api/admin/notifications.
func (a *APIService) AdminNotifications(ctx context.Context) ([]NotificationItem, error) {
	var items []NotificationItem
	if err := a.doRequest(ctx, http.MethodGet, "/api/admin/notifications", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateNotification calls POST /api/admin/notifications.
func (a *APIService) CreateNotification(ctx context.Context, title, content string) (*NotificationItem, error) {
	var item NotificationItem
	payload := map[string]string{"title": title, "content": content}
	if err := a.doRequest(ctx, http.MethodPost, "/api/admin/notifications", payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteNotification calls DELETE /api/admin/notifications?id=.
func (a *APIService) DeleteNotification(ctx context.Context, id string) error {
	return a.doRequest(ctx, http.MethodDelete, "/api/admin/notifications?id="+url.QueryEscape(id), nil, nil)
}

// Progress returns the remote progress store for the client's identity.
func (a *APIService) Progress() *RemoteProgress {
	return &RemoteProgress{api: a}
}

// RemoteProgress is the identity-scoped watch progress store behind /api/continue-watching.
type RemoteProgress struct {
	api *APIService
}

// List returns the stored entries for the identity.
func (p *RemoteProgress) List(ctx context.Context) ([]models.WatchProgressEntry, error) {
	if !p.api.HasToken() {
		return nil, shared.ErrNotAuthenticated
	}
	var entries []models.WatchProgressEntry
	if err := p.api.doRequest(ctx, http.MethodGet, "/api/continue-watching", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Upsert writes the entry for (kind, subject).
func (p *RemoteProgress) Upsert(ctx context.Context, entry models.WatchProgressEntry) error {
	if !p.api.HasToken() {
		return shared.ErrNotAuthenticated
	}
	return p.api.doRequest(ctx, http.MethodPost, "/api/continue-watching", entry, nil)
}

// Remove deletes the entry for (kind, subject). Missing entries are not an error.
func (p *RemoteProgress) Remove(ctx context.Context, subjectID int, kind models.MediaKind) error {
	if !p.api.HasToken() {
		return shared.ErrNotAuthenticated
	}
	q := url.Values{"media_id": {strconv.Itoa(subjectID)}, "media_type": {kind.String()}}
	return p.api.doRequest(ctx, http.MethodDelete, "/api/continue-watching?"+q.Encode(), nil, nil)
}

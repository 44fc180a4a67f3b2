package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var _ Model = (*Notification)(nil)

// Notification is an admin-authored announcement shown to every visitor.
type Notification struct {
	id        string
	sequence  int
	title     string
	content   string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewNotification creates a [Notification] with creation timestamps set to now.
func NewNotification(title, content string) *Notification {
	now := time.Now()
	return &Notification{
		title:     strings.TrimSpace(title),
		content:   strings.TrimSpace(content),
		createdAt: now,
		updatedAt: now,
	}
}

func (n *Notification) ID() string                { return n.id }
func (n *Notification) Sequence() int             { return n.sequence }
func (n *Notification) Title() string             { return n.title }
func (n *Notification) Content() string           { return n.content }
func (n *Notification) CreatedAt() time.Time      { return n.createdAt }
func (n *Notification) UpdatedAt() time.Time      { return n.updatedAt }
func (n *Notification) DeletedAt() *time.Time     { return n.deletedAt }
func (n *Notification) SetID(id string)           { n.id = id }
func (n *Notification) SetSequence(seq int)       { n.sequence = seq }
func (n *Notification) SetTitle(title string)     { n.title = strings.TrimSpace(title) }
func (n *Notification) SetContent(c string)       { n.content = strings.TrimSpace(c) }
func (n *Notification) SetCreatedAt(t time.Time)  { n.createdAt = t }
func (n *Notification) SetUpdatedAt(t time.Time)  { n.updatedAt = t }
func (n *Notification) SetDeletedAt(t *time.Time) { n.deletedAt = t }

// Validate requires an ID, a title and content.
func (n *Notification) Validate() error {
	if n.id == "" {
		return fmt.Errorf("notification ID is required")
	}
	if n.title == "" {
		return fmt.Errorf("notification title is required")
	}
	if n.content == "" {
		return fmt.Errorf("notification content is required")
	}
	return nil
}

// MarshalJSON renders the public fields of the notification.
func (n *Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}{n.id, n.title, n.content, n.createdAt})
}

// NotificationView pairs a notification with the caller's read state.
type NotificationView struct {
	*Notification
	Read bool
}

// MarshalJSON renders the notification fields plus "read".
func (v NotificationView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
		Read      bool      `json:"read"`
	}{v.ID(), v.Title(), v.Content(), v.CreatedAt(), v.Read})
}

package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

var _ models.Repository[*models.Notification] = (*NotificationRepository)(nil)

// NotificationRepository implements [models.Repository] for [models.Notification] persistence
// and tracks per-user read markers.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new [NotificationRepository] with the given database connection
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification with generated ID and sequence
func (r *NotificationRepository) Create(n *models.Notification) error {
	sequence, err := NextSequence(r.db, "notifications")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	n.SetID(id)
	n.SetSequence(sequence)

	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := shared.Rebind(r.db, `
		INSERT INTO notifications (id, sequence, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.Exec(query, id, sequence, n.Title(), n.Content(), n.CreatedAt().UTC(), n.UpdatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Get retrieves a notification by ID, excluding soft-deleted ones
func (r *NotificationRepository) Get(id string) (*models.Notification, error) {
	query := shared.Rebind(r.db, `
		SELECT id, sequence, title, content, created_at, updated_at, deleted_at
		FROM notifications
		WHERE id = ? AND deleted_at IS NULL
	`)

	n, err := scanNotification(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: notification %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notification: %w", err)
	}
	return n, nil
}

// Update modifies the title and content of an existing notification
func (r *NotificationRepository) Update(n *models.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	ts := now()
	n.SetUpdatedAt(ts)

	query := shared.Rebind(r.db, `
		UPDATE notifications
		SET title = ?, content = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`)

	result, err := r.db.Exec(query, n.Title(), n.Content(), ts, n.ID())
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return affectedOne(result, "notification", n.ID())
}

// Delete soft-deletes a notification by ID
func (r *NotificationRepository) Delete(id string) error {
	query := shared.Rebind(r.db, "UPDATE notifications SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL")

	result, err := r.db.Exec(query, now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return affectedOne(result, "notification", id)
}

// List retrieves active notifications, newest first. Criteria are ignored.
func (r *NotificationRepository) List(criteria map[string]any) ([]*models.Notification, error) {
	rows, err := r.db.Query(`
		SELECT id, sequence, title, content, created_at, updated_at, deleted_at
		FROM notifications
		WHERE deleted_at IS NULL
		ORDER BY sequence DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return notifications, nil
}

// ListViews returns active notifications, newest first, with the read state for userID.
//
// An empty userID yields every notification as unread.
func (r *NotificationRepository) ListViews(userID string) ([]models.NotificationView, error) {
	query := shared.Rebind(r.db, `
		SELECT n.id, n.sequence, n.title, n.content, n.created_at, n.updated_at, n.deleted_at,
			CASE WHEN nr.notification_id IS NULL THEN 0 ELSE 1 END
		FROM notifications n
		LEFT JOIN notification_reads nr ON nr.notification_id = n.id AND nr.user_id = ?
		WHERE n.deleted_at IS NULL
		ORDER BY n.sequence DESC
	`)

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	views := []models.NotificationView{}
	for rows.Next() {
		var read int
		n, err := scanNotification(rows, &read)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		views = append(views, models.NotificationView{Notification: n, Read: read == 1})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return views, nil
}

// MarkRead records that userID has read a notification. Marking twice is a no-op.
func (r *NotificationRepository) MarkRead(userID, notificationID string) error {
	if _, err := r.Get(notificationID); err != nil {
		return err
	}

	query := shared.Rebind(r.db, `
		INSERT INTO notification_reads (user_id, notification_id, read_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, notification_id) DO NOTHING
	`)
	if _, err := r.db.Exec(query, userID, notificationID, now()); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every active notification read for userID and returns how many were newly marked.
func (r *NotificationRepository) MarkAllRead(userID string) (int64, error) {
	query := shared.Rebind(r.db, `
		INSERT INTO notification_reads (user_id, notification_id, read_at)
		SELECT ?, n.id, CURRENT_TIMESTAMP
		FROM notifications n
		WHERE n.deleted_at IS NULL
		ON CONFLICT (user_id, notification_id) DO NOTHING
	`)

	result, err := r.db.Exec(query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

// UnreadCount returns the number of active notifications userID has not read.
func (r *NotificationRepository) UnreadCount(userID string) (int64, error) {
	query := shared.Rebind(r.db, `
		SELECT COUNT(*)
		FROM notifications n
		WHERE n.deleted_at IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM notification_reads nr WHERE nr.notification_id = n.id AND nr.user_id = ?
			)
	`)

	var count int64
	if err := r.db.QueryRow(query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func scanNotification(s scanner, extra ...any) (*models.Notification, error) {
	var (
		id        string
		sequence  int
		title     string
		content   string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	dest := append([]any{&id, &sequence, &title, &content, &createdAt, &updatedAt, &deletedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	n := models.NewNotification(title, content)
	n.SetID(id)
	n.SetSequence(sequence)
	n.SetCreatedAt(createdAt)
	n.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		n.SetDeletedAt(&deletedAt.Time)
	}
	return n, nil
}

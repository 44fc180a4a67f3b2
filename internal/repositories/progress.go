package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// MaxProgressEntries caps the number of continue-watching rows returned per user.
const MaxProgressEntries = 50

// ProgressRepository persists continue-watching entries keyed by (user, kind, subject).
type ProgressRepository struct {
	db *sql.DB
}

// NewProgressRepository creates a new [ProgressRepository] with the given database connection
func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// List returns up to [MaxProgressEntries] entries for a user, most recently updated first.
func (r *ProgressRepository) List(ctx context.Context, userID string) ([]models.WatchProgressEntry, error) {
	query := shared.Rebind(r.db, `
		SELECT media_id, media_type, title, poster_path, season, episode, position, duration, updated_at
		FROM continue_watching
		WHERE user_id = ?
		ORDER BY updated_at DESC, media_type ASC, media_id ASC
		LIMIT ?
	`)

	rows, err := r.db.QueryContext(ctx, query, userID, MaxProgressEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	entries := []models.WatchProgressEntry{}
	for rows.Next() {
		var (
			entry     models.WatchProgressEntry
			mediaType string
			updatedAt time.Time
		)
		err := rows.Scan(&entry.SubjectID, &mediaType, &entry.Title, &entry.PosterPath, &entry.Season, &entry.Episode,
			&entry.PositionSeconds, &entry.DurationSeconds, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}

		kind, err := models.ParseMediaKind(mediaType)
		if err != nil {
			continue
		}
		entry.Kind = kind
		entry.LastUpdatedAt = updatedAt.UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Upsert inserts an entry or replaces the existing row for the same (user, kind, subject).
//
// A zero LastUpdatedAt is stamped with the current time.
func (r *ProgressRepository) Upsert(ctx context.Context, userID string, entry models.WatchProgressEntry) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID is required", shared.ErrInvalidInput)
	}
	if !entry.Valid() {
		return fmt.Errorf("%w: progress entry needs a positive media_id and a known media_type", shared.ErrInvalidInput)
	}

	updatedAt := entry.LastUpdatedAt.UTC()
	if entry.LastUpdatedAt.IsZero() {
		updatedAt = now()
	}

	season, episode := entry.Season, entry.Episode
	if entry.Kind != models.Series {
		season, episode = 0, 0
	}

	query := shared.Rebind(r.db, `
		INSERT INTO continue_watching
			(id, user_id, media_id, media_type, title, poster_path, season, episode, position, duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, media_type, media_id) DO UPDATE SET
			title = excluded.title,
			poster_path = excluded.poster_path,
			season = excluded.season,
			episode = excluded.episode,
			position = excluded.position,
			duration = excluded.duration,
			updated_at = excluded.updated_at
	`)

	_, err := r.db.ExecContext(ctx, query,
		shared.GenerateID(), userID, entry.SubjectID, entry.Kind.String(), entry.Title, entry.PosterPath,
		season, episode, entry.PositionSeconds, entry.DurationSeconds, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// Remove deletes a user's entry for one subject. Removing an absent entry is not an error.
func (r *ProgressRepository) Remove(ctx context.Context, userID string, subjectID int, kind models.MediaKind) error {
	query := shared.Rebind(r.db, "DELETE FROM continue_watching WHERE user_id = ? AND media_type = ? AND media_id = ?")
	if _, err := r.db.ExecContext(ctx, query, userID, kind.String(), subjectID); err != nil {
		return fmt.Errorf("failed to remove progress: %w", err)
	}
	return nil
}

// ForUser binds the repository to one user so it can serve as a progress store.
func (r *ProgressRepository) ForUser(userID string) *UserProgress {
	return &UserProgress{repo: r, userID: userID}
}

// UserProgress is a [ProgressRepository] scoped to a single user.
type UserProgress struct {
	repo   *ProgressRepository
	userID string
}

func (p *UserProgress) List(ctx context.Context) ([]models.WatchProgressEntry, error) {
	return p.repo.List(ctx, p.userID)
}

func (p *UserProgress) Upsert(ctx context.Context, entry models.WatchProgressEntry) error {
	return p.repo.Upsert(ctx, p.userID, entry)
}

func (p *UserProgress) Remove(ctx context.Context, subjectID int, kind models.MediaKind) error {
	return p.repo.Remove(ctx, p.userID, subjectID, kind)
}
